package model

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"ex-otogi-gateway/pkg/gateway"
)

// ChannelConstructor builds a channel of one kind from a raw channel object.
type ChannelConstructor func(raw gateway.Payload, caching Caching) Channel

// ChannelKinds maps channel types to constructors.
type ChannelKinds struct {
	mu           sync.RWMutex
	constructors map[ChannelType]ChannelConstructor
}

// NewChannelKinds creates a registry preloaded with the builtin channel kinds.
func NewChannelKinds() *ChannelKinds {
	return &ChannelKinds{
		constructors: map[ChannelType]ChannelConstructor{
			ChannelGuildText:       NewTextChannel,
			ChannelGuildNews:       NewTextChannel,
			ChannelDM:              NewDMChannel,
			ChannelGroupDM:         NewDMChannel,
			ChannelGuildVoice:      NewVoiceChannel,
			ChannelGuildStageVoice: NewVoiceChannel,
			ChannelGuildCategory:   NewCategoryChannel,
		},
	}
}

// Register adds a constructor for a kind without one.
func (k *ChannelKinds) Register(kind ChannelType, constructor ChannelConstructor) error {
	if constructor == nil {
		return fmt.Errorf("register channel kind %d: nil constructor", kind)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.constructors[kind]; exists {
		return fmt.Errorf("register channel kind %d: %w", kind, gateway.ErrChannelKindRegistered)
	}
	k.constructors[kind] = constructor

	return nil
}

// Extend wraps the constructor registered for kind. Kinds without one wrap
// the generic constructor.
func (k *ChannelKinds) Extend(kind ChannelType, wrap func(ChannelConstructor) ChannelConstructor) error {
	if wrap == nil {
		return fmt.Errorf("extend channel kind %d: nil wrapper", kind)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	current, exists := k.constructors[kind]
	if !exists {
		current = NewGenericChannel
	}
	extended := wrap(current)
	if extended == nil {
		return fmt.Errorf("extend channel kind %d: wrapper returned nil constructor", kind)
	}
	k.constructors[kind] = extended

	return nil
}

// Build constructs the channel described by raw.
func (k *ChannelKinds) Build(raw gateway.Payload, caching Caching) Channel {
	kind := ChannelType(raw.Int("type"))

	k.mu.RLock()
	constructor, exists := k.constructors[kind]
	k.mu.RUnlock()
	if !exists {
		constructor = NewGenericChannel
	}

	return constructor(raw, caching)
}

// Kinds returns the registered channel types in ascending order.
func (k *ChannelKinds) Kinds() []ChannelType {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return slices.Sorted(maps.Keys(k.constructors))
}
