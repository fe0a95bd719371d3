package model

import (
	"errors"
	"testing"

	"ex-otogi-gateway/pkg/gateway"
)

func TestChannelKindsBuildTraits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		guild bool
		text  bool
		voice bool
	}{
		{name: "text", raw: `{"id":"1","type":0,"guild_id":"7","name":"general"}`, guild: true, text: true},
		{name: "news", raw: `{"id":"2","type":5,"guild_id":"7"}`, guild: true, text: true},
		{name: "dm", raw: `{"id":"3","type":1,"recipients":[{"id":"9"}]}`, text: true},
		{name: "voice", raw: `{"id":"4","type":2,"guild_id":"7","bitrate":64000}`, guild: true, voice: true},
		{name: "category", raw: `{"id":"5","type":4,"guild_id":"7"}`, guild: true},
		{name: "unknown kind", raw: `{"id":"6","type":99,"guild_id":"7"}`, guild: true},
	}

	kinds := NewChannelKinds()
	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			channel := kinds.Build(gateway.Payload(testCase.raw), DefaultCaching())
			if _, ok := channel.(GuildBased); ok != testCase.guild {
				t.Fatalf("guild based = %v, want %v", ok, testCase.guild)
			}
			if _, ok := channel.(TextBased); ok != testCase.text {
				t.Fatalf("text based = %v, want %v", ok, testCase.text)
			}
			if _, ok := channel.(VoiceBased); ok != testCase.voice {
				t.Fatalf("voice based = %v, want %v", ok, testCase.voice)
			}
		})
	}
}

func TestChannelKindsRegisterRejectsDuplicate(t *testing.T) {
	t.Parallel()

	kinds := NewChannelKinds()
	err := kinds.Register(ChannelGuildText, NewGenericChannel)
	if !errors.Is(err, gateway.ErrChannelKindRegistered) {
		t.Fatalf("error = %v, want ErrChannelKindRegistered", err)
	}

	if err := kinds.Register(ChannelGuildForum, NewTextChannel); err != nil {
		t.Fatalf("register forum failed: %v", err)
	}
	channel := kinds.Build(gateway.Payload(`{"id":"1","type":15}`), DefaultCaching())
	if _, ok := channel.(*TextChannel); !ok {
		t.Fatalf("forum channel = %T, want *TextChannel", channel)
	}
}

func TestChannelKindsExtendWrapsConstructor(t *testing.T) {
	t.Parallel()

	kinds := NewChannelKinds()
	calls := 0
	err := kinds.Extend(ChannelGuildText, func(next ChannelConstructor) ChannelConstructor {
		return func(raw gateway.Payload, caching Caching) Channel {
			calls++
			return next(raw, caching)
		}
	})
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}

	channel := kinds.Build(gateway.Payload(`{"id":"1","type":0}`), DefaultCaching())
	if calls != 1 {
		t.Fatalf("wrapper calls = %d, want 1", calls)
	}
	if _, ok := channel.(*TextChannel); !ok {
		t.Fatalf("channel = %T, want *TextChannel", channel)
	}
}

func TestTextChannelPatchAndClone(t *testing.T) {
	t.Parallel()

	channel := NewTextChannel(gateway.Payload(`{
		"id":"1","type":0,"guild_id":"7","name":"general","topic":"hello",
		"permission_overwrites":[{"id":"7","type":0,"allow":"1024","deny":"0"}]
	}`), DefaultCaching()).(*TextChannel)

	previous := channel.Clone().(*TextChannel)
	channel.Patch(gateway.Payload(`{"name":"renamed","topic":null}`))

	if channel.Name() != "renamed" || channel.Topic != "" {
		t.Fatalf("patched name = %q topic = %q", channel.Name(), channel.Topic)
	}
	if previous.Name() != "general" || previous.Topic != "hello" {
		t.Fatalf("snapshot name = %q topic = %q", previous.Name(), previous.Topic)
	}
	if channel.GuildID() != "7" {
		t.Fatalf("guild id = %q, want 7", channel.GuildID())
	}
	if overwrites := channel.Overwrites(); len(overwrites) != 1 || overwrites[0].Allow != 1024 {
		t.Fatalf("overwrites = %+v", overwrites)
	}
	if previous.Messages() != channel.Messages() {
		t.Fatal("snapshot does not share the message store")
	}
}

func TestTextChannelMessageLimit(t *testing.T) {
	t.Parallel()

	caching := DefaultCaching()
	caching.MessageLimit = 2
	var evicted []string
	caching.OnEvict = func(collection string, id string) {
		evicted = append(evicted, collection+":"+id)
	}

	channel := NewTextChannel(gateway.Payload(`{"id":"1","type":0}`), caching).(TextBased)
	for _, raw := range []string{`{"id":"a","channel_id":"1"}`, `{"id":"b","channel_id":"1"}`, `{"id":"c","channel_id":"1"}`} {
		channel.Messages().Ensure(gateway.Payload(raw))
	}

	if channel.Messages().Len() != 2 {
		t.Fatalf("messages = %d, want 2", channel.Messages().Len())
	}
	if len(evicted) != 1 || evicted[0] != "messages:a" {
		t.Fatalf("evicted = %v, want [messages:a]", evicted)
	}
}
