package model

import (
	"maps"

	"ex-otogi-gateway/pkg/gateway"

	"github.com/tidwall/gjson"
)

// Activity is one presence activity entry.
type Activity struct {
	Name    string
	Type    int
	URL     string
	State   string
	Details string
}

// Presence is a user's status inside one guild.
type Presence struct {
	base

	GuildID      string
	Status       string
	Activities   []Activity
	ClientStatus map[string]string
}

// NewPresence returns a presence factory bound to one guild.
func NewPresence(guildID string) func(raw gateway.Payload) *Presence {
	return func(raw gateway.Payload) *Presence {
		presence := &Presence{
			base:    base{id: MemberKey(raw)},
			GuildID: guildID,
			Status:  "offline",
		}

		return presence.Patch(raw)
	}
}

// UserID returns the referenced user id.
func (p *Presence) UserID() string {
	return p.id
}

// Patch applies present keys.
func (p *Presence) Patch(raw gateway.Payload) *Presence {
	patchString(raw, "status", &p.Status)
	if raw.Has("activities") {
		objects := raw.Objects("activities")
		activities := make([]Activity, 0, len(objects))
		for _, object := range objects {
			activities = append(activities, Activity{
				Name:    object.String("name"),
				Type:    int(object.Int("type")),
				URL:     object.String("url"),
				State:   object.String("state"),
				Details: object.String("details"),
			})
		}
		p.Activities = activities
	}
	if raw.Has("client_status") {
		clientStatus := make(map[string]string)
		raw.Get("client_status").ForEach(func(key, value gjson.Result) bool {
			clientStatus[key.String()] = value.String()
			return true
		})
		p.ClientStatus = clientStatus
	}

	return p
}

// Clone returns a snapshot. Client status is copied because it is a map.
func (p *Presence) Clone() *Presence {
	cloned := *p
	cloned.ClientStatus = maps.Clone(p.ClientStatus)

	return &cloned
}
