package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*gateway.Event
}

func newTestClient(t *testing.T, options ...Option) (*Client, *eventRecorder) {
	t.Helper()

	c, err := New(options...)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})

	recorder := &eventRecorder{}
	_, err = c.Subscribe(context.Background(), gateway.SubscriptionSpec{Name: "recorder"},
		func(_ context.Context, event *gateway.Event) error {
			recorder.mu.Lock()
			defer recorder.mu.Unlock()
			recorder.events = append(recorder.events, event)
			return nil
		})
	if err != nil {
		t.Fatalf("subscribe recorder failed: %v", err)
	}

	return c, recorder
}

func (r *eventRecorder) names() []gateway.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]gateway.EventName, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}

	return names
}

func (r *eventRecorder) last(name gateway.EventName) *gateway.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	for idx := len(r.events) - 1; idx >= 0; idx-- {
		if r.events[idx].Name == name {
			return r.events[idx]
		}
	}

	return nil
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func frame(tag string, payload string) gateway.Frame {
	return gateway.Frame{Tag: tag, Payload: gateway.Payload(payload)}
}

func mustDispatch(t *testing.T, c *Client, frames ...gateway.Frame) {
	t.Helper()

	for _, next := range frames {
		if err := c.Dispatch(context.Background(), next); err != nil {
			t.Fatalf("dispatch %s failed: %v", next.Tag, err)
		}
	}
}

func mustArg[T any](t *testing.T, event *gateway.Event, index int) T {
	t.Helper()

	if event == nil {
		t.Fatal("event not emitted")
	}
	value, ok := gateway.Arg[T](event, index)
	if !ok {
		t.Fatalf("%s arg %d is not %T: %v", event.Name, index, value, event.Args)
	}

	return value
}

// TestDispatchCreateThenUpdatePreservesReference verifies the full
// create-then-update flow for one member.
func TestDispatchCreateThenUpdatePreservesReference(t *testing.T) {
	t.Parallel()

	c, recorder := newTestClient(t)
	mustDispatch(t, c,
		frame("GUILD_CREATE", `{"id":"7","name":"guild","member_count":1}`),
		frame("GUILD_MEMBER_ADD", `{"guild_id":"7","user":{"id":"42","username":"neo"},"nick":"first"}`),
	)

	guild, found := c.Guilds().Get("7")
	if !found {
		t.Fatal("guild 7 not cached")
	}
	created, found := guild.Members.Get("42")
	if !found {
		t.Fatal("member 42 not cached")
	}
	if guild.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", guild.MemberCount)
	}
	if user, found := c.Users().Get("42"); !found || user.Username != "neo" {
		t.Fatalf("user 42 = %+v found = %v", user, found)
	}

	mustDispatch(t, c, frame("GUILD_MEMBER_UPDATE",
		`{"guild_id":"7","user":{"id":"42","username":"neo"},"nick":"second","roles":["7"]}`))

	wantNames := []gateway.EventName{
		gateway.EventGuildCreate,
		gateway.EventGuildMemberAdd,
		gateway.EventGuildMemberUpdate,
	}
	if diff := cmp.Diff(wantNames, recorder.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	update := recorder.last(gateway.EventGuildMemberUpdate)
	patched := mustArg[*model.Member](t, update, 0)
	previous := mustArg[*model.Member](t, update, 1)
	if patched != created {
		t.Fatal("update emitted a different member instance")
	}
	if patched.Nick != "second" || !patched.HasRole("7") {
		t.Fatalf("patched member = %+v", patched)
	}
	if previous == created || previous.Nick != "first" {
		t.Fatalf("previous member = %+v, want pre-update snapshot", previous)
	}
}

// TestReconcilerCheckBuildExclusive verifies build only runs after a check miss.
func TestReconcilerCheckBuildExclusive(t *testing.T) {
	t.Parallel()

	var checks, builds int
	action := Reconciler[*model.User]{
		Check: func(c *Client, frame gateway.Frame) (*model.User, bool) {
			checks++
			return c.Users().Get(frame.Payload.String("id"))
		},
		Build: func(_ *Client, frame gateway.Frame) (*model.User, bool) {
			builds++
			return model.NewUser(frame.Payload), true
		},
		Cache: func(c *Client, _ gateway.Frame, user *model.User) {
			c.Users().Set(user.ID(), user)
		},
		Updated: "userSeenAgain",
		Created: "userSeen",
	}
	c, recorder := newTestClient(t, WithoutBuiltinActions(), WithPieces(Piece{Name: "UserSeen", Action: action}))

	mustDispatch(t, c,
		frame("USER_SEEN", `{"id":"1","username":"a"}`),
		frame("USER_SEEN", `{"id":"1","username":"b"}`),
	)

	if checks != 2 || builds != 1 {
		t.Fatalf("checks = %d builds = %d, want 2 and 1", checks, builds)
	}
	if diff := cmp.Diff([]gateway.EventName{"userSeen", "userSeenAgain"}, recorder.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	user, _ := c.Users().Get("1")
	if user.Username != "b" {
		t.Fatalf("username = %q, want b", user.Username)
	}
}

// TestDispatchUnknownTagIsIgnored verifies unknown tags emit nothing and are counted.
func TestDispatchUnknownTagIsIgnored(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	c, recorder := newTestClient(t, WithMetricsRegisterer(registry))

	mustDispatch(t, c,
		frame("SOMETHING_NEW", `{"id":"1"}`),
		frame("GUILD_CREATE", `{"id":"7"}`),
	)

	if diff := cmp.Diff([]gateway.EventName{gateway.EventGuildCreate}, recorder.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if got := counterValue(t, registry, "gateway_frames_total", map[string]string{
		"tag": "SOMETHING_NEW", "outcome": outcomeUnknown,
	}); got != 1 {
		t.Fatalf("unknown frames = %v, want 1", got)
	}
	if got := counterValue(t, registry, "gateway_frames_total", map[string]string{
		"tag": "GUILD_CREATE", "outcome": outcomeHandled,
	}); got != 1 {
		t.Fatalf("handled frames = %v, want 1", got)
	}
}

// TestDispatchFaultIsolation verifies failing actions become error events
// and dispatch continues.
func TestDispatchFaultIsolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action Action
	}{
		{
			name: "returned error",
			action: ActionFunc(func(context.Context, *Client, gateway.Frame) error {
				return errors.New("broken frame")
			}),
		},
		{
			name: "panicking build",
			action: Reconciler[*model.User]{
				Check: func(*Client, gateway.Frame) (*model.User, bool) {
					return nil, false
				},
				Build: func(*Client, gateway.Frame) (*model.User, bool) {
					panic("build exploded")
				},
				Created: "never",
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			c, recorder := newTestClient(t, WithPieces(Piece{Name: "Broken", Tag: "BROKEN", Action: testCase.action}))
			mustDispatch(t, c,
				gateway.Frame{Tag: "BROKEN", ShardID: 3, Payload: gateway.Payload(`{}`)},
				frame("GUILD_CREATE", `{"id":"7"}`),
			)

			want := []gateway.EventName{gateway.EventError, gateway.EventGuildCreate}
			if diff := cmp.Diff(want, recorder.names()); diff != "" {
				t.Fatalf("events mismatch (-want +got):\n%s", diff)
			}

			errEvent := recorder.last(gateway.EventError)
			var actionErr *gateway.ActionError
			if !errors.As(mustArg[error](t, errEvent, 0), &actionErr) {
				t.Fatalf("error arg = %v, want *ActionError", errEvent.Args[0])
			}
			if actionErr.Tag != "BROKEN" || actionErr.ShardID != 3 || errEvent.ShardID != 3 {
				t.Fatalf("action error = %+v shard = %d", actionErr, errEvent.ShardID)
			}
		})
	}
}

func TestDispatchDropsInvalidFrames(t *testing.T) {
	t.Parallel()

	c, recorder := newTestClient(t)
	mustDispatch(t, c,
		gateway.Frame{Payload: gateway.Payload(`{}`)},
		frame("GUILD_CREATE", `{"id":`),
	)

	if names := recorder.names(); len(names) != 0 {
		t.Fatalf("events = %v, want none", names)
	}
}

func TestRunDrainsFrameSource(t *testing.T) {
	t.Parallel()

	c, recorder := newTestClient(t)
	frames := make(chan gateway.Frame, 2)
	frames <- frame("GUILD_CREATE", `{"id":"7"}`)
	frames <- frame("GUILD_UPDATE", `{"id":"7","name":"renamed"}`)
	close(frames)

	if err := c.Run(context.Background(), gateway.ChannelSource{Frames: frames}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []gateway.EventName{gateway.EventGuildCreate, gateway.EventGuildUpdate}
	if diff := cmp.Diff(want, recorder.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheDisabledStillEmits(t *testing.T) {
	t.Parallel()

	c, recorder := newTestClient(t, WithCacheEnabled(false))
	mustDispatch(t, c,
		frame("GUILD_CREATE", `{"id":"7","members":[{"user":{"id":"1"}}]}`),
		frame("CHANNEL_CREATE", `{"id":"d1","type":1}`),
	)

	want := []gateway.EventName{gateway.EventGuildCreate, gateway.EventChannelCreate}
	if diff := cmp.Diff(want, recorder.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if c.Guilds().Len() != 0 || c.Channels().Len() != 0 || c.Users().Len() != 0 {
		t.Fatalf("stores populated: guilds = %d channels = %d users = %d",
			c.Guilds().Len(), c.Channels().Len(), c.Users().Len())
	}
}

func TestNewRejectsBuiltinChannelKind(t *testing.T) {
	t.Parallel()

	_, err := New(WithChannelKind(model.ChannelGuildText, model.NewGenericChannel))
	if !errors.Is(err, gateway.ErrChannelKindRegistered) {
		t.Fatalf("error = %v, want ErrChannelKindRegistered", err)
	}
}

func TestNewRegistersCustomChannelKind(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, WithChannelKind(model.ChannelGuildForum, model.NewTextChannel))
	mustDispatch(t, c, frame("CHANNEL_CREATE", `{"id":"f1","type":15}`))

	channel, found := c.Channels().Get("f1")
	if !found {
		t.Fatal("forum channel not cached")
	}
	if _, ok := channel.(*model.TextChannel); !ok {
		t.Fatalf("channel = %T, want *model.TextChannel", channel)
	}
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}
