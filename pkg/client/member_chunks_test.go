package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

type stubShard struct {
	id       int
	requests chan gateway.RequestGuildMembers
	err      error
}

func newStubShard(id int) *stubShard {
	return &stubShard{
		id:       id,
		requests: make(chan gateway.RequestGuildMembers, 1),
	}
}

func (s *stubShard) ID() int {
	return s.id
}

func (s *stubShard) Send(_ context.Context, op gateway.Opcode, data any) error {
	if op != gateway.OpRequestGuildMembers {
		return fmt.Errorf("unexpected opcode %d", op)
	}
	request, ok := data.(gateway.RequestGuildMembers)
	if !ok {
		return fmt.Errorf("unexpected data %T", data)
	}
	s.requests <- request

	return s.err
}

type fetchResult struct {
	members []*model.Member
	err     error
}

func startFetch(c *Client, query MemberQuery) <-chan fetchResult {
	results := make(chan fetchResult, 1)
	go func() {
		members, err := c.FetchMembers(context.Background(), "7", query)
		results <- fetchResult{members: members, err: err}
	}()

	return results
}

func awaitRequest(t *testing.T, shard *stubShard) gateway.RequestGuildMembers {
	t.Helper()

	select {
	case request := <-shard.requests:
		return request
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for member request")
	}

	return gateway.RequestGuildMembers{}
}

func awaitResult(t *testing.T, results <-chan fetchResult) fetchResult {
	t.Helper()

	select {
	case result := <-results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}

	return fetchResult{}
}

func chunkFrame(nonce string, index int, count int, userIDs ...string) gateway.Frame {
	members := ""
	for idx, userID := range userIDs {
		if idx > 0 {
			members += ","
		}
		members += `{"user":{"id":"` + userID + `"},"roles":[]}`
	}

	return frame("GUILD_MEMBERS_CHUNK", fmt.Sprintf(
		`{"guild_id":"7","nonce":%q,"chunk_index":%d,"chunk_count":%d,"members":[%s]}`,
		nonce, index, count, members,
	))
}

func newFetchClient(t *testing.T, options ...Option) (*Client, *stubShard) {
	t.Helper()

	c, _ := newTestClient(t, options...)
	mustDispatch(t, c, frame("GUILD_CREATE", `{"id":"7","name":"guild"}`))
	shard := newStubShard(0)
	c.AttachShard(shard)

	return c, shard
}

// TestFetchMembersCollectsChunks verifies chunks are joined by nonce until the
// last chunk arrives.
func TestFetchMembersCollectsChunks(t *testing.T) {
	t.Parallel()

	c, shard := newFetchClient(t)
	results := startFetch(c, MemberQuery{})

	request := awaitRequest(t, shard)
	if len(request.Nonce) != 32 {
		t.Fatalf("nonce = %q, want 32 characters", request.Nonce)
	}
	if request.GuildID != "7" || request.Query == nil || *request.Query != "" {
		t.Fatalf("request = %+v", request)
	}

	mustDispatch(t, c,
		chunkFrame("someone-else", 0, 1, "99"),
		chunkFrame(request.Nonce, 0, 2, "1", "2"),
		chunkFrame(request.Nonce, 1, 2, "3"),
	)

	result := awaitResult(t, results)
	if result.err != nil {
		t.Fatalf("fetch failed: %v", result.err)
	}
	ids := make([]string, 0, len(result.members))
	for _, member := range result.members {
		ids = append(ids, member.ID())
	}
	if fmt.Sprint(ids) != "[1 2 3]" {
		t.Fatalf("members = %v, want [1 2 3]", ids)
	}
	guild, _ := c.Guilds().Get("7")
	if guild.Members.Len() != 4 {
		t.Fatalf("cached members = %d, want 4", guild.Members.Len())
	}
}

func TestFetchMembersStopsAtLimit(t *testing.T) {
	t.Parallel()

	c, shard := newFetchClient(t)
	results := startFetch(c, MemberQuery{Query: "a", Limit: 2})

	request := awaitRequest(t, shard)
	if request.Limit != 2 || *request.Query != "a" {
		t.Fatalf("request = %+v", request)
	}
	mustDispatch(t, c, chunkFrame(request.Nonce, 0, 5, "1", "2"))

	result := awaitResult(t, results)
	if result.err != nil || len(result.members) != 2 {
		t.Fatalf("result = %+v, want two members", result)
	}
}

func TestFetchMembersUserIDsOmitQuery(t *testing.T) {
	t.Parallel()

	c, shard := newFetchClient(t)
	results := startFetch(c, MemberQuery{UserIDs: []string{"1"}, Presences: true})

	request := awaitRequest(t, shard)
	if request.Query != nil || !request.Presences || len(request.UserIDs) != 1 {
		t.Fatalf("request = %+v", request)
	}
	mustDispatch(t, c, chunkFrame(request.Nonce, 0, 1, "1"))

	if result := awaitResult(t, results); result.err != nil || len(result.members) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestFetchMembersIdleTimeout(t *testing.T) {
	t.Parallel()

	c, shard := newFetchClient(t, WithMemberChunkIdleTimeout(50*time.Millisecond))
	results := startFetch(c, MemberQuery{})
	awaitRequest(t, shard)

	result := awaitResult(t, results)
	if !errors.Is(result.err, gateway.ErrMemberRequestTimeout) {
		t.Fatalf("error = %v, want ErrMemberRequestTimeout", result.err)
	}
}

func TestFetchMembersPreconditions(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	if _, err := c.FetchMembers(context.Background(), "7", MemberQuery{}); !errors.Is(err, gateway.ErrUnknownGuild) {
		t.Fatalf("error = %v, want ErrUnknownGuild", err)
	}

	mustDispatch(t, c, gateway.Frame{Tag: "GUILD_CREATE", ShardID: 4, Payload: gateway.Payload(`{"id":"7"}`)})
	if _, err := c.FetchMembers(context.Background(), "7", MemberQuery{}); !errors.Is(err, gateway.ErrShardNotFound) {
		t.Fatalf("error = %v, want ErrShardNotFound", err)
	}

	shard := newStubShard(4)
	shard.err = errors.New("socket closed")
	c.AttachShard(shard)
	if _, err := c.FetchMembers(context.Background(), "7", MemberQuery{}); err == nil {
		t.Fatal("send failure not reported")
	}
}

func TestFetchMembersAbortedByClose(t *testing.T) {
	t.Parallel()

	c, shard := newFetchClient(t)
	results := startFetch(c, MemberQuery{})
	awaitRequest(t, shard)

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if result := awaitResult(t, results); result.err == nil {
		t.Fatal("fetch survived client close")
	}
}
