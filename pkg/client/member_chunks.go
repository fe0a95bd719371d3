package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"

	"github.com/google/uuid"
)

// MemberQuery selects the members requested by FetchMembers.
type MemberQuery struct {
	// Query matches usernames by prefix. Empty with Limit 0 requests every member.
	Query string
	// Limit caps the number of returned members. Zero means no cap.
	Limit int
	// UserIDs requests specific members instead of a query.
	UserIDs []string
	// Presences asks for presences alongside members.
	Presences bool
}

// FetchMembers requests guild members over the guild's shard and collects
// the answering chunks.
//
// It returns when the last chunk arrives or Limit members were received, and
// fails with gateway.ErrMemberRequestTimeout when no chunk arrives within the
// idle timeout. Listeners must not call it synchronously: chunks are
// dispatched on the goroutine the listener is blocking.
func (c *Client) FetchMembers(ctx context.Context, guildID string, query MemberQuery) ([]*model.Member, error) {
	guild, found := c.guilds.Get(guildID)
	if !found {
		return nil, fmt.Errorf("fetch members %s: %w", guildID, gateway.ErrUnknownGuild)
	}
	shard, err := c.Shard(guild.ShardID)
	if err != nil {
		return nil, fmt.Errorf("fetch members %s: %w", guildID, err)
	}

	nonce := newNonce()
	collector := c.chunks.open(nonce, query.Limit)
	defer c.chunks.close(nonce)

	request := gateway.RequestGuildMembers{
		GuildID:   guildID,
		Limit:     query.Limit,
		Presences: query.Presences,
		UserIDs:   query.UserIDs,
		Nonce:     nonce,
	}
	if len(query.UserIDs) == 0 {
		text := query.Query
		request.Query = &text
	}
	if err := shard.Send(ctx, gateway.OpRequestGuildMembers, request); err != nil {
		return nil, fmt.Errorf("fetch members %s: %w", guildID, err)
	}

	idle := time.NewTimer(c.chunkIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch members %s: %w", guildID, ctx.Err())
		case <-collector.done:
			return collector.result()
		case <-collector.progress:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(c.chunkIdleTimeout)
		case <-idle.C:
			return nil, fmt.Errorf("fetch members %s: %w", guildID, gateway.ErrMemberRequestTimeout)
		}
	}
}

// newNonce returns a 32 character request nonce.
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// chunkCollectors routes member chunks to pending requests by nonce.
type chunkCollectors struct {
	mu      sync.Mutex
	pending map[string]*chunkCollector
}

func newChunkCollectors() *chunkCollectors {
	return &chunkCollectors{
		pending: make(map[string]*chunkCollector),
	}
}

func (c *chunkCollectors) open(nonce string, limit int) *chunkCollector {
	collector := &chunkCollector{
		limit:    limit,
		members:  make(map[string]*model.Member),
		progress: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[nonce] = collector

	return collector
}

func (c *chunkCollectors) close(nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, nonce)
}

// feed hands one chunk to the collector waiting on info.Nonce and reports
// whether one was waiting.
func (c *chunkCollectors) feed(members []*model.Member, info gateway.ChunkInfo) bool {
	if info.Nonce == "" {
		return false
	}

	c.mu.Lock()
	collector, found := c.pending[info.Nonce]
	c.mu.Unlock()
	if !found {
		return false
	}
	collector.add(members, info)

	return true
}

func (c *chunkCollectors) abortAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for nonce, collector := range c.pending {
		collector.abort()
		delete(c.pending, nonce)
	}
}

// chunkCollector accumulates members for one request.
type chunkCollector struct {
	mu       sync.Mutex
	limit    int
	order    []string
	members  map[string]*model.Member
	finished bool
	aborted  bool
	progress chan struct{}
	done     chan struct{}
}

func (c *chunkCollector) add(members []*model.Member, info gateway.ChunkInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return
	}
	for _, member := range members {
		if _, seen := c.members[member.ID()]; seen {
			continue
		}
		c.members[member.ID()] = member
		c.order = append(c.order, member.ID())
	}

	if info.Last() || (c.limit > 0 && len(c.order) >= c.limit) {
		c.finished = true
		close(c.done)
		return
	}

	select {
	case c.progress <- struct{}{}:
	default:
	}
}

func (c *chunkCollector) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return
	}
	c.finished = true
	c.aborted = true
	close(c.done)
}

func (c *chunkCollector) result() ([]*model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted {
		return nil, fmt.Errorf("member request aborted: %w", gateway.ErrEmitterClosed)
	}

	members := make([]*model.Member, 0, len(c.order))
	for _, id := range c.order {
		members = append(members, c.members[id])
	}

	return members, nil
}
