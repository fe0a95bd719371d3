// Package websocket connects one gateway shard over a websocket and turns its
// dispatch packets into frames.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"ex-otogi-gateway/pkg/gateway"

	"github.com/cenkalti/backoff/v4"
	gws "github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

var (
	// ErrNotConnected reports a send attempt without an open session.
	ErrNotConnected = errors.New("shard not connected")
	// ErrAuthenticationFailed reports a token rejected by the gateway.
	ErrAuthenticationFailed = errors.New("gateway authentication failed")
	// ErrSessionRejected reports a close code that forbids reconnecting.
	ErrSessionRejected = errors.New("gateway session rejected")
	// ErrReconnectExhausted reports a reconnect policy that gave up.
	ErrReconnectExhausted = errors.New("gateway reconnect attempts exhausted")

	errReconnectRequested = errors.New("reconnect requested")
	errSessionInvalidated = errors.New("session invalidated")
	errHeartbeatTimeout   = errors.New("heartbeat not acknowledged")
)

// Close codes after which reconnecting cannot succeed.
const (
	closeAuthenticationFailed = 4004
	closeInvalidShard         = 4010
	closeShardingRequired     = 4011
	closeInvalidAPIVersion    = 4012
	closeInvalidIntents       = 4013
	closeDisallowedIntents    = 4014
)

// Config identifies one shard session.
type Config struct {
	// URL is the gateway websocket url, including version and encoding query.
	URL string
	// Token authenticates identify and resume.
	Token string
	// Intents selects the subscribed dispatch groups.
	Intents int
	// ShardID is this connection partition index.
	ShardID int
	// ShardCount is the total partition count.
	ShardCount int
}

// Validate checks shard identity.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("validate shard config: empty url")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("validate shard config url: %w", err)
	}
	if c.Token == "" {
		return fmt.Errorf("validate shard config: empty token")
	}
	if c.ShardCount < 1 {
		return fmt.Errorf("validate shard config: shard count %d must be positive", c.ShardCount)
	}
	if c.ShardID < 0 || c.ShardID >= c.ShardCount {
		return fmt.Errorf("validate shard config: shard id %d outside [0,%d)", c.ShardID, c.ShardCount)
	}

	return nil
}

// Shard is one gateway connection partition.
//
// Consume owns the connection lifecycle; Send may be called from any
// goroutine while a session is open.
type Shard struct {
	identity Config
	cfg      config

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *gws.Conn

	sequence atomic.Int64

	sessionMu sync.Mutex
	sessionID string
	resumeURL string
}

// packet is one outbound gateway packet.
type packet struct {
	Op   gateway.Opcode `json:"op"`
	Data any            `json:"d"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Shard      [2]int             `json:"shard"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// New creates a disconnected shard.
func New(identity Config, options ...Option) (*Shard, error) {
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("new shard: %w", err)
	}

	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	return &Shard{
		identity: identity,
		cfg:      cfg,
	}, nil
}

// ID returns the shard index.
func (s *Shard) ID() int {
	return s.identity.ShardID
}

// Sequence returns the last dispatch sequence seen.
func (s *Shard) Sequence() int64 {
	return s.sequence.Load()
}

// SessionID returns the resumable session id, empty before READY.
func (s *Shard) SessionID() string {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	return s.sessionID
}

// Send writes one packet on the open session.
func (s *Shard) Send(ctx context.Context, op gateway.Opcode, data any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("shard %d send op %d: %w", s.ID(), op, err)
	}

	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("shard %d send op %d: %w", s.ID(), op, ErrNotConnected)
	}

	return s.write(ctx, conn, op, data)
}

func (s *Shard) write(ctx context.Context, conn *gws.Conn, op gateway.Opcode, data any) error {
	deadline := time.Now().Add(s.cfg.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("shard %d set write deadline: %w", s.ID(), err)
	}
	if err := conn.WriteJSON(packet{Op: op, Data: data}); err != nil {
		return fmt.Errorf("shard %d write op %d: %w", s.ID(), op, err)
	}

	return nil
}

// Consume connects and streams dispatch frames into handler until ctx ends,
// a fatal close code arrives, the reconnect policy gives up, or handler fails.
func (s *Shard) Consume(ctx context.Context, handler gateway.FrameHandler) error {
	if handler == nil {
		return fmt.Errorf("shard %d consume: nil handler", s.ID())
	}

	policy := backoff.WithContext(s.cfg.newBackoff(), ctx)
	for {
		established, err := s.runSession(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if isFatal(err) {
			return fmt.Errorf("shard %d session: %w", s.ID(), err)
		}
		if established {
			policy.Reset()
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("shard %d: %w: %w", s.ID(), ErrReconnectExhausted, err)
		}
		s.cfg.logger.WarnContext(ctx, "gateway session ended",
			"shard_id", s.ID(),
			"retry_in", delay,
			"resumable", s.resumable(),
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// handlerError marks a frame handler failure so Consume stops.
type handlerError struct {
	err error
}

func (e *handlerError) Error() string {
	return fmt.Sprintf("frame handler: %v", e.err)
}

func (e *handlerError) Unwrap() error {
	return e.err
}

func isFatal(err error) bool {
	var handlerErr *handlerError
	return errors.As(err, &handlerErr) ||
		errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrSessionRejected)
}

// runSession runs one connection until it fails. established reports whether
// the session got past the handshake.
func (s *Shard) runSession(ctx context.Context, handler gateway.FrameHandler) (established bool, err error) {
	target, err := s.dialURL()
	if err != nil {
		return false, err
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, s.cfg.handshakeTimeout)
	conn, _, err := s.cfg.dialer.DialContext(dialCtx, target, nil)
	cancelDial()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", target, err)
	}

	sessionCtx, cancelSession := context.WithCancelCause(ctx)
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		<-sessionCtx.Done()
		_ = conn.Close()
	}()
	defer func() {
		s.setConn(nil)
		cancelSession(nil)
		workers.Wait()
		if cause := context.Cause(sessionCtx); err != nil && cause != nil && !errors.Is(cause, context.Canceled) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
	}()

	interval, err := s.awaitHello(conn)
	if err != nil {
		return false, err
	}

	s.setConn(conn)
	acked := &atomic.Bool{}
	acked.Store(true)
	workers.Add(1)
	go func() {
		defer workers.Done()
		s.heartbeat(sessionCtx, conn, interval, acked, cancelSession)
	}()

	if err := s.greet(sessionCtx, conn); err != nil {
		return false, err
	}
	s.cfg.logger.DebugContext(ctx, "gateway session opened",
		"shard_id", s.ID(),
		"heartbeat_interval", interval,
	)

	for {
		_, message, readErr := conn.ReadMessage()
		if readErr != nil {
			return true, classifyReadError(readErr)
		}
		if err := s.handlePacket(sessionCtx, conn, message, acked, handler); err != nil {
			return true, err
		}
	}
}

func (s *Shard) dialURL() (string, error) {
	s.sessionMu.Lock()
	resumeURL := s.resumeURL
	resumable := s.sessionID != ""
	s.sessionMu.Unlock()

	if !resumable || resumeURL == "" {
		return s.identity.URL, nil
	}

	base, err := url.Parse(s.identity.URL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	resume, err := url.Parse(resumeURL)
	if err != nil {
		return "", fmt.Errorf("parse resume url: %w", err)
	}
	if resume.RawQuery == "" {
		resume.RawQuery = base.RawQuery
	}

	return resume.String(), nil
}

func (s *Shard) awaitHello(conn *gws.Conn) (time.Duration, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.handshakeTimeout)); err != nil {
		return 0, fmt.Errorf("set hello deadline: %w", err)
	}
	_, message, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read hello: %w", classifyReadError(err))
	}
	if op := gateway.Opcode(gjson.GetBytes(message, "op").Int()); op != gateway.OpHello {
		return 0, fmt.Errorf("read hello: unexpected op %d", op)
	}
	millis := gjson.GetBytes(message, "d.heartbeat_interval").Int()
	if millis <= 0 {
		return 0, fmt.Errorf("read hello: invalid heartbeat interval %d", millis)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return 0, fmt.Errorf("clear hello deadline: %w", err)
	}

	return time.Duration(millis) * time.Millisecond, nil
}

// greet resumes a known session or identifies a new one.
func (s *Shard) greet(ctx context.Context, conn *gws.Conn) error {
	s.sessionMu.Lock()
	sessionID := s.sessionID
	s.sessionMu.Unlock()

	if sessionID != "" {
		return s.write(ctx, conn, gateway.OpResume, resumeData{
			Token:     s.identity.Token,
			SessionID: sessionID,
			Sequence:  s.sequence.Load(),
		})
	}

	return s.write(ctx, conn, gateway.OpIdentify, identifyData{
		Token:   s.identity.Token,
		Intents: s.identity.Intents,
		Shard:   [2]int{s.identity.ShardID, s.identity.ShardCount},
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: s.cfg.clientName,
			Device:  s.cfg.clientName,
		},
	})
}

func (s *Shard) handlePacket(
	ctx context.Context,
	conn *gws.Conn,
	message []byte,
	acked *atomic.Bool,
	handler gateway.FrameHandler,
) error {
	fields := gjson.GetManyBytes(message, "op", "d", "s", "t")
	op := gateway.Opcode(fields[0].Int())

	switch op {
	case gateway.OpDispatch:
		return s.dispatch(ctx, fields[3].String(), fields[2], fields[1], handler)
	case gateway.OpHeartbeat:
		return s.write(ctx, conn, gateway.OpHeartbeat, s.heartbeatData())
	case gateway.OpHeartbeatAck:
		acked.Store(true)
		return nil
	case gateway.OpReconnect:
		return errReconnectRequested
	case gateway.OpInvalidSession:
		if !fields[1].Bool() {
			s.resetSession()
		}
		return errSessionInvalidated
	default:
		s.cfg.logger.DebugContext(ctx, "gateway packet ignored", "shard_id", s.ID(), "op", op)
		return nil
	}
}

func (s *Shard) dispatch(
	ctx context.Context,
	tag string,
	sequence gjson.Result,
	data gjson.Result,
	handler gateway.FrameHandler,
) error {
	if sequence.Exists() && sequence.Type == gjson.Number {
		s.sequence.Store(sequence.Int())
	}

	switch tag {
	case "READY":
		s.sessionMu.Lock()
		s.sessionID = data.Get("session_id").String()
		s.resumeURL = data.Get("resume_gateway_url").String()
		s.sessionMu.Unlock()
	case "RESUMED":
		s.cfg.logger.InfoContext(ctx, "gateway session resumed",
			"shard_id", s.ID(),
			"sequence", s.sequence.Load(),
		)
	}

	frame := gateway.Frame{
		Tag:      tag,
		ShardID:  s.ID(),
		Sequence: s.sequence.Load(),
		Payload:  gateway.Payload(data.Raw),
	}
	if err := handler(ctx, frame); err != nil {
		return &handlerError{err: err}
	}

	return nil
}

// heartbeat beats every interval and cancels the session when the previous
// beat was never acknowledged.
func (s *Shard) heartbeat(
	ctx context.Context,
	conn *gws.Conn,
	interval time.Duration,
	acked *atomic.Bool,
	fail context.CancelCauseFunc,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !acked.Swap(false) {
			fail(errHeartbeatTimeout)
			return
		}
		if err := s.write(ctx, conn, gateway.OpHeartbeat, s.heartbeatData()); err != nil {
			fail(err)
			return
		}
	}
}

func (s *Shard) heartbeatData() any {
	sequence := s.sequence.Load()
	if sequence == 0 {
		return nil
	}

	return sequence
}

func (s *Shard) setConn(conn *gws.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.conn = conn
}

func (s *Shard) resumable() bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	return s.sessionID != ""
}

func (s *Shard) resetSession() {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	s.sessionID = ""
	s.resumeURL = ""
	s.sequence.Store(0)
}

func classifyReadError(err error) error {
	switch {
	case gws.IsCloseError(err, closeAuthenticationFailed):
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	case gws.IsCloseError(err,
		closeInvalidShard,
		closeShardingRequired,
		closeInvalidAPIVersion,
		closeInvalidIntents,
		closeDisallowedIntents,
	):
		return fmt.Errorf("%w: %w", ErrSessionRejected, err)
	default:
		return err
	}
}
