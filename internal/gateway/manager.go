package gateway

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/metrics"
)

const (
	replayBufferSize = 100
	authorizeTimeout = 5 * time.Second
)

// Manager tracks admin connections and which account pages they watch.
type Manager struct {
	mu            sync.RWMutex
	connections   map[int64]*Connection    // viewer accountID → connection
	subscriptions map[int64]map[int64]bool // watched accountID → set of viewer IDs
	sessions      map[string]*Connection   // sessionID → connection

	// Ring buffer per watched account for session resume replay.
	replayMu     sync.RWMutex
	replayBuffer map[int64]*ringBuffer
	sequence     atomic.Int64

	tokens  *auth.TokenService
	authz   Authorizer
	metrics *metrics.Metrics
}

// NewManager creates a new gateway Manager. metrics may be nil.
func NewManager(tokens *auth.TokenService, authz Authorizer, m *metrics.Metrics) *Manager {
	return &Manager{
		connections:   make(map[int64]*Connection),
		subscriptions: make(map[int64]map[int64]bool),
		sessions:      make(map[string]*Connection),
		replayBuffer:  make(map[int64]*ringBuffer),
		tokens:        tokens,
		authz:         authz,
		metrics:       m,
	}
}

// register adds a connection to the manager. A session id held by another
// account is replaced with a fresh one.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, ok := m.sessions[c.SessionID]; ok && held.AccountID != c.AccountID {
		slog.Warn("resume with foreign session id", "accountID", c.AccountID)
		c.SessionID = uuid.NewString()
	}

	// Disconnect existing connection for this viewer.
	if old, ok := m.connections[c.AccountID]; ok {
		old.SendPayload(GatewayPayload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID)
	} else if m.metrics != nil {
		m.metrics.GatewayConnected()
	}

	m.connections[c.AccountID] = c
	m.sessions[c.SessionID] = c
}

// unregister removes a connection from the manager and cleans up subscriptions.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.AccountID]; ok && existing == c {
		delete(m.connections, c.AccountID)

		for accountID, viewers := range m.subscriptions {
			delete(viewers, c.AccountID)
			if len(viewers) == 0 {
				delete(m.subscriptions, accountID)
			}
		}

		if m.metrics != nil {
			m.metrics.GatewayDisconnected()
		}
	}

	if held, ok := m.sessions[c.SessionID]; ok && held == c {
		delete(m.sessions, c.SessionID)
	}
}

// Subscribe adds a viewer to an account's ban events.
func (m *Manager) Subscribe(viewerID, accountID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[accountID] == nil {
		m.subscriptions[accountID] = make(map[int64]bool)
	}
	m.subscriptions[accountID][viewerID] = true
}

// Unsubscribe removes a viewer from an account's ban events.
func (m *Manager) Unsubscribe(viewerID, accountID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if viewers, ok := m.subscriptions[accountID]; ok {
		delete(viewers, viewerID)
		if len(viewers) == 0 {
			delete(m.subscriptions, accountID)
		}
	}
}

// DispatchToAccount sends a dispatch event to every viewer watching accountID.
func (m *Manager) DispatchToAccount(accountID int64, event string, data interface{}) {
	seq := m.sequence.Add(1)

	m.mu.RLock()
	viewers := m.subscriptions[accountID]
	conns := make([]*Connection, 0, len(viewers))
	for viewerID := range viewers {
		if c, ok := m.connections[viewerID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.sendSequenced(seq, event, data)
	}

	m.storeReplayEvent(accountID, sequencedEvent{Sequence: seq, Event: Event{Name: event, Data: data}})
}

// authorize asks the Authorizer whether the connection may watch accountID.
func (m *Manager) authorize(c *Connection, accountID int64) bool {
	if m.authz == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()

	ok, err := m.authz.CanViewBans(ctx, c.AccountID, accountID)
	if err != nil {
		slog.Error("failed to authorize subscription", "accountID", c.AccountID, "target", accountID, "error", err)
		return false
	}
	return ok
}

// handleIdentify processes an IDENTIFY payload from a client.
func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Error("invalid identify data", "error", err)
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(identify.Token)
	if err != nil {
		slog.Warn("invalid token in identify", "error", err)
		c.Close()
		return
	}

	c.AccountID = claims.AccountID
	c.SessionID = uuid.NewString()

	m.register(c)

	c.SendEvent(EventReady, ReadyData{
		SessionID: c.SessionID,
		AccountID: c.AccountID,
	})
}

// handleSubscribe processes a SUBSCRIBE payload. Viewers may only watch
// accounts whose bans they are allowed to see.
func (m *Manager) handleSubscribe(c *Connection, data json.RawMessage) {
	if c.AccountID == 0 {
		slog.Warn("subscribe before identify")
		c.Close()
		return
	}

	var sub SubscribeData
	if err := json.Unmarshal(data, &sub); err != nil || sub.AccountID <= 0 {
		slog.Warn("invalid subscribe data", "accountID", c.AccountID, "error", err)
		return
	}

	if !m.authorize(c, sub.AccountID) {
		c.SendEvent(EventSubscribeDenied, SubscriptionData{AccountID: sub.AccountID})
		return
	}

	m.Subscribe(c.AccountID, sub.AccountID)
	c.SendEvent(EventSubscribed, SubscriptionData{AccountID: sub.AccountID})
}

func (m *Manager) handleUnsubscribe(c *Connection, data json.RawMessage) {
	if c.AccountID == 0 {
		return
	}
	var sub SubscribeData
	if err := json.Unmarshal(data, &sub); err != nil {
		return
	}
	m.Unsubscribe(c.AccountID, sub.AccountID)
}

// handleResume re-authorizes the watched accounts and replays missed events.
func (m *Manager) handleResume(c *Connection, data json.RawMessage) {
	var resume ResumeData
	if err := json.Unmarshal(data, &resume); err != nil {
		slog.Error("invalid resume data", "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(resume.Token)
	if err != nil {
		slog.Warn("invalid token in resume", "error", err)
		c.Close()
		return
	}

	c.AccountID = claims.AccountID
	c.SessionID = resume.SessionID
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}

	// register may swap in a fresh session id.
	m.register(c)

	var missed []sequencedEvent
	for _, raw := range resume.Accounts {
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if !m.authorize(c, accountID) {
			c.SendEvent(EventSubscribeDenied, SubscriptionData{AccountID: accountID})
			continue
		}
		m.Subscribe(c.AccountID, accountID)

		m.replayMu.RLock()
		if rb, ok := m.replayBuffer[accountID]; ok {
			missed = append(missed, rb.since(resume.Sequence)...)
		}
		m.replayMu.RUnlock()
	}

	slices.SortFunc(missed, func(a, b sequencedEvent) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	for _, ev := range missed {
		c.sendSequenced(ev.Sequence, ev.Name, ev.Data)
	}

	c.SendEvent(EventResumed, ReadyData{SessionID: c.SessionID, AccountID: c.AccountID})
}

// storeReplayEvent adds an event to the account's replay ring buffer.
func (m *Manager) storeReplayEvent(accountID int64, event sequencedEvent) {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()

	rb, ok := m.replayBuffer[accountID]
	if !ok {
		rb = newRingBuffer(replayBufferSize)
		m.replayBuffer[accountID] = rb
	}
	rb.add(event)
}

// sequencedEvent pairs an event with its manager-wide sequence number.
type sequencedEvent struct {
	Sequence int64
	Event
}

// ringBuffer is a fixed-size circular buffer for replay events.
type ringBuffer struct {
	events []sequencedEvent
	size   int
	pos    int
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(event sequencedEvent) {
	rb.events[rb.pos] = event
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns all events with sequence > afterSeq, oldest first.
func (rb *ringBuffer) since(afterSeq int64) []sequencedEvent {
	var result []sequencedEvent
	count := rb.size
	if !rb.full {
		count = rb.pos
	}

	start := 0
	if rb.full {
		start = rb.pos
	}

	for i := 0; i < count; i++ {
		idx := (start + i) % rb.size
		if rb.events[idx].Sequence > afterSeq {
			result = append(result, rb.events[idx])
		}
	}
	return result
}
