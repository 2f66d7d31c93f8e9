// Package chat holds the collaborators of the standards assistant: the
// conversation history cache, the language model client and session ids.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the remembered state of a conversation. Only OwnerID may
// continue it.
type Session struct {
	OwnerID string `json:"owner_id"`
	Iso     string `json:"iso,omitempty"`
	Turns   []Turn `json:"turns"`
}

// Trim keeps at most the last limit turns.
func (s *Session) Trim(limit int) {
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-limit:]...)
	}
}

// History is a TTL-bounded cache of sessions keyed by session id.
type History interface {
	// Load returns the session or found=false when it is absent or expired.
	Load(ctx context.Context, sessionID string) (session Session, found bool, err error)
	Save(ctx context.Context, sessionID string, session Session) error
}

// RedisHistory keeps each session as a JSON value under chat:<session_id>.
type RedisHistory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisHistory(client *redis.Client, prefix string, ttl time.Duration) *RedisHistory {
	return &RedisHistory{client: client, prefix: prefix, ttl: ttl}
}

// Key is the Redis key holding sessionID.
func (h *RedisHistory) Key(sessionID string) string {
	return h.prefix + "chat:" + sessionID
}

func (h *RedisHistory) Load(ctx context.Context, sessionID string) (Session, bool, error) {
	raw, err := h.client.Get(ctx, h.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (h *RedisHistory) Save(ctx context.Context, sessionID string, session Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return h.client.Set(ctx, h.Key(sessionID), raw, h.ttl).Err()
}

// MemoryHistory is the in-process History used without Redis.
type MemoryHistory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemoryHistory(ttl time.Duration, now func() time.Time) *MemoryHistory {
	if now == nil {
		now = time.Now
	}
	return &MemoryHistory{ttl: ttl, now: now, entries: map[string]memoryEntry{}}
}

func (h *MemoryHistory) Load(_ context.Context, sessionID string) (Session, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[sessionID]
	if !ok {
		return Session{}, false, nil
	}
	if h.ttl > 0 && !h.now().Before(e.expiresAt) {
		delete(h.entries, sessionID)
		return Session{}, false, nil
	}
	s := e.session
	s.Turns = append([]Turn(nil), s.Turns...)
	return s, true, nil
}

func (h *MemoryHistory) Save(_ context.Context, sessionID string, session Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	session.Turns = append([]Turn(nil), session.Turns...)
	h.entries[sessionID] = memoryEntry{session: session, expiresAt: h.now().Add(h.ttl)}
	return nil
}

// SessionIDs hands out session ids: a time-ordered snowflake prefix followed
// by 122 random bits, so a neighbouring id cannot be guessed.
type SessionIDs struct {
	node *snowflake.Node
}

func NewSessionIDs(nodeID int64) (*SessionIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &SessionIDs{node: node}, nil
}

func (g *SessionIDs) New() string {
	return g.node.Generate().Base36() + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
