// Package memstore is an in-process repository.Store used when no Postgres DSN
// is configured and by service tests.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/certification-service/internal/repository"
)

// Store keeps every table behind one mutex. Transactions work on a copy of the
// tables and publish it on success, so a failed fn leaves no trace.
type Store struct {
	mu   *sync.Mutex
	data *state
	now  func() time.Time
	inTx bool
}

// New builds an empty store. A nil clock falls back to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{mu: &sync.Mutex{}, data: newState(), now: now}
}

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Organizations() repository.OrganizationRepository {
	return &organizationRepo{s}
}
func (s *Store) CertificationBodies() repository.CertificationBodyRepository {
	return &certificationBodyRepo{s}
}
func (s *Store) Invitations() repository.InvitationRepository { return &invitationRepo{s} }
func (s *Store) CreationRequests() repository.CreationRequestRepository {
	return &creationRequestRepo{s}
}
func (s *Store) AuditRequests() repository.AuditRequestRepository { return &auditRequestRepo{s} }
func (s *Store) Audits() repository.AuditRepository { return &auditRepo{s} }
func (s *Store) Certifications() repository.CertificationRepository {
	return &certificationRepo{s}
}
func (s *Store) RevokedTokens() repository.RevokedTokenRepository { return &revokedTokenRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.data.clone()
	tx := &Store{mu: s.mu, data: working, now: s.now, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// read runs fn with the tables locked unless already inside a transaction.
func (s *Store) read(fn func(d *state)) {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// table holds rows by id plus their insertion order.
type table[T any] struct {
	rows map[string]T
	seq  map[string]int64
}

func newTable[T any]() table[T] {
	return table[T]{rows: map[string]T{}, seq: map[string]int64{}}
}

func (t table[T]) clone(cp func(T) T) table[T] {
	out := table[T]{rows: make(map[string]T, len(t.rows)), seq: make(map[string]int64, len(t.seq))}
	for id, row := range t.rows {
		out.rows[id] = cp(row)
		out.seq[id] = t.seq[id]
	}
	return out
}

func (t table[T]) get(id string, cp func(T) T) (*T, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cp(row)
	return &out, nil
}

func (t table[T]) find(match func(T) bool, cp func(T) T) (*T, error) {
	for _, id := range t.ordered(false) {
		if row := t.rows[id]; match(row) {
			out := cp(row)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t table[T]) ordered(desc bool) []string {
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if desc {
			return int(t.seq[b] - t.seq[a])
		}
		return int(t.seq[a] - t.seq[b])
	})
	return ids
}

func (t table[T]) list(match func(T) bool, desc bool, limit, offset int, cp func(T) T) []T {
	limit, offset = repository.NormalizePage(limit, offset)
	var out []T
	skipped := 0
	for _, id := range t.ordered(desc) {
		row := t.rows[id]
		if match != nil && !match(row) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, cp(row))
	}
	return out
}

func (t table[T]) exists(match func(T) bool) bool {
	for _, row := range t.rows {
		if match(row) {
			return true
		}
	}
	return false
}
