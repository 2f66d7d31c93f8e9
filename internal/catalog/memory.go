package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/certification-service/internal/domain"
)

// MemoryCatalog keeps standards in process. It backs development setups and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items map[string]domain.Standard
}

func NewMemoryCatalog(seed ...domain.Standard) *MemoryCatalog {
	c := &MemoryCatalog{items: make(map[string]domain.Standard, len(seed))}
	for _, s := range seed {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		c.items[s.ID] = s
	}
	return c
}

func (c *MemoryCatalog) Search(_ context.Context, filter Filter) (Page, error) {
	f := filter.Normalize()

	c.mu.RLock()
	var matched []domain.Standard
	for _, s := range c.items {
		if Matches(s, f) {
			matched = append(matched, cloneStandard(s))
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Standard) int {
		if n := strings.Compare(a.Iso, b.Iso); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})

	page := Page{Total: len(matched), Page: f.Page, PageSize: f.PageSize, Items: []domain.Standard{}}
	start := f.Offset()
	if start < len(matched) {
		end := min(start+f.PageSize, len(matched))
		page.Items = matched[start:end]
	}
	return page, nil
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (*domain.Standard, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneStandard(s)
	return &out, nil
}

func (c *MemoryCatalog) GetMany(_ context.Context, ids []string) ([]domain.Standard, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Standard, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.items[id]; ok {
			out = append(out, cloneStandard(s))
		}
	}
	return out, nil
}

func (c *MemoryCatalog) Insert(_ context.Context, standard *domain.Standard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.items {
		if s.Iso == standard.Iso {
			return ErrDuplicateIso
		}
	}
	if standard.ID == "" {
		standard.ID = uuid.NewString()
	}
	c.items[standard.ID] = cloneStandard(*standard)
	return nil
}

func (c *MemoryCatalog) Retire(_ context.Context, iso string) (*domain.Standard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.items {
		if s.Iso == iso {
			s.IsActive = false
			c.items[id] = s
			out := cloneStandard(s)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryCatalog) Ping(context.Context) error { return nil }

func cloneStandard(s domain.Standard) domain.Standard {
	s.ICS = slices.Clone(s.ICS)
	return s
}
