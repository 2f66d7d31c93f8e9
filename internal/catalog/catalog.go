// Package catalog stores the harvested standards records and answers
// keyword searches over them.
package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/spec-kit/certification-service/internal/domain"
)

var (
	ErrNotFound     = errors.New("standard not found")
	ErrDuplicateIso = errors.New("standard with this Iso already exists")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filter narrows a search. Empty fields match everything.
type Filter struct {
	Keyword            string
	Category           string
	SubCategory        string
	Stage              string
	TechnicalCommittee string
	ICS                []int
	IncludeRetired     bool
	Page               int
	PageSize           int
}

// Normalize clamps paging and lowercases the keyword.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.Keyword = strings.ToLower(strings.TrimSpace(f.Keyword))
	return f
}

// Offset is the number of records skipped before the current page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Page is one window of search results.
type Page struct {
	Items    []domain.Standard `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Catalog is the document search store behind the standards endpoints.
type Catalog interface {
	Search(ctx context.Context, filter Filter) (Page, error)
	Get(ctx context.Context, id string) (*domain.Standard, error)
	// GetMany returns the standards found for ids, in the order requested.
	// Missing ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]domain.Standard, error)
	Insert(ctx context.Context, standard *domain.Standard) error
	// Retire soft-deletes the standard with the given Iso code.
	Retire(ctx context.Context, iso string) (*domain.Standard, error)
	Ping(ctx context.Context) error
}

// Matches applies filter to a single record. f must be normalized.
func Matches(s domain.Standard, f Filter) bool {
	if !f.IncludeRetired && !s.IsActive {
		return false
	}
	if f.Keyword != "" {
		hit := false
		for _, field := range []string{s.Iso, s.Category, s.SubCategory, s.Description} {
			if strings.Contains(strings.ToLower(field), f.Keyword) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.SubCategory != "" && s.SubCategory != f.SubCategory {
		return false
	}
	if f.Stage != "" && s.Stage != f.Stage {
		return false
	}
	if f.TechnicalCommittee != "" && s.TechnicalCommittee != f.TechnicalCommittee {
		return false
	}
	if len(f.ICS) > 0 && !slices.ContainsFunc(f.ICS, func(code int) bool { return slices.Contains(s.ICS, code) }) {
		return false
	}
	return true
}
