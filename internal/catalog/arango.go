package catalog

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
)

// Records written by the crawler may lack is_active, so it defaults to true.
const projectStandard = `MERGE({ is_active: true }, UNSET(s, "_id", "_key", "_rev"), { id: s._key })`

const searchQuery = `
LET matches = (
    FOR s IN @@col
        FILTER @includeRetired OR s.is_active != false
        FILTER @keyword == "" OR CONTAINS(LOWER(s.Iso), @keyword) OR CONTAINS(LOWER(s.Category), @keyword)
            OR CONTAINS(LOWER(s.SubCategory), @keyword) OR CONTAINS(LOWER(s.description), @keyword)
        FILTER @category == "" OR s.Category == @category
        FILTER @subCategory == "" OR s.SubCategory == @subCategory
        FILTER @stage == "" OR s.stage == @stage
        FILTER @committee == "" OR s.technical_committee == @committee
        FILTER LENGTH(@ics) == 0 OR LENGTH(INTERSECTION(s.ics || [], @ics)) > 0
        RETURN s
)
RETURN {
    total: LENGTH(matches),
    items: (FOR s IN matches SORT s.Iso, s._key LIMIT @offset, @count RETURN ` + projectStandard + `)
}`

// ArangoCatalog queries the standards collection with AQL.
type ArangoCatalog struct {
	db         arangodb.Database
	collection string
	logger     *zap.Logger
}

func NewArangoCatalog(db arangodb.Database, collection string, logger *zap.Logger) *ArangoCatalog {
	return &ArangoCatalog{db: db, collection: collection, logger: logger}
}

func (c *ArangoCatalog) Search(ctx context.Context, filter Filter) (Page, error) {
	f := filter.Normalize()
	ics := f.ICS
	if ics == nil {
		ics = []int{}
	}

	var result struct {
		Total int               `json:"total"`
		Items []domain.Standard `json:"items"`
	}
	found, err := c.queryOne(ctx, searchQuery, map[string]any{
		"@col":           c.collection,
		"includeRetired": f.IncludeRetired,
		"keyword":        f.Keyword,
		"category":       f.Category,
		"subCategory":    f.SubCategory,
		"stage":          f.Stage,
		"committee":      f.TechnicalCommittee,
		"ics":            ics,
		"offset":         f.Offset(),
		"count":          f.PageSize,
	}, &result)
	if err != nil {
		return Page{}, err
	}

	page := Page{Page: f.Page, PageSize: f.PageSize, Items: []domain.Standard{}}
	if found {
		page.Total = result.Total
		if result.Items != nil {
			page.Items = result.Items
		}
	}
	return page, nil
}

func (c *ArangoCatalog) Get(ctx context.Context, id string) (*domain.Standard, error) {
	var s domain.Standard
	found, err := c.queryOne(ctx,
		`FOR s IN @@col FILTER s._key == @id LIMIT 1 RETURN `+projectStandard,
		map[string]any{"@col": c.collection, "id": id}, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (c *ArangoCatalog) GetMany(ctx context.Context, ids []string) ([]domain.Standard, error) {
	if len(ids) == 0 {
		return []domain.Standard{}, nil
	}
	cursor, err := c.db.Query(ctx,
		`FOR id IN @ids FOR s IN @@col FILTER s._key == id RETURN `+projectStandard,
		&arangodb.QueryOptions{BindVars: map[string]any{"@col": c.collection, "ids": ids}})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	out := make([]domain.Standard, 0, len(ids))
	for cursor.HasMore() {
		var s domain.Standard
		if _, err := cursor.ReadDocument(ctx, &s); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *ArangoCatalog) Insert(ctx context.Context, standard *domain.Standard) error {
	if standard.ID == "" {
		standard.ID = uuid.NewString()
	}
	doc := *standard
	doc.ID = ""

	var created domain.Standard
	found, err := c.queryOne(ctx, `
        LET existing = FIRST(FOR s IN @@col FILTER s.Iso == @iso LIMIT 1 RETURN 1)
        FILTER existing == null
        INSERT MERGE(UNSET(@doc, "id"), { _key: @key }) INTO @@col
        LET s = NEW
        RETURN `+projectStandard,
		map[string]any{"@col": c.collection, "iso": standard.Iso, "doc": doc, "key": standard.ID}, &created)
	if err != nil {
		return err
	}
	if !found {
		return ErrDuplicateIso
	}
	*standard = created
	c.logger.Info("standard inserted", zap.String("iso", standard.Iso), zap.String("id", standard.ID))
	return nil
}

func (c *ArangoCatalog) Retire(ctx context.Context, iso string) (*domain.Standard, error) {
	var s domain.Standard
	found, err := c.queryOne(ctx, `
        FOR doc IN @@col
            FILTER doc.Iso == @iso
            LIMIT 1
            UPDATE doc WITH { is_active: false } IN @@col
            LET s = NEW
            RETURN `+projectStandard,
		map[string]any{"@col": c.collection, "iso": iso}, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (c *ArangoCatalog) Ping(ctx context.Context) error {
	_, err := c.db.CollectionExists(ctx, c.collection)
	return err
}

// queryOne runs query and decodes the first result into out.
func (c *ArangoCatalog) queryOne(ctx context.Context, query string, bindVars map[string]any, out any) (bool, error) {
	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return false, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return false, nil
	}
	if _, err := cursor.ReadDocument(ctx, out); err != nil {
		return false, fmt.Errorf("read document: %w", err)
	}
	return true, nil
}
