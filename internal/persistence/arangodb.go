package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/config"
)

// Arango owns the document-store client for the standards catalog. A nil DB
// means no Arango URL was configured.
type Arango struct {
	Client     arangodb.Client
	DB         arangodb.Database
	Collection string
}

// NewArango connects to ArangoDB and makes sure the catalog database and
// collection exist.
func NewArango(ctx context.Context, cfg config.ArangoConfig, logger *zap.Logger) (*Arango, error) {
	if cfg.URL == "" {
		logger.Warn("ARANGO_URL not provided; using the in-memory standards catalog")
		return &Arango{}, nil
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))
	if err := conn.SetAuthentication(connection.NewBasicAuth(cfg.Username, cfg.Password)); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}
	client := arangodb.NewClient(conn)

	exists, err := client.DatabaseExists(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("check database exists: %w", err)
	}
	if !exists {
		if _, err := client.CreateDatabase(ctx, cfg.Database, nil); err != nil {
			return nil, fmt.Errorf("create database: %w", err)
		}
		logger.Info("arangodb database created", zap.String("database", cfg.Database))
	}

	db, err := client.GetDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}

	colExists, err := db.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("check collection %s exists: %w", cfg.Collection, err)
	}
	if !colExists {
		colType := arangodb.CollectionTypeDocument
		if _, err := db.CreateCollectionV2(ctx, cfg.Collection, &arangodb.CreateCollectionPropertiesV2{Type: &colType}); err != nil {
			return nil, fmt.Errorf("create collection %s: %w", cfg.Collection, err)
		}
		logger.Info("arangodb collection created", zap.String("collection", cfg.Collection))
	}

	logger.Info("connected to arangodb", zap.String("database", cfg.Database))
	return &Arango{Client: client, DB: db, Collection: cfg.Collection}, nil
}

// Enabled reports whether a database handle exists.
func (a *Arango) Enabled() bool {
	return a != nil && a.DB != nil
}

// Ping asks the server for its version.
func (a *Arango) Ping(ctx context.Context) error {
	if !a.Enabled() {
		return errors.New("arangodb not configured")
	}
	_, err := a.Client.Version(ctx)
	return err
}
