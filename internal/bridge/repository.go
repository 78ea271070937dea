package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/brager-bridge/internal/param"
)

// Repository defines descriptor and module-metadata persistence.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// SaveBootstrap atomically replaces the cached descriptors and module
	// metadata with a fresh bootstrap result.
	SaveBootstrap(ctx context.Context, descriptors []param.Descriptor, modules []ModuleMeta) error

	// LoadDescriptors returns the cached descriptors, re-normalized
	// against the current classification rules.
	// Returns ErrNoCachedDescriptors when the cache is empty.
	LoadDescriptors(ctx context.Context) ([]param.Descriptor, error)

	// LoadModules returns the cached module metadata.
	LoadModules(ctx context.Context) ([]ModuleMeta, error)
}

// SQLiteRepository implements Repository using SQLite.
//
// Descriptors are stored whole as JSON payloads keyed by "devid:symbol";
// classification is re-derived on load rather than trusted from disk, so
// a classifier change invalidates nothing.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveBootstrap atomically replaces cached descriptors and module metadata.
func (r *SQLiteRepository) SaveBootstrap(ctx context.Context, descriptors []param.Descriptor, modules []ModuleMeta) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bootstrap save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM descriptors`); err != nil {
		return fmt.Errorf("clearing descriptors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM modules`); err != nil {
		return fmt.Errorf("clearing modules: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	const insertDescriptor = `
		INSERT INTO descriptors (key, devid, symbol, platform, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i := range descriptors {
		descriptor := &descriptors[i]
		payload, err := json.Marshal(descriptor)
		if err != nil {
			return fmt.Errorf("marshalling descriptor %s: %w", descriptor.Key, err)
		}
		_, err = tx.ExecContext(ctx, insertDescriptor,
			descriptor.Key,
			descriptor.DevID,
			descriptor.Symbol,
			string(descriptor.Platform),
			string(payload),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting descriptor %s: %w", descriptor.Key, err)
		}
	}

	const insertModule = `
		INSERT INTO modules (devid, name, title, version, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	for i := range modules {
		module := &modules[i]
		payload, err := json.Marshal(module)
		if err != nil {
			return fmt.Errorf("marshalling module %s: %w", module.DevID, err)
		}
		_, err = tx.ExecContext(ctx, insertModule,
			module.DevID,
			module.Name,
			module.Title,
			module.Version,
			string(payload),
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting module %s: %w", module.DevID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bootstrap save: %w", err)
	}
	return nil
}

// LoadDescriptors returns cached descriptors after re-running the
// exposability filter and classification over them.
func (r *SQLiteRepository) LoadDescriptors(ctx context.Context) ([]param.Descriptor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM descriptors ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying descriptors: %w", err)
	}
	defer rows.Close()

	var cached []param.Descriptor
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning descriptor row: %w", err)
		}
		var descriptor param.Descriptor
		if err := json.Unmarshal([]byte(payload), &descriptor); err != nil {
			return nil, fmt.Errorf("decoding descriptor payload: %w", err)
		}
		cached = append(cached, descriptor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating descriptors: %w", err)
	}

	if len(cached) == 0 {
		return nil, ErrNoCachedDescriptors
	}
	return param.NormalizeCachedDescriptors(cached), nil
}

// LoadModules returns the cached module metadata.
func (r *SQLiteRepository) LoadModules(ctx context.Context) ([]ModuleMeta, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM modules ORDER BY devid`)
	if err != nil {
		return nil, fmt.Errorf("querying modules: %w", err)
	}
	defer rows.Close()

	var modules []ModuleMeta
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning module row: %w", err)
		}
		var module ModuleMeta
		if err := json.Unmarshal([]byte(payload), &module); err != nil {
			return nil, fmt.Errorf("decoding module payload: %w", err)
		}
		modules = append(modules, module)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating modules: %w", err)
	}
	return modules, nil
}
