// Package catalog persists the metadata of imported models in SQLite.
//
// An imported model survives restarts: its id can be used as a LocalFile
// reference and resolves to the recorded storage path.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// SQLite driver (registers "sqlite3" with database/sql).
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"agentcore/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS models (
	id                    TEXT PRIMARY KEY,
	storage_path          TEXT NOT NULL,
	version               TEXT NOT NULL DEFAULT '',
	input_types           TEXT NOT NULL DEFAULT '[]',
	output_types          TEXT NOT NULL DEFAULT '[]',
	size_bytes            INTEGER NOT NULL DEFAULT 0,
	required_memory_bytes INTEGER NOT NULL DEFAULT 0,
	reference             TEXT NOT NULL DEFAULT '',
	updated_at            INTEGER NOT NULL
);`

// Catalog is the imported-model table.
type Catalog struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the catalog database at path.
func Open(path string, log zerolog.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return &Catalog{db: db, log: log.With().Str("component", "catalog").Logger()}, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Put records info, replacing an earlier registration of the same id.
func (c *Catalog) Put(ctx context.Context, info types.LocalModelInfo) error {
	if info.ModelID == "" {
		return errors.New("catalog: empty model id")
	}
	in, err := json.Marshal(info.InputTypes)
	if err != nil {
		return err
	}
	out, err := json.Marshal(info.OutputTypes)
	if err != nil {
		return err
	}
	var ref []byte
	if info.Reference != nil {
		if ref, err = json.Marshal(info.Reference); err != nil {
			return err
		}
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO models (id, storage_path, version, input_types, output_types, size_bytes, required_memory_bytes, reference, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	storage_path = excluded.storage_path,
	version = excluded.version,
	input_types = excluded.input_types,
	output_types = excluded.output_types,
	size_bytes = excluded.size_bytes,
	required_memory_bytes = excluded.required_memory_bytes,
	reference = excluded.reference,
	updated_at = excluded.updated_at`,
		info.ModelID, info.StoragePath, info.Version, string(in), string(out),
		info.SizeBytes, info.RequiredMemoryBytes, string(ref), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("catalog put %s: %w", info.ModelID, err)
	}
	c.log.Debug().Str("model", info.ModelID).Msg("model recorded")
	return nil
}

// Get returns the record for id.
func (c *Catalog) Get(ctx context.Context, id string) (types.LocalModelInfo, bool, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT id, storage_path, version, input_types, output_types, size_bytes, required_memory_bytes, reference
FROM models WHERE id = ?`, id)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LocalModelInfo{}, false, nil
	}
	if err != nil {
		return types.LocalModelInfo{}, false, err
	}
	return info, true, nil
}

// List returns all records ordered by id.
func (c *Catalog) List(ctx context.Context) ([]types.LocalModelInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT id, storage_path, version, input_types, output_types, size_bytes, required_memory_bytes, reference
FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}
	defer rows.Close()
	var out []types.LocalModelInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes id and reports whether a record existed.
func (c *Catalog) Delete(ctx context.Context, id string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("catalog delete %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LookupPath returns the storage path recorded for id.
func (c *Catalog) LookupPath(id string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, ok, err := c.Get(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Str("model", id).Msg("catalog lookup failed")
		return "", false
	}
	return info.StoragePath, ok
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (types.LocalModelInfo, error) {
	var (
		info    types.LocalModelInfo
		in, out string
		ref     string
	)
	if err := s.Scan(&info.ModelID, &info.StoragePath, &info.Version, &in, &out,
		&info.SizeBytes, &info.RequiredMemoryBytes, &ref); err != nil {
		return info, err
	}
	if err := json.Unmarshal([]byte(in), &info.InputTypes); err != nil {
		return info, fmt.Errorf("catalog %s input_types: %w", info.ModelID, err)
	}
	if err := json.Unmarshal([]byte(out), &info.OutputTypes); err != nil {
		return info, fmt.Errorf("catalog %s output_types: %w", info.ModelID, err)
	}
	if ref != "" {
		var r types.ModelReference
		if err := json.Unmarshal([]byte(ref), &r); err != nil {
			return info, fmt.Errorf("catalog %s reference: %w", info.ModelID, err)
		}
		info.Reference = &r
	}
	return info, nil
}
