package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/polyindex/internal/snapshot"
)

// IndexRecord is one stored index.
type IndexRecord struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Attributes string   `json:"attributes"`
	Declaring  string   `json:"declaring,omitempty"`
	Keys       []string `json:"keys"`
	Included   []string `json:"included,omitempty"`
	Values     []string `json:"values,omitempty"`
	Underlying []string `json:"underlying,omitempty"`
	Filter     string   `json:"filter,omitempty"`
	Condition  string   `json:"condition,omitempty"`
}

// TypeRecord is one stored type.
type TypeRecord struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Schema   string `json:"schema,omitempty"`
	Abstract bool   `json:"abstract,omitempty"`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (Build, error) {
	var b Build
	if err := row.Scan(&b.ID, &b.Domain, &b.Hash, &b.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Build{}, ErrNotFound
		}
		return Build{}, err
	}
	return b, nil
}

// LatestBuild returns the build with the highest sequence.
// Returns ErrNotFound if the catalog is empty.
func (c *Catalog) LatestBuild(ctx context.Context) (Build, error) {
	b, err := scanBuild(c.db.QueryRowContext(ctx, `
		SELECT id, domain, model_hash, seq FROM builds
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Build{}, fmt.Errorf("latest build: %w", err)
	}
	return b, err
}

// ReadBuild returns the build with the given id.
// Returns ErrNotFound if it does not exist.
func (c *Catalog) ReadBuild(ctx context.Context, id string) (Build, error) {
	b, err := scanBuild(c.db.QueryRowContext(ctx, `
		SELECT id, domain, model_hash, seq FROM builds WHERE id = ?
	`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Build{}, fmt.Errorf("read build: %w", err)
	}
	return b, err
}

// Builds lists every build, oldest first.
func (c *Catalog) Builds(ctx context.Context) ([]Build, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, domain, model_hash, seq FROM builds
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// ReadSnapshot returns the snapshot a build was written from.
func (c *Catalog) ReadSnapshot(ctx context.Context, buildID string) (*snapshot.Snapshot, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT snapshot FROM builds WHERE id = ?`, buildID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s snapshot.Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return &s, nil
}

// ReadTypes returns the types of a build in model order.
func (c *Catalog) ReadTypes(ctx context.Context, buildID string) ([]TypeRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, kind, schema_name, abstract FROM types
		WHERE build_id = ?
		ORDER BY ordinal ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	types := []TypeRecord{}
	for rows.Next() {
		var t TypeRecord
		if err := rows.Scan(&t.Name, &t.Kind, &t.Schema, &t.Abstract); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate types: %w", err)
	}
	return types, nil
}

// ReadIndexes returns every index of a build, ordered by type then by
// position in the type's index set.
func (c *Catalog) ReadIndexes(ctx context.Context, buildID string) ([]IndexRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT i.type_name, i.name, i.kind, i.attributes, i.declaring,
		       i.columns, i.underlying, i.filter_expr, i.filter_cond
		FROM indexes i
		JOIN types t ON t.build_id = i.build_id AND t.name = i.type_name
		WHERE i.build_id = ?
		ORDER BY t.ordinal ASC, i.ordinal ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	indexes := []IndexRecord{}
	for rows.Next() {
		var (
			r                IndexRecord
			cols, underlying string
		)
		if err := rows.Scan(&r.Type, &r.Name, &r.Kind, &r.Attributes, &r.Declaring,
			&cols, &underlying, &r.Filter, &r.Condition); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		ic, err := unmarshalColumns(cols)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", r.Name, err)
		}
		r.Keys, r.Included, r.Values = ic.Keys, ic.Included, ic.Values
		if r.Underlying, err = unmarshalNames(underlying); err != nil {
			return nil, fmt.Errorf("index %s: %w", r.Name, err)
		}
		indexes = append(indexes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexes: %w", err)
	}
	return indexes, nil
}

// ReadAffected returns the affected index names of one type.
func (c *Catalog) ReadAffected(ctx context.Context, buildID, typeName string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT index_name FROM affected_indexes
		WHERE build_id = ? AND type_name = ?
		ORDER BY ordinal ASC
	`, buildID, typeName)
	if err != nil {
		return nil, fmt.Errorf("query affected indexes: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan affected index: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affected indexes: %w", err)
	}
	return names, nil
}
