package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/polyindex/internal/snapshot"
)

// Build identifies one stored build.
type Build struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Hash   string `json:"hash"`
	Seq    int64  `json:"seq"`
}

// WriteBuild stores a rendered model. A snapshot whose hash is already
// stored is not written again: the existing build is returned with
// inserted=false.
func (c *Catalog) WriteBuild(ctx context.Context, s *snapshot.Snapshot) (b Build, inserted bool, err error) {
	data, err := snapshot.MarshalCanonical(s)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: %w", err)
	}
	hash, err := s.Hash()
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanBuild(tx.QueryRowContext(ctx, `
		SELECT id, domain, model_hash, seq FROM builds WHERE model_hash = ?
	`, hash))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Build{}, false, fmt.Errorf("write build: select existing: %w", err)
	}

	b = Build{ID: c.ids.Generate(), Domain: s.Domain, Hash: hash, Seq: c.clock.Next()}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO builds (id, domain, model_hash, seq, snapshot)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Domain, b.Hash, b.Seq, string(data)); err != nil {
		return Build{}, false, fmt.Errorf("write build: insert build: %w", err)
	}

	for i, t := range s.Types {
		if err := writeType(ctx, tx, b.ID, i, t); err != nil {
			return Build{}, false, fmt.Errorf("write build: type %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Build{}, false, fmt.Errorf("write build: commit: %w", err)
	}
	return b, true, nil
}

func writeType(ctx context.Context, tx *sql.Tx, buildID string, ordinal int, t snapshot.Type) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO types (build_id, ordinal, name, kind, schema_name, abstract)
		VALUES (?, ?, ?, ?, ?, ?)
	`, buildID, ordinal, t.Name, t.Kind, t.Schema, t.Abstract); err != nil {
		return fmt.Errorf("insert type: %w", err)
	}

	for i, ix := range t.Indexes {
		cols, err := marshalColumns(ix)
		if err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		underlying, err := marshalNames(ix.Underlying)
		if err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		var expr, cond string
		if ix.Filter != nil {
			expr, cond = ix.Filter.Expression, ix.Filter.Condition
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO indexes
			(build_id, type_name, ordinal, name, kind, attributes, declaring, columns, underlying, filter_expr, filter_cond)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, buildID, t.Name, i, ix.Name, ix.Kind, ix.Attributes, ix.Declaring, cols, underlying, expr, cond); err != nil {
			return fmt.Errorf("insert index %s: %w", ix.Name, err)
		}
	}

	for i, name := range t.Affected {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO affected_indexes (build_id, type_name, ordinal, index_name)
			VALUES (?, ?, ?, ?)
		`, buildID, t.Name, i, name); err != nil {
			return fmt.Errorf("insert affected index %s: %w", name, err)
		}
	}
	return nil
}
