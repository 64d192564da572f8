// Package migrations holds the versioned sqlite schema. Each version is a goose
// Go migration; versions that reshape offers also expose a pure per-record
// backfill so the same transform can upgrade records read from old backups.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// TargetVersion is the schema version this build reads and writes.
const TargetVersion int64 = 3

type step struct {
	version int64
	up      func(ctx context.Context, tx *sql.Tx) error
	offer   func(OfferRecord) OfferRecord
}

var steps = []step{
	{version: 1, up: upInitial},
	{version: 2, up: upLifecycle, offer: BackfillOfferV2},
	{version: 3, up: upRewardTypes, offer: BackfillOfferV3},
}

func newProvider(db *sql.DB, target int64) (*goose.Provider, error) {
	var ms []*goose.Migration
	for _, s := range steps {
		if s.version > target {
			break
		}
		ms = append(ms, goose.NewGoMigration(s.version, &goose.GoFunc{RunTx: s.up}, nil))
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, nil,
		goose.WithGoMigrations(ms...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return p, nil
}

// Up applies every pending version up to TargetVersion.
func Up(ctx context.Context, db *sql.DB) error {
	return UpTo(ctx, db, TargetVersion)
}

// UpTo applies pending versions up to and including target.
func UpTo(ctx context.Context, db *sql.DB, target int64) error {
	p, err := newProvider(db, target)
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("Schema migrated", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Version reports the schema version recorded in db, 0 for a fresh store.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := newProvider(db, TargetVersion)
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func execAll(ctx context.Context, tx *sql.Tx, queries []string) error {
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec %q: %w", q, err)
		}
	}
	return nil
}
