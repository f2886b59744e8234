package tenant

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// GuardedDB routes sqlx calls through the SQL guard
type GuardedDB struct {
	db    *sqlx.DB
	guard *SQLGuard
}

// NewGuardedDB wraps db
func NewGuardedDB(db *sqlx.DB, guard *SQLGuard) *GuardedDB {
	return &GuardedDB{db: db, guard: guard}
}

// Select runs a query into dest after the guard check
func (g *GuardedDB) Select(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.guard.Check(ctx, query); err != nil {
		return err
	}
	return g.db.SelectContext(ctx, dest, query, args...)
}

// Get runs a single-row query into dest after the guard check
func (g *GuardedDB) Get(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.guard.Check(ctx, query); err != nil {
		return err
	}
	return g.db.GetContext(ctx, dest, query, args...)
}

// Exec runs a statement after the guard check
func (g *GuardedDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := g.guard.Check(ctx, query); err != nil {
		return nil, err
	}
	return g.db.ExecContext(ctx, query, args...)
}

// Rebind converts ? placeholders to the driver's bindvar
func (g *GuardedDB) Rebind(query string) string {
	return g.db.Rebind(query)
}

// Guard returns the guard in use
func (g *GuardedDB) Guard() *SQLGuard {
	return g.guard
}
