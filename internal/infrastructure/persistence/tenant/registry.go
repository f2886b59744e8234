package tenant

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// Registry records which tables carry the tenant column. Tables are learnt
// from registered models and from every statement the callbacks see.
type Registry struct {
	column string
	mu     sync.RWMutex
	owned  map[string]bool
}

// NewRegistry creates an empty registry for the given tenant column
func NewRegistry(column string) *Registry {
	if column == "" {
		column = "tenant_id"
	}
	return &Registry{column: column, owned: make(map[string]bool)}
}

// Column returns the tenant column name
func (r *Registry) Column() string { return r.column }

// RegisterModels parses models and records the tenant-owned ones
func (r *Registry) RegisterModels(db *gorm.DB, models ...any) error {
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("parse model %T: %w", m, err)
		}
		r.Mark(stmt.Schema.Table, stmt.Schema.LookUpField(r.column) != nil)
	}
	return nil
}

// Mark records whether table is tenant-owned
func (r *Registry) Mark(table string, owned bool) {
	table = normalizeTable(table)
	if table == "" {
		return
	}
	r.mu.Lock()
	r.owned[table] = owned
	r.mu.Unlock()
}

// IsTenantOwned reports whether table carries the tenant column.
// known is false for tables the registry has never seen.
func (r *Registry) IsTenantOwned(table string) (owned, known bool) {
	r.mu.RLock()
	owned, known = r.owned[normalizeTable(table)]
	r.mu.RUnlock()
	return owned, known
}

// OwnedTables lists the tenant-owned tables
func (r *Registry) OwnedTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.owned))
	for t, owned := range r.owned {
		if owned {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeTable(table string) string {
	table = strings.ToLower(strings.Trim(strings.TrimSpace(table), `"`+"`"))
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = strings.Trim(table[i+1:], `"`+"`")
	}
	return table
}
