package tenant

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TenantCallback provides GORM callback hooks for automatic tenant filtering
type TenantCallback struct {
	cfg      Config
	registry *Registry
}

// NewTenantCallback creates a tenant callback handler
func NewTenantCallback(cfg Config, registry *Registry) *TenantCallback {
	cfg.TenantColumn = cfg.column()
	if registry == nil {
		registry = NewRegistry(cfg.TenantColumn)
	}
	return &TenantCallback{cfg: cfg, registry: registry}
}

// RegisterCallbacks installs tenant callbacks on db and returns the handler
func RegisterCallbacks(db *gorm.DB, cfg Config) (*TenantCallback, error) {
	tc := NewTenantCallback(cfg, nil)
	if err := tc.Register(db); err != nil {
		return nil, err
	}
	return tc, nil
}

// Registry returns the table registry shared with the SQL guard
func (tc *TenantCallback) Registry() *Registry {
	return tc.registry
}

// Register installs the callbacks
func (tc *TenantCallback) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.beforeUpdate); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addTenantFilter); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:before_create", tc.beforeCreate)
}

// Unregister removes the callbacks; only tests should need this
func Unregister(db *gorm.DB) {
	cb := db.Callback()
	_ = cb.Query().Remove("tenant:before_query")
	_ = cb.Row().Remove("tenant:before_row")
	_ = cb.Update().Remove("tenant:before_update")
	_ = cb.Delete().Remove("tenant:before_delete")
	_ = cb.Create().Remove("tenant:before_create")
}

// tenantOwned reports whether the statement targets a table with the tenant column
func (tc *TenantCallback) tenantOwned(db *gorm.DB) bool {
	stmt := db.Statement
	if stmt.Schema != nil {
		owned := stmt.Schema.LookUpField(tc.cfg.TenantColumn) != nil
		tc.registry.Mark(stmt.Schema.Table, owned)
		if stmt.Table == "" || strings.EqualFold(stmt.Table, stmt.Schema.Table) {
			return owned
		}
	}
	owned, _ := tc.registry.IsTenantOwned(stmt.Table)
	return owned
}

// contextTenant resolves the tenant for the statement, recording errors on db
func (tc *TenantCallback) contextTenant(db *gorm.DB) (uuid.UUID, bool) {
	id, ok, err := FromContext(db.Statement.Context)
	if err != nil {
		_ = db.AddError(err)
		return uuid.Nil, false
	}
	if !ok && tc.cfg.Required {
		_ = db.AddError(ErrTenantIDRequired)
	}
	return id, ok
}

// addTenantFilter adds tenant filtering to SELECT, UPDATE and DELETE statements
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || db.Error != nil {
		return
	}
	// Hand-written SQL is the guard's job
	if stmt.SQL.Len() > 0 {
		return
	}
	if stmt.Unscoped || IsSystemScope(stmt.Context) {
		return
	}
	if !tc.tenantOwned(db) {
		return
	}
	if tc.hasTenantCondition(db) {
		return
	}

	tenantID, ok := tc.contextTenant(db)
	if !ok {
		return
	}

	// Group existing conditions so an OR cannot escape the tenant predicate
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok && hasOr(where.Exprs) {
			c.Expression = clause.Where{Exprs: []clause.Expression{clause.And(where.Exprs...)}}
			stmt.Clauses["WHERE"] = c
		}
	}

	stmt.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.cfg.TenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// beforeUpdate filters the update and refuses to move a row to another tenant
func (tc *TenantCallback) beforeUpdate(db *gorm.DB) {
	tc.addTenantFilter(db)
	if db.Error != nil || IsSystemScope(db.Statement.Context) {
		return
	}
	tenantID, ok, _ := FromContext(db.Statement.Context)
	if !ok {
		return
	}
	tc.eachTenantValue(db, func(value any, _ reflect.Value, _ *schema.Field) {
		if v := tenantString(value); v != "" && !strings.EqualFold(v, tenantID.String()) {
			_ = db.AddError(ErrTenantMismatch)
		}
	})
	if m, ok := db.Statement.Dest.(map[string]any); ok {
		if v := tenantString(m[tc.cfg.TenantColumn]); v != "" && !strings.EqualFold(v, tenantID.String()) {
			_ = db.AddError(ErrTenantMismatch)
		}
	}
}

// beforeCreate stamps the context tenant on new rows and rejects foreign tenants
func (tc *TenantCallback) beforeCreate(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || db.Error != nil || stmt.SQL.Len() > 0 {
		return
	}
	if !tc.tenantOwned(db) {
		return
	}

	system := IsSystemScope(stmt.Context)
	tenantID, ok, err := FromContext(stmt.Context)
	if err != nil {
		_ = db.AddError(err)
		return
	}

	check := func(current string) (stamp bool) {
		switch {
		case current == "" && ok:
			return true
		case current == "":
			// A tenant-owned row always needs a tenant, even in system scope
			_ = db.AddError(ErrTenantIDRequired)
		case system:
		case !ok:
			if tc.cfg.Required {
				_ = db.AddError(ErrTenantIDRequired)
			}
		case !strings.EqualFold(current, tenantID.String()):
			_ = db.AddError(ErrTenantMismatch)
		}
		return false
	}

	if stmt.Schema != nil {
		tc.eachTenantValue(db, func(value any, rv reflect.Value, field *schema.Field) {
			if check(tenantString(value)) {
				if err := field.Set(stmt.Context, rv, tenantID); err != nil {
					_ = db.AddError(err)
				}
			}
		})
		return
	}

	switch rows := stmt.Dest.(type) {
	case map[string]any:
		if check(tenantString(rows[tc.cfg.TenantColumn])) {
			rows[tc.cfg.TenantColumn] = tenantID
		}
	case []map[string]any:
		for _, row := range rows {
			if check(tenantString(row[tc.cfg.TenantColumn])) {
				row[tc.cfg.TenantColumn] = tenantID
			}
		}
	}
}

// eachTenantValue visits the tenant field of every struct the statement writes
func (tc *TenantCallback) eachTenantValue(db *gorm.DB, fn func(value any, rv reflect.Value, field *schema.Field)) {
	stmt := db.Statement
	if stmt.Schema == nil {
		return
	}
	field := stmt.Schema.LookUpField(tc.cfg.TenantColumn)
	if field == nil {
		return
	}
	visit := func(rv reflect.Value) {
		rv = reflect.Indirect(rv)
		if !rv.IsValid() || rv.Kind() != reflect.Struct {
			return
		}
		value, _ := field.ValueOf(stmt.Context, rv)
		fn(value, rv, field)
	}
	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			visit(stmt.ReflectValue.Index(i))
		}
	case reflect.Struct:
		visit(stmt.ReflectValue)
	}
}

// hasTenantCondition checks if a tenant condition is already present
func (tc *TenantCallback) hasTenantCondition(db *gorm.DB) bool {
	whereClause, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if tc.exprContainsTenant(expr) {
			return true
		}
	}
	return false
}

// exprContainsTenant checks if an expression constrains the tenant column
func (tc *TenantCallback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.cfg.TenantColumn
		}
		if col, ok := e.Column.(string); ok {
			return columnName(col) == tc.cfg.TenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.cfg.TenantColumn
		}
	case clause.Expr:
		return tenantPredicate(tc.cfg.TenantColumn).MatchString(e.SQL)
	case clause.NamedExpr:
		return tenantPredicate(tc.cfg.TenantColumn).MatchString(e.SQL)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	// An OR branch can widen the result set, so it never counts as scoping
	return false
}

func hasOr(exprs []clause.Expression) bool {
	for _, e := range exprs {
		if _, ok := e.(clause.OrConditions); ok {
			return true
		}
	}
	return false
}

func columnName(col string) string {
	if i := strings.LastIndexByte(col, '.'); i >= 0 {
		col = col[i+1:]
	}
	return strings.Trim(col, `"`)
}
