package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/petshop/erp/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUnscopedQuery is returned in block mode for raw SQL touching a
// tenant-owned table without a tenant predicate
var ErrUnscopedQuery = errors.New("unscoped query on tenant-owned table")

// GuardMode selects what the guard does with a violation
type GuardMode string

const (
	GuardOff   GuardMode = "off"
	GuardWarn  GuardMode = "warn"
	GuardBlock GuardMode = "block"
)

// ParseGuardMode converts a config value, defaulting to block
func ParseGuardMode(s string) (GuardMode, error) {
	switch m := GuardMode(strings.ToLower(strings.TrimSpace(s))); m {
	case GuardOff, GuardWarn, GuardBlock:
		return m, nil
	case "":
		return GuardBlock, nil
	default:
		return "", fmt.Errorf("unknown guard mode %q", s)
	}
}

// GuardStats is a snapshot of the guard counters
type GuardStats struct {
	Checked int64 `json:"checked"`
	Warned  int64 `json:"warned"`
	Blocked int64 `json:"blocked"`
}

// Violation describes why a statement failed the check
type Violation struct {
	Tables []string
	Reason string
}

func (v *Violation) Error() string {
	if len(v.Tables) == 0 {
		return fmt.Sprintf("%s: %s", ErrUnscopedQuery, v.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrUnscopedQuery, v.Reason, strings.Join(v.Tables, ", "))
}

func (v *Violation) Unwrap() error { return ErrUnscopedQuery }

var (
	tableRef     = regexp.MustCompile(`(?i)\b(?:from|join|update|into)\s+((?:"[^"]+"|[a-z_][\w$]*)(?:\.(?:"[^"]+"|[a-z_][\w$]*))?)`)
	leadingWord  = regexp.MustCompile(`^\s*(?:\(\s*)*([a-zA-Z]+)`)
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	quotedString = regexp.MustCompile(`'(?:[^']|'')*'`)
	orKeyword    = regexp.MustCompile(`(?i)\bor\b`)
	// keywords that open or close a boolean condition
	clauseBoundary = regexp.MustCompile(`(?i)\b(?:where|on|having|group|order|limit|offset|returning|union|except|intersect|window|join|from|set|values|using)\b`)
	predicates     sync.Map // column -> *regexp.Regexp
)

// scalar is a bind parameter or a literal. Column references are not scalars.
const scalar = `(?:\?|\$\d+|[:@][a-zA-Z_]\w*|''|-?\d+(?:\.\d+)?)`

// tenantPredicate matches "column = <scalar>", "column IN (<scalars>)",
// "column = ANY(<param>)" and "column IS NOT DISTINCT FROM <scalar>".
// The column may be table-qualified or quoted.
func tenantPredicate(column string) *regexp.Regexp {
	if re, ok := predicates.Load(column); ok {
		return re.(*regexp.Regexp)
	}
	col := `(?:^|[^\w])("?` + regexp.QuoteMeta(column) + `"?)`
	rhs := `(?:=\s*` + scalar + `|=\s*any\s*\(\s*` + scalar + `\s*\)` +
		`|\bin\s*\(\s*` + scalar + `(?:\s*,\s*` + scalar + `)*\s*\)` +
		`|\bis\s+not\s+distinct\s+from\s+` + scalar + `)`
	re := regexp.MustCompile(`(?i)` + col + `\s*` + rhs + `(?:[^\w]|$)`)
	predicates.Store(column, re)
	return re
}

// statements whose tenancy is decided by their table references
var dmlKeywords = map[string]bool{
	"select": true, "with": true, "insert": true, "update": true, "delete": true,
}

// statements that never touch rows
var controlKeywords = map[string]bool{
	"begin": true, "commit": true, "rollback": true, "savepoint": true,
	"release": true, "set": true, "show": true, "start": true, "end": true,
	"pragma": true,
}

// SQLGuard audits hand-written SQL for missing tenant predicates.
// It never rewrites a statement.
type SQLGuard struct {
	mode     GuardMode
	registry *Registry
	log      *zap.Logger

	checked atomic.Int64
	warned  atomic.Int64
	blocked atomic.Int64
}

// NewSQLGuard creates a guard that consults registry for tenant-owned tables
func NewSQLGuard(mode GuardMode, registry *Registry, log *zap.Logger) *SQLGuard {
	if registry == nil {
		registry = NewRegistry("")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLGuard{mode: mode, registry: registry, log: log.Named("sql_guard")}
}

// Mode returns the configured mode
func (g *SQLGuard) Mode() GuardMode { return g.mode }

// Stats returns the current counters
func (g *SQLGuard) Stats() GuardStats {
	return GuardStats{
		Checked: g.checked.Load(),
		Warned:  g.warned.Load(),
		Blocked: g.blocked.Load(),
	}
}

// Check inspects sql. In block mode a violation is returned as an error
// wrapping ErrUnscopedQuery; in warn mode it is only logged and counted.
func (g *SQLGuard) Check(ctx context.Context, sql string) error {
	if g.mode == GuardOff {
		return nil
	}
	g.checked.Add(1)
	if IsSystemScope(ctx) {
		return nil
	}

	v := g.Analyze(sql)
	if v == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("sql", truncate(sql, 500)),
		zap.Strings("tables", v.Tables),
		zap.String("reason", v.Reason),
		zap.String("tenant_id", logger.GetTenantID(ctx)),
		zap.String("request_id", logger.GetRequestID(ctx)),
	}
	if g.mode == GuardBlock {
		g.blocked.Add(1)
		g.log.Error("Blocked unscoped SQL", fields...)
		return v
	}
	g.warned.Add(1)
	g.log.Warn("Unscoped SQL", fields...)
	return nil
}

// Analyze returns the violation in sql, or nil when it is scoped.
// It does not count or log.
func (g *SQLGuard) Analyze(sql string) *Violation {
	cleaned := stripSQL(sql)
	m := leadingWord.FindStringSubmatch(cleaned)
	if m == nil {
		return &Violation{Reason: "statement could not be parsed"}
	}
	keyword := strings.ToLower(m[1])
	if controlKeywords[keyword] {
		return nil
	}
	if !dmlKeywords[keyword] {
		return &Violation{Reason: fmt.Sprintf("%s statements require system scope", strings.ToUpper(keyword))}
	}

	var owned []string
	for _, ref := range tableRef.FindAllStringSubmatch(cleaned, -1) {
		table := normalizeTable(ref[1])
		if isOwned, _ := g.registry.IsTenantOwned(table); isOwned && !contains(owned, table) {
			owned = append(owned, table)
		}
	}
	if len(owned) == 0 {
		return nil
	}

	column := g.registry.Column()
	if keyword == "insert" {
		if strings.Contains(strings.ToLower(cleaned), strings.ToLower(column)) {
			return nil
		}
		return &Violation{Tables: owned, Reason: "insert without " + column}
	}
	if hasTenantPredicate(cleaned, column) {
		return nil
	}
	return &Violation{Tables: owned, Reason: "missing " + column + " predicate"}
}

// hasTenantPredicate reports whether sql compares column to a parameter or
// literal in a condition that no OR can widen, at its own nesting level or
// any level enclosing it
func hasTenantPredicate(sql, column string) bool {
	matches := tenantPredicate(column).FindAllStringSubmatchIndex(sql, -1)
	if len(matches) == 0 {
		return false
	}
	depth := nestingDepths(sql)
	ors := orKeyword.FindAllStringIndex(sql, -1)
	bounds := clauseBoundary.FindAllStringIndex(sql, -1)

	for _, m := range matches {
		if !widened(depth, ors, bounds, m[2], m[1]) {
			return true
		}
	}
	return false
}

// widened walks from the predicate at [start,end) outwards through every
// enclosing parenthesised group and reports an OR found in the condition
// containing it at any of those levels
func widened(depth []int, ors, bounds [][]int, start, end int) bool {
	for {
		level := depth[start]
		groupLo, groupHi := enclosingGroup(depth, start)
		lo, hi := groupLo, groupHi
		for _, b := range bounds {
			if depth[b[0]] != level || b[0] < groupLo || b[0] >= groupHi {
				continue
			}
			if b[1] <= start && b[1] > lo {
				lo = b[1]
			} else if b[0] >= end && b[0] < hi {
				hi = b[0]
			}
		}
		for _, o := range ors {
			if o[0] >= lo && o[0] < hi && depth[o[0]] == level {
				return true
			}
		}
		if level == 0 {
			return false
		}
		// the parentheses around this group sit one level up
		start, end = groupLo-1, groupHi+1
	}
}

// nestingDepths returns the parenthesis depth of every byte. Parentheses
// carry the depth of the text around them.
func nestingDepths(sql string) []int {
	depth := make([]int, len(sql)+1)
	cur := 0
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '(':
			depth[i] = cur
			cur++
		case ')':
			if cur > 0 {
				cur--
			}
			depth[i] = cur
		default:
			depth[i] = cur
		}
	}
	depth[len(sql)] = cur
	return depth
}

// enclosingGroup returns the bounds of the parenthesised group around pos
func enclosingGroup(depth []int, pos int) (int, int) {
	level := depth[pos]
	lo := pos
	for lo > 0 && depth[lo-1] >= level {
		lo--
	}
	hi := pos
	for hi < len(depth)-1 && depth[hi] >= level {
		hi++
	}
	return lo, hi
}

// Register installs the guard on GORM statements that carry hand-written SQL
func (g *SQLGuard) Register(db *gorm.DB) error {
	check := func(db *gorm.DB) {
		if db.Statement.SQL.Len() == 0 || db.Error != nil {
			return
		}
		if err := g.Check(db.Statement.Context, db.Statement.SQL.String()); err != nil {
			_ = db.AddError(err)
		}
	}
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:guard_query", check); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:guard_row", check); err != nil {
		return err
	}
	return cb.Raw().Before("gorm:raw").Register("tenant:guard_raw", check)
}

// stripSQL removes comments and string literals so they cannot fake a predicate
func stripSQL(sql string) string {
	sql = blockComment.ReplaceAllString(sql, " ")
	sql = lineComment.ReplaceAllString(sql, " ")
	return quotedString.ReplaceAllString(sql, "''")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
