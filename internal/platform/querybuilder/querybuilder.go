// Package querybuilder renders the small slice of PostgreSQL the repositories
// need: filtered, ordered, paged selects and multi-row inserts from db-tagged
// structs. Values are always bound as $n placeholders.
package querybuilder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// sqlWriter accumulates statement text and its bound arguments.
type sqlWriter struct {
	strings.Builder
	args []any
}

func (w *sqlWriter) bind(value any) {
	w.args = append(w.args, value)
	w.WriteString("$" + strconv.Itoa(len(w.args)))
}

// Condition is one predicate of a WHERE clause.
type Condition interface {
	render(w *sqlWriter)
}

type comparison struct {
	column string
	op     string
	value  any
}

func (c comparison) render(w *sqlWriter) {
	w.WriteString(c.column + " " + c.op + " ")
	w.bind(c.value)
}

func Eq(column string, value any) Condition  { return comparison{column, "=", value} }
func Gte(column string, value any) Condition { return comparison{column, ">=", value} }
func Lte(column string, value any) Condition { return comparison{column, "<=", value} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ILike matches a case-insensitive substring. Wildcards in value are escaped.
func ILike(column, value string) Condition {
	return comparison{column, "ILIKE", "%" + likeEscaper.Replace(value) + "%"}
}

type disjunction []Condition

func (d disjunction) render(w *sqlWriter) {
	if len(d) == 0 {
		w.WriteString("FALSE")
		return
	}
	w.WriteByte('(')
	for i, c := range d {
		if i > 0 {
			w.WriteString(" OR ")
		}
		c.render(w)
	}
	w.WriteByte(')')
}

// AnyOf joins conditions with OR. An empty AnyOf matches nothing.
func AnyOf(conditions ...Condition) Condition {
	return disjunction(conditions)
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
	offset  int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

// Where adds predicates joined with AND.
func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, terms...)
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = n
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	switch {
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("select columns are required")
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("select table is required")
	}

	var w sqlWriter
	w.WriteString("SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table)
	for i, c := range b.where {
		if i == 0 {
			w.WriteString(" WHERE ")
		} else {
			w.WriteString(" AND ")
		}
		c.render(&w)
	}
	if len(b.orderBy) > 0 {
		w.WriteString(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.WriteString(" LIMIT " + strconv.Itoa(b.limit))
	}
	if b.offset > 0 {
		w.WriteString(" OFFSET " + strconv.Itoa(b.offset))
	}
	return w.String(), w.args, nil
}

// InsertModels renders one multi-row INSERT from db-tagged structs, followed
// by suffix (e.g. an ON CONFLICT clause). All models must share one column set.
func InsertModels(table string, models []any, suffix string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(models) == 0 {
		return "", nil, fmt.Errorf("insert models are required")
	}

	var (
		w       sqlWriter
		columns []string
	)
	for i, model := range models {
		cols, vals, err := taggedFields(model)
		if err != nil {
			return "", nil, fmt.Errorf("model %d: %w", i, err)
		}
		if i == 0 {
			columns = cols
			w.WriteString("INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES ")
		} else {
			if !sameColumns(columns, cols) {
				return "", nil, fmt.Errorf("model %d columns differ from first model", i)
			}
			w.WriteString(", ")
		}
		w.WriteByte('(')
		for j, v := range vals {
			if j > 0 {
				w.WriteString(", ")
			}
			w.bind(v)
		}
		w.WriteByte(')')
	}
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		w.WriteString(" " + suffix)
	}
	return w.String(), w.args, nil
}

// ColumnsOf lists the db-tagged columns of a struct, in field order.
func ColumnsOf(model any) ([]string, error) {
	cols, _, err := taggedFields(model)
	return cols, err
}

func taggedFields(model any) ([]string, []any, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct, got %s", v.Kind())
	}

	t := v.Type()
	var (
		cols []string
		vals []any
	)
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		if !field.IsExported() || name == "" || name == "-" {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v.Field(i).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
