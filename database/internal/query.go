// Package internal holds SQL building blocks shared by the PostgreSQL and
// SQLite repositories.
package internal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sagarc03/filedock"
)

// Placeholder renders the n-th (1-based) bind parameter of a dialect.
type Placeholder func(n int) string

// Dollar renders PostgreSQL positional parameters ($1, $2, ...).
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders SQLite parameters.
func Question(int) string { return "?" }

// Where accumulates AND-ed conditions and their arguments.
type Where struct {
	ph    Placeholder
	conds []string
	args  []any
}

func NewWhere(ph Placeholder) *Where {
	return &Where{ph: ph}
}

// Bind appends arg and returns its placeholder.
func (w *Where) Bind(arg any) string {
	w.args = append(w.args, arg)
	return w.ph(len(w.args))
}

// Add appends cond. Each "{}" in cond is replaced by the placeholder of the
// next argument in args.
func (w *Where) Add(cond string, args ...any) {
	parts := strings.Split(cond, "{}")
	if len(parts)-1 != len(args) {
		panic(fmt.Sprintf("where: %q expects %d args, got %d", cond, len(parts)-1, len(args)))
	}

	var b strings.Builder
	b.WriteString(parts[0])
	for i, arg := range args {
		b.WriteString(w.Bind(arg))
		b.WriteString(parts[i+1])
	}
	w.conds = append(w.conds, b.String())
}

// SQL returns the WHERE clause, or "" when no condition was added.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

func (w *Where) Args() []any {
	return w.args
}

var fileSortColumns = map[filedock.SortField]string{
	filedock.SortByName:      "name",
	filedock.SortByCreatedAt: "created_at",
	filedock.SortByUpdatedAt: "updated_at",
	filedock.SortBySize:      "size",
	filedock.SortByMimeType:  "mime_type",
}

// FileOrderBy maps a whitelisted sort field to an ORDER BY clause. The id
// tie-breaker keeps pages stable when the sort column has duplicates.
func FileOrderBy(field filedock.SortField, order filedock.SortOrder) (string, error) {
	column, ok := fileSortColumns[field]
	if !ok {
		return "", fmt.Errorf("order by: unsupported sort field %q", field)
	}

	direction := "DESC"
	switch order {
	case filedock.SortAsc:
		direction = "ASC"
	case filedock.SortDesc:
	default:
		return "", fmt.Errorf("order by: unsupported sort order %q", order)
	}

	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction), nil
}

// ContainsPattern builds a LIKE pattern matching s anywhere, with LIKE
// metacharacters escaped by backslash. Callers lower both sides and add ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + filedock.EscapeLikePattern(strings.ToLower(s)) + "%"
}
