package repository

import (
	"fmt"
	"strings"
	"time"
)

// ListFilter narrows history listings by status, text search and date range.
// Every dimension becomes a bound query parameter; nothing user-supplied is
// ever spliced into the SQL text.
type ListFilter struct {
	Status string
	Search string
	From   *time.Time
	To     *time.Time

	// searchColumn is the column Search matches against. Set by the
	// repository per table, never from request input.
	searchColumn string
}

// WithSearchColumn returns a copy of the filter matching Search against the
// given column.
func (f ListFilter) WithSearchColumn(column string) ListFilter {
	f.searchColumn = column
	return f
}

// Build renders the WHERE clause starting from a base condition whose
// placeholders consume baseArgs. Returns the clause and the full argument
// list, filter parameters appended after the base ones.
func (f ListFilter) Build(base string, baseArgs ...any) (string, []any) {
	conds := []string{base}
	args := baseArgs

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" && f.searchColumn != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", f.searchColumn, len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}
