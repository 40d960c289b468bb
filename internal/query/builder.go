package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/apperr"
)

// Builder accumulates conditions and sort terms for one logical query. The
// zero value is not usable; start from Table.Query.
type Builder[T any] struct {
	table   *Table[T]
	db      sqlx.ExtContext
	conds   []Condition
	sorts   []Sort
	lock    bool
	trashed bool
	err     error
}

// Filter returns a builder with the condition appended. An unknown field or a
// malformed value is recorded and reported by the terminal call.
func (b Builder[T]) Filter(field string, op Op, value any) Builder[T] {
	if b.err != nil {
		return b
	}
	if !b.table.Has(field) {
		b.err = apperr.InvalidField(b.table.name, field)
		return b
	}
	if !op.valid() {
		b.err = apperr.Validation("unknown operator %q", op)
		return b
	}
	if err := checkValue(op, value); err != nil {
		b.err = err
		return b
	}
	b.conds = append(slices.Clip(b.conds), Condition{Field: field, Op: op, Value: value})
	return b
}

// Where is Filter with a parsed operator, for callers holding user input.
func (b Builder[T]) Where(field, op string, value any) Builder[T] {
	if b.err != nil {
		return b
	}
	o, err := ParseOp(op)
	if err != nil {
		b.err = err
		return b
	}
	return b.Filter(field, o, value)
}

// Sort appends an ORDER BY term; repeated calls sort by each term in turn.
func (b Builder[T]) Sort(field string, dir Direction) Builder[T] {
	if b.err != nil {
		return b
	}
	if !b.table.Has(field) {
		b.err = apperr.InvalidField(b.table.name, field)
		return b
	}
	if dir != Asc && dir != Desc {
		b.err = apperr.Validation("unknown sort direction %q", dir)
		return b
	}
	b.sorts = append(slices.Clip(b.sorts), Sort{Field: field, Dir: dir})
	return b
}

func (b Builder[T]) SortBy(sorts ...Sort) Builder[T] {
	for _, s := range sorts {
		b = b.Sort(s.Field, s.Dir)
	}
	return b
}

// Lock selects rows FOR UPDATE where the dialect supports it. SQLite has no
// row locks; there the surrounding transaction must be opened IMMEDIATE.
func (b Builder[T]) Lock() Builder[T] {
	b.lock = true
	return b
}

// WithTrashed includes soft-deleted rows.
func (b Builder[T]) WithTrashed() Builder[T] {
	b.trashed = true
	return b
}

func (b Builder[T]) Err() error { return b.err }

func (b Builder[T]) where() (string, []any, error) {
	var parts []string
	var args []any
	if b.table.softDelete != "" && !b.trashed {
		parts = append(parts, b.table.softDelete+" IS NULL")
	}
	for _, c := range b.conds {
		switch c.Op {
		case IsNull, IsNotNull:
			parts = append(parts, c.Field+" "+string(c.Op))
		case Between:
			r := c.Value.(Range)
			parts = append(parts, c.Field+" BETWEEN ? AND ?")
			args = append(args, r.From, r.To)
		case In:
			frag, inArgs, err := sqlx.In(c.Field+" IN (?)", c.Value)
			if err != nil {
				return "", nil, apperr.Wrap(apperr.KindValidation, err, "bad IN value for %s", c.Field)
			}
			parts = append(parts, frag)
			args = append(args, inArgs...)
		default:
			parts = append(parts, c.Field+" "+string(c.Op)+" ?")
			args = append(args, c.Value)
		}
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (b Builder[T]) orderBy() string {
	if len(b.sorts) == 0 {
		return ""
	}
	terms := make([]string, len(b.sorts))
	for i, s := range b.sorts {
		terms[i] = s.Field + " " + string(s.Dir)
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b Builder[T]) lockClause() string {
	if b.lock && b.db != nil && supportsRowLocks(b.db.DriverName()) {
		return " FOR UPDATE"
	}
	return ""
}

func (b Builder[T]) rebind(q string) string {
	if b.db == nil {
		return q
	}
	return b.db.Rebind(q)
}

func (b Builder[T]) selectSQL(limit, offset int) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args, err := b.where()
	if err != nil {
		return "", nil, err
	}
	q := "SELECT " + b.table.selectList() + " FROM " + b.table.name + where + b.orderBy()
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	q += b.lockClause()
	return b.rebind(q), args, nil
}

// ToSQL renders the SELECT statement without running it.
func (b Builder[T]) ToSQL() (string, []any, error) {
	return b.selectSQL(0, 0)
}

func (b Builder[T]) All(ctx context.Context) ([]T, error) {
	q, args, err := b.selectSQL(0, 0)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := sqlx.SelectContext(ctx, b.db, &out, q, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", b.table.name, err)
	}
	return out, nil
}

// First returns the first matching row; ok is false when nothing matches.
func (b Builder[T]) First(ctx context.Context) (row T, ok bool, err error) {
	q, args, err := b.selectSQL(1, 0)
	if err != nil {
		return row, false, err
	}
	if err := sqlx.GetContext(ctx, b.db, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, false, nil
		}
		return row, false, fmt.Errorf("select %s: %w", b.table.name, err)
	}
	return row, true, nil
}

func (b Builder[T]) Count(ctx context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	where, args, err := b.where()
	if err != nil {
		return 0, err
	}
	var n int64
	q := b.rebind("SELECT COUNT(*) FROM " + b.table.name + where)
	if err := sqlx.GetContext(ctx, b.db, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", b.table.name, err)
	}
	return n, nil
}

// Paginate counts the matching rows and then fetches one window of them.
func (b Builder[T]) Paginate(ctx context.Context, page, size int) (Page[T], error) {
	if b.err != nil {
		return Page[T]{}, b.err
	}
	if page < 1 {
		return Page[T]{}, apperr.Validation("page must be >= 1, got %d", page)
	}
	if size < 1 {
		return Page[T]{}, apperr.Validation("page size must be >= 1, got %d", size)
	}
	total, err := b.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	q, args, err := b.selectSQL(size, (page-1)*size)
	if err != nil {
		return Page[T]{}, err
	}
	var items []T
	if err := sqlx.SelectContext(ctx, b.db, &items, q, args...); err != nil {
		return Page[T]{}, fmt.Errorf("select %s page %d: %w", b.table.name, page, err)
	}
	return newPage(items, total, page, size), nil
}

// Update sets fields on every matching row and returns how many changed.
func (b Builder[T]) Update(ctx context.Context, fields Fields) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	set, setArgs, err := b.table.assignments(fields)
	if err != nil {
		return 0, err
	}
	where, args, err := b.where()
	if err != nil {
		return 0, err
	}
	q := b.rebind("UPDATE " + b.table.name + " SET " + set + where)
	res, err := b.db.ExecContext(ctx, q, append(setArgs, args...)...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", b.table.name, err)
	}
	return res.RowsAffected()
}

// Delete removes every matching row. A builder without conditions is refused.
func (b Builder[T]) Delete(ctx context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if len(b.conds) == 0 {
		return 0, apperr.Validation("refusing to delete from %s without conditions", b.table.name)
	}
	where, args, err := b.where()
	if err != nil {
		return 0, err
	}
	res, err := b.db.ExecContext(ctx, b.rebind("DELETE FROM "+b.table.name+where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", b.table.name, err)
	}
	return res.RowsAffected()
}

func sortedKeys(f Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func supportsRowLocks(driver string) bool {
	switch driver {
	case "pgx", "postgres":
		return true
	}
	return false
}
