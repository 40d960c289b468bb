package query

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/apperr"
)

// Table describes a table whose rows scan into T. Columns double as the
// allow-list for filters, sorts and writes and as the SELECT list, so T must
// carry a db tag for each of them. Every table has an integer "id" key.
type Table[T any] struct {
	name       string
	columns    []string
	allowed    map[string]struct{}
	softDelete string
}

func NewTable[T any](name string, columns ...string) *Table[T] {
	t := &Table[T]{name: name, columns: columns, allowed: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.allowed[c] = struct{}{}
	}
	return t
}

// WithSoftDelete marks column as the soft-delete timestamp. Queries skip rows
// where it is set unless Builder.WithTrashed is used.
func (t *Table[T]) WithSoftDelete(column string) *Table[T] {
	if !t.Has(column) {
		panic(fmt.Sprintf("query: soft-delete column %q not in %s", column, t.name))
	}
	cp := *t
	cp.softDelete = column
	return &cp
}

// WithSelectOnly keeps columns in the SELECT list but drops them from the
// allow-list, so they scan into T yet can never be filtered, sorted or written.
func (t *Table[T]) WithSelectOnly(columns ...string) *Table[T] {
	cp := *t
	cp.allowed = maps.Clone(t.allowed)
	for _, c := range columns {
		if !cp.Has(c) {
			panic(fmt.Sprintf("query: select-only column %q not in %s", c, t.name))
		}
		delete(cp.allowed, c)
	}
	return &cp
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) Has(field string) bool {
	_, ok := t.allowed[field]
	return ok
}

func (t *Table[T]) selectList() string { return strings.Join(t.columns, ", ") }

// Query starts a fresh builder on db, which may be a *sqlx.DB or a *sqlx.Tx.
func (t *Table[T]) Query(db sqlx.ExtContext) Builder[T] {
	return Builder[T]{table: t, db: db}
}

func (t *Table[T]) assignments(fields Fields) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, apperr.Validation("no fields to write on %s", t.name)
	}
	keys := sortedKeys(fields)
	parts := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if !t.Has(k) || k == "id" {
			return "", nil, apperr.InvalidField(t.name, k)
		}
		parts[i] = k + " = ?"
		args[i] = fields[k]
	}
	return strings.Join(parts, ", "), args, nil
}

// Find loads one row by id, honouring the soft-delete scope.
func (t *Table[T]) Find(ctx context.Context, db sqlx.ExtContext, id int64) (T, error) {
	row, ok, err := t.Query(db).Filter("id", Eq, id).First(ctx)
	if err != nil {
		return row, err
	}
	if !ok {
		return row, apperr.NotFound("%s %d not found", t.name, id)
	}
	return row, nil
}

// Create inserts a row and returns it as stored.
func (t *Table[T]) Create(ctx context.Context, db sqlx.ExtContext, fields Fields) (T, error) {
	var row T
	if len(fields) == 0 {
		return row, apperr.Validation("no fields to insert into %s", t.name)
	}
	keys := sortedKeys(fields)
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if !t.Has(k) || k == "id" {
			return row, apperr.InvalidField(t.name, k)
		}
		marks[i] = "?"
		args[i] = fields[k]
	}
	q := "INSERT INTO " + t.name + " (" + strings.Join(keys, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING id"
	var id int64
	if err := sqlx.GetContext(ctx, db, &id, db.Rebind(q), args...); err != nil {
		return row, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return t.reload(ctx, db, id)
}

// Update writes fields to the row with the given id and returns the new row.
func (t *Table[T]) Update(ctx context.Context, db sqlx.ExtContext, id int64, fields Fields) (T, error) {
	var row T
	set, args, err := t.assignments(fields)
	if err != nil {
		return row, err
	}
	q := "UPDATE " + t.name + " SET " + set + " WHERE id = ?"
	res, err := db.ExecContext(ctx, db.Rebind(q), append(args, id)...)
	if err != nil {
		return row, fmt.Errorf("update %s %d: %w", t.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return row, err
	}
	if n == 0 {
		return row, apperr.NotFound("%s %d not found", t.name, id)
	}
	return t.reload(ctx, db, id)
}

// reload reads a row back by id regardless of soft-delete state.
func (t *Table[T]) reload(ctx context.Context, db sqlx.ExtContext, id int64) (T, error) {
	row, ok, err := t.Query(db).WithTrashed().Filter("id", Eq, id).First(ctx)
	if err != nil {
		return row, err
	}
	if !ok {
		return row, apperr.NotFound("%s %d not found", t.name, id)
	}
	return row, nil
}

// Delete physically removes the row with the given id.
func (t *Table[T]) Delete(ctx context.Context, db sqlx.ExtContext, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM "+t.name+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", t.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("%s %d not found", t.name, id)
	}
	return nil
}
