// Package query builds and runs parameterized queries against a single table.
//
// A Builder is a value. Filter, Sort, Lock and WithTrashed return a new Builder
// and never modify the receiver, so a base query can be shared and extended
// from several goroutines without one branch observing another's conditions.
// Field names are checked against the table's column allow-list; values only
// ever reach the database as bound parameters.
package query

import (
	"reflect"
	"strings"

	"roomservice/internal/apperr"
)

type Op string

const (
	Eq        Op = "="
	Ne        Op = "!="
	Lt        Op = "<"
	Le        Op = "<="
	Gt        Op = ">"
	Ge        Op = ">="
	Like      Op = "LIKE"
	IsNull    Op = "IS NULL"
	IsNotNull Op = "IS NOT NULL"
	Between   Op = "BETWEEN"
	In        Op = "IN"
)

var opAliases = map[string]Op{
	"=": Eq, "eq": Eq,
	"!=": Ne, "<>": Ne, "ne": Ne,
	"<": Lt, "lt": Lt,
	"<=": Le, "lte": Le,
	">": Gt, "gt": Gt,
	">=": Ge, "gte": Ge,
	"like":        Like,
	"is null":     IsNull,
	"is-null":     IsNull,
	"is_null":     IsNull,
	"is not null": IsNotNull,
	"is-not-null": IsNotNull,
	"is_not_null": IsNotNull,
	"between":     Between,
	"in":          In,
}

// ParseOp accepts the SQL spelling or a short alias ("gte", "is-null", ...).
func ParseOp(s string) (Op, error) {
	if op, ok := opAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", apperr.Validation("unknown operator %q", s)
}

func (op Op) valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge, Like, IsNull, IsNotNull, Between, In:
		return true
	}
	return false
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return "", apperr.Validation("unknown sort direction %q", s)
}

// Range is the value of a Between condition; both bounds are inclusive.
type Range struct {
	From any
	To   any
}

type Condition struct {
	Field string
	Op    Op
	Value any
}

type Sort struct {
	Field string
	Dir   Direction
}

// Fields is a column -> value set for inserts and updates.
type Fields map[string]any

func checkValue(op Op, v any) error {
	switch op {
	case IsNull, IsNotNull:
		return nil
	case Between:
		if _, ok := v.(Range); !ok {
			return apperr.Validation("BETWEEN needs a query.Range value, got %T", v)
		}
	case In:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Slice {
			return apperr.Validation("IN needs a slice value, got %T", v)
		}
		if rv.Len() == 0 {
			return apperr.Validation("IN needs at least one value")
		}
	default:
		if v == nil {
			return apperr.Validation("operator %s needs a value; use IS NULL for nil", op)
		}
	}
	return nil
}
