package postgres

import (
	"fmt"
	"strings"
)

// Cond is a field-level predicate tree compiled to positional ($n) SQL.
type Cond interface {
	build(b *argBuilder) string
}

type argBuilder struct {
	args []interface{}
}

func (b *argBuilder) add(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Compile renders c as a boolean SQL expression. Placeholders continue after
// any args passed in.
func Compile(c Cond, args ...interface{}) (string, []interface{}) {
	b := &argBuilder{args: args}
	return c.build(b), b.args
}

type eqCond struct {
	col string
	val interface{}
}

// Eq matches col = val.
func Eq(col string, val interface{}) Cond {
	return eqCond{col: col, val: val}
}

func (c eqCond) build(b *argBuilder) string {
	return c.col + " = " + b.add(c.val)
}

type containsCond struct {
	col    string
	substr string
}

// Contains is a case-insensitive substring match; LIKE wildcards in substr
// are matched literally.
func Contains(col, substr string) Cond {
	return containsCond{col: col, substr: substr}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c containsCond) build(b *argBuilder) string {
	return c.col + " ILIKE " + b.add("%"+likeEscaper.Replace(c.substr)+"%")
}

type isNullCond struct {
	col string
}

// IsNull matches col IS NULL.
func IsNull(col string) Cond {
	return isNullCond{col: col}
}

func (c isNullCond) build(*argBuilder) string {
	return c.col + " IS NULL"
}

type junction struct {
	op    string
	empty string
	conds []Cond
}

// And joins conds with AND. An empty And is TRUE.
func And(conds ...Cond) Cond {
	return junction{op: " AND ", empty: "TRUE", conds: conds}
}

// Or joins conds with OR. An empty Or is FALSE.
func Or(conds ...Cond) Cond {
	return junction{op: " OR ", empty: "FALSE", conds: conds}
}

func (j junction) build(b *argBuilder) string {
	switch len(j.conds) {
	case 0:
		return j.empty
	case 1:
		return j.conds[0].build(b)
	}
	parts := make([]string, 0, len(j.conds))
	for _, c := range j.conds {
		parts = append(parts, c.build(b))
	}
	return "(" + strings.Join(parts, j.op) + ")"
}

// ContainsAny matches when any of cols contains substr.
func ContainsAny(substr string, cols ...string) Cond {
	conds := make([]Cond, 0, len(cols))
	for _, col := range cols {
		conds = append(conds, Contains(col, substr))
	}
	return Or(conds...)
}
