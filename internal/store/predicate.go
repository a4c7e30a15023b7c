package store

import "strings"

// predicateBuilder assembles a WHERE clause from an arbitrary subset of
// filters. Placeholders are numbered strictly in the order values are
// appended to the bind list, never by textual position in the query —
// the earlier bug this corrects numbered placeholders by position and
// produced a parameter-index mismatch whenever a filter in the middle of
// the list was absent (spec.md §4.A, §9 "Dynamic parameter binding").
type predicateBuilder struct {
	clauses []string
	args    []any
}

func newPredicateBuilder() *predicateBuilder {
	return &predicateBuilder{}
}

// add appends a clause using '?' placeholders; the number of values must
// match the number of '?' in clause. Values are appended to args in the
// same call, so bind order and placeholder order can never drift apart.
func (p *predicateBuilder) add(clause string, values ...any) {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, values...)
}

// addIf appends the clause only when present is true.
func (p *predicateBuilder) addIf(present bool, clause string, values ...any) {
	if !present {
		return
	}
	p.add(clause, values...)
}

func (p *predicateBuilder) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

func (p *predicateBuilder) bindArgs() []any {
	return p.args
}
