// Package query evaluates JMESPath predicates against teacher records,
// e.g. contains(research, 'learning') && school_level == '985'.
package query

import (
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/nhle/automail/internal/model"
)

// Filter is a compiled teacher predicate.
type Filter struct {
	expr string
	jp   *jmespath.JMESPath
}

// Compile parses expr. An empty expression matches every teacher.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	f := &Filter{expr: expr}
	if expr == "" {
		return f, nil
	}
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	f.jp = jp
	return f, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match reports whether t satisfies the predicate. The result follows
// JMESPath truthiness: false, null, empty strings, arrays and objects
// do not match.
func (f *Filter) Match(t model.Teacher) (bool, error) {
	if f.jp == nil {
		return true, nil
	}
	v, err := f.jp.Search(document(t))
	if err != nil {
		return false, fmt.Errorf("jmespath: %w", err)
	}
	return truthy(v), nil
}

// Apply returns the teachers matching the predicate, in input order.
func (f *Filter) Apply(teachers []model.Teacher) ([]model.Teacher, error) {
	if f.jp == nil {
		return teachers, nil
	}
	out := make([]model.Teacher, 0, len(teachers))
	for _, t := range teachers {
		ok, err := f.Match(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// document exposes a teacher under its wire field names plus the
// friendlier aliases research and college.
func document(t model.Teacher) map[string]any {
	return map[string]any{
		"id":             t.ID,
		"name":           t.Name,
		"title":          t.Title,
		"url":            t.URL,
		"email":          t.Email,
		"resh_dict":      t.Research,
		"research":       t.Research,
		"school_college": t.SchoolCollege,
		"college":        t.SchoolCollege,
		"school_level":   t.SchoolLevel,
		"school":         t.School,
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
