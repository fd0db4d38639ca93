package tracer

import (
	"regexp"
	"strconv"
	"strings"
)

// pattern is one compiled filter pattern (without its leading '!').
type pattern struct {
	raw string
	re  *regexp.Regexp
}

func compilePattern(raw string) pattern {
	parts := strings.Split(raw, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return pattern{raw: raw, re: regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")}
}

// matchesAny reports whether candidate matches at least one pattern.
// Matching is anchored and case-sensitive; '*' matches any run of characters.
func matchesAny(candidate string, patterns []pattern) bool {
	for _, p := range patterns {
		if p.re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// FilterSet decides which names are traced.
//
// A raw filter is either "pattern" (include) or "!pattern" (exclude).
// Exclusion always wins over inclusion; a set without include patterns
// includes everything that is not excluded.
//
// A FilterSet is immutable after construction and safe for concurrent use.
type FilterSet struct {
	includes []pattern
	excludes []pattern
}

// NewFilterSet validates and classifies raw filter expressions.
//
// Every expression is validated eagerly; the first malformed one is returned
// as *InvalidFilterError.
func NewFilterSet(raw []string) (*FilterSet, error) {
	fs := &FilterSet{}
	for _, f := range raw {
		if err := validateFilter(f); err != nil {
			return nil, err
		}
		if strings.HasPrefix(f, "!") {
			fs.excludes = append(fs.excludes, compilePattern(f[1:]))
			continue
		}
		fs.includes = append(fs.includes, compilePattern(f))
	}
	return fs, nil
}

// ClassFilter builds the filter applied to bare class names.
//
// Class-only expressions are used as given. An include "Class:method" adds
// its class side so the class reaches method-level filtering; an exclude
// "!Class:method" only concerns one method and is left to MethodFilter.
func ClassFilter(raw []string) (*FilterSet, error) {
	if err := validateAll(raw); err != nil {
		return nil, err
	}
	derived := make([]string, 0, len(raw))
	for _, f := range raw {
		class, _, hasMethod := strings.Cut(f, ":")
		switch {
		case !hasMethod:
			derived = append(derived, f)
		case !strings.HasPrefix(f, "!"):
			derived = append(derived, class)
		}
	}
	return NewFilterSet(derived)
}

// MethodFilter builds the filter applied to "Class:method" candidates.
// Class-only expressions are widened to "Class:*".
func MethodFilter(raw []string) (*FilterSet, error) {
	if err := validateAll(raw); err != nil {
		return nil, err
	}
	derived := make([]string, 0, len(raw))
	for _, f := range raw {
		if !strings.Contains(f, ":") {
			f += ":*"
		}
		derived = append(derived, f)
	}
	return NewFilterSet(derived)
}

// IsIncluded reports whether candidate passes the filter.
func (fs *FilterSet) IsIncluded(candidate string) bool {
	if len(fs.excludes) > 0 && matchesAny(candidate, fs.excludes) {
		return false
	}
	if len(fs.includes) > 0 {
		return matchesAny(candidate, fs.includes)
	}
	return true
}

// Includes returns the include patterns in configuration order.
func (fs *FilterSet) Includes() []string { return raws(fs.includes) }

// Excludes returns the exclude patterns (without '!') in configuration order.
func (fs *FilterSet) Excludes() []string { return raws(fs.excludes) }

func raws(ps []pattern) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.raw
	}
	return out
}

func validateAll(raw []string) error {
	for _, f := range raw {
		if err := validateFilter(f); err != nil {
			return err
		}
	}
	return nil
}

func validateFilter(f string) error {
	for _, r := range f {
		if !allowedFilterRune(r) {
			return &InvalidFilterError{Filter: f, Reason: "disallowed character " + strconv.QuoteRune(r)}
		}
	}

	body := strings.TrimPrefix(f, "!")
	switch {
	case body == "":
		return &InvalidFilterError{Filter: f, Reason: "empty pattern"}
	case strings.Contains(body, "!"):
		return &InvalidFilterError{Filter: f, Reason: "'!' is only allowed as the first character"}
	case strings.Count(body, ":") > 1:
		return &InvalidFilterError{Filter: f, Reason: "more than one ':'"}
	}

	if class, method, ok := strings.Cut(body, ":"); ok && (class == "" || method == "") {
		return &InvalidFilterError{Filter: f, Reason: "empty class or method name around ':'"}
	}
	return nil
}

func allowedFilterRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == ':', r == '*', r == '!', r == '.':
		return true
	}
	return false
}
