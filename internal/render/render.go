// Package render substitutes member attributes and built-in variables
// into operator-authored message templates.
//
// A placeholder is a run of letters, digits or underscores wrapped in
// braces: {region}. Double braces ({{region}}) are accepted as well, and a
// trailing "Value" suffix ({regionValue}) resolves to the same field as the
// bare name. Unknown placeholders render as the empty string. Malformed
// brace runs are left as literal text.
//
// Templates written in a rich-text editor are cleaned up first: paragraph,
// div and line-break markup becomes newlines, and every tag outside the
// chat client's allow-list is removed. The result is always valid for the
// client's HTML mode: literal text is escaped and unbalanced tags are
// shown as text.
package render

import (
	"html"
	"regexp"
	"strings"
)

// Built-in variable names.
const (
	VarName   = "name"
	VarUser   = "user"
	VarStatus = "status"
	VarGroup  = "group"
	VarStreak = "streak"
	VarTotal  = "total"
	VarCount  = "count"
	VarDate   = "date"
	VarCode   = "code"
)

var builtins = map[string]bool{
	VarName: true, VarUser: true, VarStatus: true, VarGroup: true,
	VarStreak: true, VarTotal: true, VarCount: true, VarDate: true,
	VarCode: true,
}

// IsBuiltin reports whether name is a built-in variable.
func IsBuiltin(name string) bool {
	return builtins[name]
}

// valueSuffix marks the older placeholder dialect ({regionValue}).
const valueSuffix = "Value"

var placeholderPattern = regexp.MustCompile(`\{\{([\p{L}\p{N}_]+)\}\}|\{([\p{L}\p{N}_]+)\}`)

var namePattern = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// ValidName reports whether name can be referenced from a placeholder.
func ValidName(name string) bool {
	return len(name) <= 64 && namePattern.MatchString(name)
}

// Vars holds the built-in variables for one render call. Built-ins take
// precedence over attributes with the same name.
type Vars map[string]string

// Render returns tmpl with every placeholder replaced. It never fails:
// missing values become "", malformed placeholders pass through.
// Attribute values are HTML-escaped because the output is sent with HTML
// parse mode.
func Render(tmpl string, attrs map[string]string, vars Vars) string {
	text := Clean(tmpl)
	if !strings.Contains(text, "{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.Trim(match, "{}")
		return html.EscapeString(lookup(key, attrs, vars))
	})
}

// Placeholders returns the distinct field names referenced by tmpl, in
// order of first appearance, with the "Value" suffix stripped.
func Placeholders(tmpl string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(Clean(tmpl), -1) {
		key := m[1]
		if key == "" {
			key = m[2]
		}
		key = stripSuffix(key)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func lookup(key string, attrs map[string]string, vars Vars) string {
	if v, ok := vars[key]; ok {
		return v
	}
	if v, ok := attrs[key]; ok {
		return v
	}
	base := stripSuffix(key)
	if base == key {
		return ""
	}
	if v, ok := vars[base]; ok {
		return v
	}
	return attrs[base]
}

func stripSuffix(key string) string {
	if len(key) > len(valueSuffix) && strings.HasSuffix(key, valueSuffix) {
		return strings.TrimSuffix(key, valueSuffix)
	}
	return key
}
