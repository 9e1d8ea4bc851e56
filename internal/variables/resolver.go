// Package variables expands {{token}} placeholders in template text using a
// layered variable scope. Substitution is a single pass: nested or indirect
// tokens are not supported.
package variables

import (
	"fmt"
	"strings"
)

// Scope is one immutable layer of variable values.
type Scope struct {
	// Name identifies the layer in error messages, e.g. "global",
	// "env:prod", "module:ingestion".
	Name   string
	Values map[string]string
}

// ScopeStack is an ordered list of scopes searched from most-specific to
// least-specific. The first scope containing a key wins.
type ScopeStack []Scope

// NewScopeStack layers the given scopes with the most-specific first.
func NewScopeStack(mostSpecificFirst ...Scope) ScopeStack {
	return ScopeStack(mostSpecificFirst)
}

// Lookup returns the value for key from the most specific scope holding it.
func (s ScopeStack) Lookup(key string) (string, bool) {
	for _, scope := range s {
		if v, ok := scope.Values[key]; ok {
			return v, true
		}
	}
	return "", false
}

// UnresolvedVariableError reports a placeholder token left unresolved after
// scanning every scope. The whole load aborts on it, so a user never
// deploys a partially-templated resource.
type UnresolvedVariableError struct {
	Token string
	File  string
}

// Error implements the error interface.
func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable {{%s}} in %s", e.Token, e.File)
}

// Resolve substitutes every {{token}} placeholder in text using the scope
// stack. Pure function of (text, scopes); the file name is carried only for
// error reporting. Text without placeholders is returned unchanged.
func Resolve(text string, scopes ScopeStack, file string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	var out strings.Builder
	out.Grow(len(text))

	rest := text
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			// Unterminated opener is literal text, not a placeholder.
			out.WriteString(rest)
			return out.String(), nil
		}

		token := strings.TrimSpace(rest[start+2 : start+2+end])
		value, ok := scopes.Lookup(token)
		if !ok {
			return "", &UnresolvedVariableError{Token: token, File: file}
		}

		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[start+2+end+2:]
	}
}
