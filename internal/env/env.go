package env

import (
	"os"
	"sort"
	"strings"
)

type Var map[string]string

// Env composes child process environments: the launcher's own environment as
// the base, optional launcher-wide overrides, then per-sidecar variables on
// top.
type Env struct {
	Var Var // launcher-wide overrides (K->V)
	env Var // cached base from the OS environment
}

func New() *Env {
	return &Env{Var: make(Var)}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			base[k] = kv[i+1:]
		}
	}
	e.env = base
}

// Set adds a launcher-wide override applied to every sidecar.
func (e *Env) Set(k, v string) {
	if e.Var == nil {
		e.Var = make(Var)
	}
	e.Var[k] = v
}

// Unset removes a launcher-wide override.
func (e *Env) Unset(k string) {
	if e.Var != nil {
		delete(e.Var, k)
	}
}

// Merge builds the final "K=V" environment for one sidecar. Precedence, last
// wins: OS base, then launcher-wide overrides, then perSidecar. ${VAR}
// references are expanded once against the composed map. The result is
// sorted so identical inputs produce identical slices.
func (e *Env) Merge(perSidecar map[string]string) []string {
	if e.env == nil {
		e.FromOS()
	}
	m := make(Var, len(e.env)+len(e.Var)+len(perSidecar))
	for k, v := range e.env {
		m[k] = v
	}
	for k, v := range e.Var {
		if k == "" {
			continue
		}
		m[k] = v
	}
	for k, v := range perSidecar {
		if k == "" {
			continue
		}
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+expand(v, m))
	}
	sort.Strings(out)
	return out
}

// expand performs single-pass ${VAR} substitution, no recursion.
func expand(s string, m Var) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(k string) string {
		if v, ok := m[k]; ok {
			return v
		}
		return ""
	})
}
