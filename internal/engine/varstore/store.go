// Package varstore is the read-only view of the workflow engine's variable
// store that DAG files query at definition time through Variable.get.
package varstore

import (
	"os"
	"strings"

	"github.com/bigrogerio/daedalus/internal/shared/util"
)

// DefaultEnvPrefix is the prefix Airflow uses for variables supplied through
// the environment.
const DefaultEnvPrefix = "AIRFLOW_VAR_"

// Store is an immutable key/value table. The zero value and a nil *Store are
// both empty stores. A Store is safe to share between goroutines.
type Store struct {
	values map[string]string
	// env holds environment overrides keyed by upper-cased variable key.
	env map[string]string
}

// New copies values into a new Store.
func New(values map[string]string) *Store {
	s := &Store{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Empty returns a store with no variables.
func Empty() *Store {
	return New(nil)
}

// WithEnvironment returns a copy of s that first consults environment
// entries (`KEY=VALUE` pairs) whose names start with prefix. Lookups match the
// upper-cased key, the same way Airflow resolves AIRFLOW_VAR_<KEY>.
func (s *Store) WithEnvironment(environ []string, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	out := &Store{values: s.snapshot(), env: make(map[string]string)}
	if s != nil {
		for k, v := range s.env {
			out.env[k] = v
		}
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.TrimPrefix(name, prefix)
		if key == "" {
			continue
		}
		out.env[strings.ToUpper(key)] = value
	}
	return out
}

// WithProcessEnvironment is WithEnvironment over os.Environ().
func (s *Store) WithProcessEnvironment(prefix string) *Store {
	return s.WithEnvironment(os.Environ(), prefix)
}

// Lookup returns the value for key. Environment overrides win over the
// exported values.
func (s *Store) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	if v, ok := s.env[strings.ToUpper(key)]; ok {
		return v, true
	}
	v, ok := s.values[key]
	return v, ok
}

// Len counts exported values; environment overrides are not counted.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Keys returns the exported keys in sorted order.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	return util.SortedStringKeys(s.values)
}

func (s *Store) snapshot() map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
