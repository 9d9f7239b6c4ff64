// Package runtime implements the host built-in registry (§4.5): a named
// map of host-callable functions that script CALL instructions for
// unknown function names dispatch into. GPIO/I2C/etc. host collaborators
// register into the same table; the core ships print/sleep_ms/millis.
package runtime

import (
	"fmt"
	"sync"

	"github.com/wudi/microphp/values"
)

// Builtin is a host function: it receives the call's arguments (already
// popped from the VM stack, in call order) and returns the single Value
// pushed back, or an error that the VM turns into a typed runtime error.
type Builtin func(args []values.Value) (values.Value, error)

// Registry is the built-in name -> handler table. It is effectively
// immutable during execution (§5 concurrency model): Register calls are
// expected to complete before Run, after which multiple VM contexts may
// share one Registry across threads.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[string]Builtin
	isBuiltin map[string]bool
}

// NewRegistry returns a registry pre-populated with the three required
// built-ins (print, sleep_ms, millis) bound to the given host Clock and
// output writer.
func NewRegistry(clock Clock, out Writer) *Registry {
	r := &Registry{
		handlers:  make(map[string]Builtin),
		isBuiltin: make(map[string]bool),
	}
	r.registerCore("print", printBuiltin(out))
	r.registerCore("sleep_ms", sleepBuiltin(clock))
	r.registerCore("millis", millisBuiltin(clock))
	return r
}

func (r *Registry) registerCore(name string, fn Builtin) {
	r.handlers[name] = fn
	r.isBuiltin[name] = true
}

// ErrDuplicateBuiltin is returned by Register when name already names a
// required core built-in; those names cannot be shadowed.
var ErrDuplicateBuiltin = fmt.Errorf("name is reserved for a core built-in")

// Register plugs a host-supplied built-in (GPIO, I2C, etc.) into the
// table under name. It refuses to override print/sleep_ms/millis.
func (r *Registry) Register(name string, fn Builtin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isBuiltin[name] {
		return ErrDuplicateBuiltin
	}
	r.handlers[name] = fn
	return nil
}

// Lookup returns the handler for name, if any.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}
