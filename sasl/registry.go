package sasl

import (
	"fmt"
	"sync"
)

// MechanismFactory is what a registered mechanism exposes to the
// authentication framework: session creation plus the metadata the framework
// consults during negotiation.
type MechanismFactory interface {
	Name() string
	Properties() SecurityPropertySet
	SecurityLevel() int
	IsInternalAuthMechanism() bool
	CanMakeMechanismForUser(user *UserRecord) bool
	CreateMechanism(authDatabase string) Mechanism
}

// Registry maps mechanism names to factories. Safe for concurrent use:
// registration typically happens at process start, lookups on every
// authentication attempt.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]MechanismFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]MechanismFactory)}
}

// Register adds a factory under its mechanism name. Registering the same
// name twice is a configuration error.
func (r *Registry) Register(f MechanismFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := f.Name()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("mechanism %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Create builds a session for the named mechanism. ok is false when the
// mechanism is not registered.
func (r *Registry) Create(name, authDatabase string) (Mechanism, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f.CreateMechanism(authDatabase), true
}

// Factory returns the registered factory for the named mechanism.
func (r *Registry) Factory(name string) (MechanismFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// MechanismsFor lists the registered mechanism names eligible for the given
// user.
func (r *Registry) MechanismsFor(user *UserRecord) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, f := range r.factories {
		if f.CanMakeMechanismForUser(user) {
			names = append(names, name)
		}
	}
	return names
}
