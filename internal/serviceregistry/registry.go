// Package serviceregistry is a type-keyed service container: components
// register themselves once by type, the node starts all of them in
// registration order and stops them in reverse order, and later-registered
// services can look up
// earlier ones by type to wire their dependencies, mirroring how the
// sentinel node assembles its components at construction time.
package serviceregistry

import (
	"fmt"
	"reflect"
	"sync"
)

// Service is anything the registry can start and stop together with every
// other registered service.
type Service interface {
	Start()
	Stop() error
	Status() error
}

// Registry tracks a node's services keyed by their concrete type. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	services map[reflect.Type]Service
	order    []reflect.Type
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{services: make(map[reflect.Type]Service)}
}

// RegisterService adds service to the registry, keyed by its concrete type.
// Registering the same type twice is an error.
func (r *Registry) RegisterService(service Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := reflect.TypeOf(service)
	if _, exists := r.services[kind]; exists {
		return fmt.Errorf("service already registered: %s", kind)
	}
	r.services[kind] = service
	r.order = append(r.order, kind)
	return nil
}

// FetchService populates service, which must be a non-nil pointer to a
// variable whose type is exactly a registered service's concrete type.
// Interface-typed targets are not matched.
func (r *Registry) FetchService(service interface{}) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pointer := reflect.ValueOf(service)
	if pointer.Kind() != reflect.Ptr {
		return fmt.Errorf("input must be of pointer type, got %T", service)
	}
	element := pointer.Elem()
	kind := element.Type()
	if running, ok := r.services[kind]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return fmt.Errorf("unknown service: %s", kind)
}

// StartAll starts every registered service in registration order.
func (r *Registry) StartAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range r.order {
		log.WithField("service", kind).Info("starting service")
		r.services[kind].Start()
	}
}

// StopAll stops every registered service in reverse registration order,
// continuing past individual failures so every service gets a chance to
// release its resources.
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		kind := r.order[i]
		if err := r.services[kind].Stop(); err != nil {
			log.WithError(err).WithField("service", kind).Error("failed to stop service")
		}
	}
}

// Statuses reports the Status() of every registered service, keyed by type
// name.
func (r *Registry) Statuses() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]error, len(r.order))
	for _, kind := range r.order {
		out[kind.String()] = r.services[kind].Status()
	}
	return out
}
