package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Catalog errors
var (
	ErrServiceNotFound = errors.New("breeze service not found")
	ErrServiceExists   = errors.New("breeze service already registered")
	ErrNoModels        = errors.New("breeze service has no models")
	ErrUnknownModelSet = errors.New("unknown model set")
)

// Service is a named group of models exposed to Breeze clients under /breeze/{name}
type Service struct {
	Name   string
	Models []interface{}
}

// Catalog keeps the registered Breeze services.
// Service names are matched case-insensitively, as in the URL segment Breeze clients use.
type Catalog struct {
	mu       sync.RWMutex
	services map[string]*Service
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		services: make(map[string]*Service),
	}
}

// Register adds a service with its models, in the order they should be described
func (c *Catalog) Register(name string, models ...interface{}) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("service name is required")
	}
	if len(models) == 0 {
		return fmt.Errorf("%w: %s", ErrNoModels, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := c.services[key]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, name)
	}
	c.services[key] = &Service{
		Name:   name,
		Models: append([]interface{}(nil), models...),
	}
	return nil
}

// Lookup finds a service by name
func (c *Catalog) Lookup(name string) (*Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	svc, ok := c.services[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// Names returns the registered service names, sorted
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.services))
	for _, svc := range c.services {
		names = append(names, svc.Name)
	}
	sort.Strings(names)
	return names
}

// Binding ties a service name to a named set of models
type Binding struct {
	Name     string
	ModelSet string
}

// Load registers every binding, resolving model sets by name
func Load(c *Catalog, bindings []Binding, sets map[string][]interface{}) error {
	for _, b := range bindings {
		models, ok := sets[strings.ToLower(b.ModelSet)]
		if !ok {
			return fmt.Errorf("%w %q for service %s", ErrUnknownModelSet, b.ModelSet, b.Name)
		}
		if err := c.Register(b.Name, models...); err != nil {
			return err
		}
	}
	return nil
}
