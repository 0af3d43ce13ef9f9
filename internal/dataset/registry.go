package dataset

import (
	"github.com/rotisserie/eris"
)

// Registry maps categories to their specs.
type Registry struct {
	specs map[Category]Spec
	order []Category // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with the three Aadhaar categories.
func NewRegistry() *Registry {
	r := &Registry{
		specs: make(map[Category]Spec),
	}

	r.Register(EnrolmentSpec())
	r.Register(DemographicSpec())
	r.Register(BiometricSpec())

	return r
}

// Register adds or replaces a category spec.
func (r *Registry) Register(s Spec) {
	if _, ok := r.specs[s.Category]; !ok {
		r.order = append(r.order, s.Category)
	}
	r.specs[s.Category] = s
}

// Get returns the spec for a category.
func (r *Registry) Get(c Category) (Spec, error) {
	s, ok := r.specs[c]
	if !ok {
		return Spec{}, eris.Errorf("dataset: unknown category %q", c)
	}
	return s, nil
}

// Select returns the specs for the named categories, or all of them when
// names is empty.
func (r *Registry) Select(names []string) ([]Spec, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	result := make([]Spec, 0, len(names))
	seen := make(map[Category]bool, len(names))
	for _, name := range names {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true

		s, err := r.Get(c)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

// All returns all specs in registration order.
func (r *Registry) All() []Spec {
	result := make([]Spec, 0, len(r.order))
	for _, c := range r.order {
		result = append(result, r.specs[c])
	}
	return result
}

// Categories returns all registered categories in registration order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.order))
	copy(out, r.order)
	return out
}
