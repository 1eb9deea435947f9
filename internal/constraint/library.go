package constraint

import (
	"sort"
	"sync"

	"github.com/constraintmcp/constraint-mcp/internal/errs"
)

// Library holds a versioned bundle of atomic and composite constraints
// keyed by id (spec §3). Admission is transactional: a composite is
// accepted only if every reference currently resolves and no cycle would be
// introduced; otherwise the library is left unchanged.
type Library struct {
	mu          sync.RWMutex
	version     string
	description string
	atomics     map[Id]AtomicConstraint
	composites  map[Id]CompositeConstraint
}

// NewLibrary constructs an empty library with the given version metadata.
func NewLibrary(version, description string) *Library {
	return &Library{
		version:     version,
		description: description,
		atomics:     make(map[Id]AtomicConstraint),
		composites:  make(map[Id]CompositeConstraint),
	}
}

// Version reports the library's version string.
func (l *Library) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Description reports the library's description.
func (l *Library) Description() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.description
}

// AddAtomic inserts an atomic constraint if its id is absent; a duplicate id
// (atomic or composite) is a Validation failure and the library is
// unchanged.
func (l *Library) AddAtomic(c AtomicConstraint) error {
	if err := c.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.idExistsLocked(c.ID) {
		return errs.New(errs.Validation, "duplicate constraint id %s", c.ID)
	}
	l.atomics[c.ID] = c
	return nil
}

// AddComposite validates that every reference resolves to an already-
// admitted atomic or composite and that the resulting graph stays acyclic.
// On failure the library is left unchanged.
func (l *Library) AddComposite(c CompositeConstraint) error {
	if err := c.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.idExistsLocked(c.ID) {
		return errs.New(errs.Validation, "duplicate constraint id %s", c.ID)
	}
	var missing []string
	for _, ref := range c.References {
		if !l.idExistsLocked(ref.ID) {
			missing = append(missing, string(ref.ID))
		}
	}
	if len(missing) > 0 {
		return errs.DanglingReferences(missing)
	}
	// Tentatively admit, then check acyclicity; roll back on failure.
	l.composites[c.ID] = c
	if chain := l.findCycleLocked(c.ID); chain != nil {
		delete(l.composites, c.ID)
		return errs.Circular(chain)
	}
	return nil
}

// Remove deletes a constraint if nothing else references it; otherwise
// returns a ConstraintInUse error.
func (l *Library) Remove(id Id) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.idExistsLocked(id) {
		return errs.NotFound(string(id))
	}
	var referers []string
	for _, c := range l.composites {
		for _, ref := range c.References {
			if ref.ID == id {
				referers = append(referers, string(c.ID))
				break
			}
		}
	}
	if len(referers) > 0 {
		return errs.InUse(string(id), referers)
	}
	delete(l.atomics, id)
	delete(l.composites, id)
	return nil
}

// Atomic returns the atomic constraint for id, if present.
func (l *Library) Atomic(id Id) (AtomicConstraint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.atomics[id]
	return c, ok
}

// Composite returns the composite constraint for id, if present.
func (l *Library) Composite(id Id) (CompositeConstraint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.composites[id]
	return c, ok
}

// All returns every admitted constraint as the tagged variant, ordered by
// id for determinism.
func (l *Library) All() []Constraint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Constraint, 0, len(l.atomics)+len(l.composites))
	for _, a := range l.atomics {
		a := a
		out = append(out, Constraint{Kind: KindAtomic, Atomic: &a})
	}
	for _, c := range l.composites {
		c := c
		out = append(out, Constraint{Kind: KindComposite, Composite: &c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (l *Library) idExistsLocked(id Id) bool {
	if _, ok := l.atomics[id]; ok {
		return true
	}
	_, ok := l.composites[id]
	return ok
}

// findCycleLocked runs a depth-first search from start over composite
// references, returning the offending chain if a cycle is found, or nil.
// Must be called with l.mu held.
func (l *Library) findCycleLocked(start Id) []string {
	visiting := make(map[Id]bool)
	var chain []Id

	var visit func(id Id) []Id
	visit = func(id Id) []Id {
		if visiting[id] {
			cycleChain := append(append([]Id{}, chain...), id)
			return cycleChain
		}
		comp, ok := l.composites[id]
		if !ok {
			return nil
		}
		visiting[id] = true
		chain = append(chain, id)
		defer func() {
			visiting[id] = false
			chain = chain[:len(chain)-1]
		}()
		for _, ref := range comp.References {
			if found := visit(ref.ID); found != nil {
				return found
			}
		}
		return nil
	}

	found := visit(start)
	if found == nil {
		return nil
	}
	strs := make([]string, len(found))
	for i, id := range found {
		strs[i] = string(id)
	}
	return strs
}
