package constraint

import (
	"sync"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/errs"
)

// maxResolveDepth bounds the defensive cycle-detection DFS (spec §4.3): a
// cycle that slipped past admission cannot recurse past the library's
// total constraint count, so this is a generous, fixed backstop rather
// than a tuned value.
const maxResolveDepth = 4096

// Resolved is the fully-materialised form of a constraint: for an atomic
// constraint, itself; for a composite, itself plus its resolved components
// in reference order.
type Resolved struct {
	Root       Constraint
	Components []Resolved
}

// ResolverMetrics is the snapshot exposed by (*Resolver).Metrics (spec
// §4.3, supplemented in SPEC_FULL.md as a concrete query method).
type ResolverMetrics struct {
	TotalResolutions   uint64
	CacheHitRate       float64
	AvgResolutionTime  time.Duration
	PeakResolutionTime time.Duration
}

// Resolver resolves constraint references against a Library, recursively
// expanding composites into their component constraints, memoising results
// by id.
type Resolver struct {
	lib *Library

	mu                sync.Mutex
	cache             map[Id]Resolved
	totalResolutions  uint64
	cacheHits         uint64
	totalResolveNanos int64
	peakResolveNanos  int64
}

// NewResolver constructs a Resolver over lib.
func NewResolver(lib *Library) *Resolver {
	return &Resolver{lib: lib, cache: make(map[Id]Resolved)}
}

// InvalidateCache drops all memoised resolutions, e.g. after a library
// hot-reload (SPEC_FULL.md supplement).
func (r *Resolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[Id]Resolved)
}

// Resolve returns the fully-materialised constraint for id, expanding
// composite references recursively. Subsequent calls for the same id
// return the cached instance until the cache is invalidated.
func (r *Resolver) Resolve(id Id) (Resolved, error) {
	start := time.Now()
	r.mu.Lock()
	if cached, ok := r.cache[id]; ok {
		r.totalResolutions++
		r.cacheHits++
		r.recordDurationLocked(time.Since(start))
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	resolved, err := r.resolveUncached(id, nil, 0)

	r.mu.Lock()
	r.totalResolutions++
	r.recordDurationLocked(time.Since(start))
	if err == nil {
		r.cache[id] = resolved
	}
	r.mu.Unlock()

	return resolved, err
}

func (r *Resolver) resolveUncached(id Id, visiting map[Id]bool, depth int) (Resolved, error) {
	if depth > maxResolveDepth {
		return Resolved{}, errs.Circular([]string{string(id)})
	}
	if visiting == nil {
		visiting = make(map[Id]bool)
	}
	if visiting[id] {
		return Resolved{}, errs.Circular([]string{string(id)})
	}

	if atomic, ok := r.lib.Atomic(id); ok {
		return Resolved{Root: Constraint{Kind: KindAtomic, Atomic: &atomic}}, nil
	}

	composite, ok := r.lib.Composite(id)
	if !ok {
		return Resolved{}, errs.NotFound(string(id))
	}

	nextVisiting := make(map[Id]bool, len(visiting)+1)
	for k := range visiting {
		nextVisiting[k] = true
	}
	nextVisiting[id] = true

	components := make([]Resolved, 0, len(composite.References))
	for _, ref := range composite.References {
		comp, err := r.resolveUncached(ref.ID, nextVisiting, depth+1)
		if err != nil {
			if ce, ok := err.(*errs.Error); ok && ce.Kind == errs.CircularReference {
				if chain, ok := ce.Detail.([]string); ok {
					return Resolved{}, errs.Circular(append([]string{string(id)}, chain...))
				}
			}
			return Resolved{}, err
		}
		components = append(components, comp)
	}

	compositeCopy := composite
	return Resolved{
		Root:       Constraint{Kind: KindComposite, Composite: &compositeCopy},
		Components: components,
	}, nil
}

func (r *Resolver) recordDurationLocked(d time.Duration) {
	n := d.Nanoseconds()
	r.totalResolveNanos += n
	if n > r.peakResolveNanos {
		r.peakResolveNanos = n
	}
}

// Counts returns the raw resolution/cache-hit counters backing Metrics.
// The dispatcher uses before/after deltas across a single request to
// derive a per-request cache-hit flag for its DispatchTelemetry snapshot,
// since Metrics' CacheHitRate is a lifetime average and cannot answer "was
// this particular request served from cache" (SPEC_FULL.md supplement).
func (r *Resolver) Counts() (total, hits uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalResolutions, r.cacheHits
}

// Metrics returns a snapshot of resolver performance counters.
func (r *Resolver) Metrics() ResolverMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := ResolverMetrics{
		TotalResolutions:   r.totalResolutions,
		PeakResolutionTime: time.Duration(r.peakResolveNanos),
	}
	if r.totalResolutions > 0 {
		m.CacheHitRate = float64(r.cacheHits) / float64(r.totalResolutions)
		m.AvgResolutionTime = time.Duration(r.totalResolveNanos / int64(r.totalResolutions))
	}
	return m
}
