package trigger

import (
	"sort"
	"strings"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// axisWeights are the fixed weights from spec §4.5. phaseWeight is a
// SPEC_FULL.md supplement (spec §6): it normalises like the other three
// axes (weighted/weightSum over whatever axes a constraint actually sets),
// so a phase-only constraint still scores a clean 0/1 hit and existing
// keyword/file/context-only constraints are unaffected.
const (
	keywordWeight = 0.4
	fileWeight    = 0.3
	contextWeight = 0.3
	phaseWeight   = 0.3
)

// Boost is a confidence-boost strategy (spec §4.5): an ordered, extensible
// list of functions, each deciding whether it applies and, if so, adjusting
// the score. This is the one open extension point in the composition
// model (spec §9); the four composition strategies themselves stay closed.
type Boost interface {
	// AppliesTo reports whether this strategy should run for the given
	// constraint/context pair.
	AppliesTo(c constraint.Constraint, ctx triggerctx.Context) bool
	// ApplyBoost returns the adjusted score.
	ApplyBoost(score float64) float64
}

// TddKeywordBoost adds a small positive delta when a TDD-keyword list
// overlaps the context's keywords, the reference strategy named in spec
// §4.5.
type TddKeywordBoost struct {
	Keywords []string
	Delta    float64
}

// NewTddKeywordBoost builds the reference TDD boost strategy with its usual
// keyword list and a modest delta.
func NewTddKeywordBoost() TddKeywordBoost {
	return TddKeywordBoost{
		Keywords: []string{"red", "green", "refactor", "tdd", "failing", "passing"},
		Delta:    0.05,
	}
}

// AppliesTo reports whether any TDD keyword overlaps the context.
func (b TddKeywordBoost) AppliesTo(_ constraint.Constraint, ctx triggerctx.Context) bool {
	joined := ctx.JoinedKeywords()
	for _, kw := range b.Keywords {
		if strings.Contains(joined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ApplyBoost adds the configured delta.
func (b TddKeywordBoost) ApplyBoost(score float64) float64 {
	return score + b.Delta
}

// Matcher scores constraints against a TriggerContext and selects the
// top-K activations.
type Matcher struct {
	boosts               []Boost
	maxActiveConstraints int
}

// Options configures a Matcher.
type Options struct {
	Boosts               []Boost
	MaxActiveConstraints int
}

// New builds a Matcher. MaxActiveConstraints defaults to 2 (spec §4.5) when
// zero or negative.
func New(opts Options) *Matcher {
	max := opts.MaxActiveConstraints
	if max <= 0 {
		max = 2
	}
	return &Matcher{boosts: opts.Boosts, maxActiveConstraints: max}
}

// Score computes the relevance score and reason for one constraint against
// ctx, per spec §4.5. It does not apply boosts or the confidence-threshold
// gate; call Activate for the full per-constraint decision.
func Score(t constraint.TriggerConfiguration, ctx triggerctx.Context) (float64, Reason) {
	if len(t.AntiPatterns) > 0 && antiPatternMatches(t.AntiPatterns, ctx) {
		return 0, Unknown
	}

	var (
		weighted   float64
		weightSum  float64
		keywordHit bool
		fileHit    bool
		contextHit bool
		phaseHit   bool
	)

	if len(t.Keywords) > 0 {
		weightSum += keywordWeight
		frac := keywordFraction(t.Keywords, ctx)
		weighted += keywordWeight * frac
		keywordHit = frac > 0
	}
	if len(t.FilePatterns) > 0 {
		weightSum += fileWeight
		hit := ctx.FilePath != "" && constraint.MatchAnyFilePattern(t.FilePatterns, ctx.FilePath)
		if hit {
			weighted += fileWeight
		}
		fileHit = hit
	}
	if len(t.ContextPatterns) > 0 {
		weightSum += contextWeight
		hit := contextPatternMatches(t.ContextPatterns, ctx)
		if hit {
			weighted += contextWeight
		}
		contextHit = hit
	}
	if len(t.Phases) > 0 {
		weightSum += phaseWeight
		hit := phasePatternMatches(t.Phases, ctx)
		if hit {
			weighted += phaseWeight
		}
		phaseHit = hit
	}

	if weightSum == 0 {
		return 0, Unknown
	}

	score := weighted / weightSum

	hitCount := 0
	var reason Reason
	if keywordHit {
		hitCount++
		reason = KeywordMatch
	}
	if fileHit {
		hitCount++
		reason = FilePatternMatch
	}
	if contextHit {
		hitCount++
		reason = ContextPatternMatch
	}
	if phaseHit {
		hitCount++
		reason = PhaseMatch
	}
	if hitCount > 1 {
		reason = CombinedFactors
	} else if hitCount == 0 {
		reason = Unknown
	}

	return score, reason
}

func keywordFraction(targets []string, ctx triggerctx.Context) float64 {
	if len(targets) == 0 {
		return 0
	}
	joined := ctx.JoinedKeywords()
	matched := 0
	for _, target := range targets {
		if strings.Contains(joined, strings.ToLower(target)) {
			matched++
		}
	}
	return float64(matched) / float64(len(targets))
}

func contextPatternMatches(patterns []string, ctx triggerctx.Context) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, ctx.ContextType) {
			return true
		}
	}
	return false
}

// phasePatternMatches reports whether any pattern names the session's
// current workflow state, the axis a packfile-loaded constraint's phases
// are matched against (spec §6).
func phasePatternMatches(patterns []string, ctx triggerctx.Context) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, ctx.WorkflowState) {
			return true
		}
	}
	return false
}

func antiPatternMatches(antiPatterns []string, ctx triggerctx.Context) bool {
	joined := ctx.JoinedKeywords()
	for _, p := range antiPatterns {
		lower := strings.ToLower(p)
		if strings.Contains(joined, lower) || strings.EqualFold(p, ctx.ContextType) {
			return true
		}
	}
	return false
}

// Activate scores c against ctx, applies every boost strategy in
// declaration order (clamping to [0,1]), and reports whether the result
// activates (score > 0 and score >= the constraint's confidence
// threshold).
func (m *Matcher) Activate(c constraint.Constraint, ctx triggerctx.Context, now time.Time) (Activation, bool) {
	trig := c.TriggerConfig()
	score, reason := Score(trig, ctx)
	for _, b := range m.boosts {
		if b.AppliesTo(c, ctx) {
			score = b.ApplyBoost(score)
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if score <= 0 || score < trig.ConfidenceThreshold {
		return Activation{}, false
	}
	return Activation{
		ConstraintID: c.ID(),
		Score:        score,
		Reason:       reason,
		Guidance:     guidanceFor(c, reason),
		Timestamp:    now,
	}, true
}

func guidanceFor(c constraint.Constraint, reason Reason) string {
	switch c.Kind {
	case constraint.KindAtomic:
		return c.Atomic.Title
	case constraint.KindComposite:
		return c.Composite.Title
	default:
		return reason.String()
	}
}

// ActivateAll scores every constraint in candidates, keeps the ones that
// activate, orders them by score descending, and truncates to
// MaxActiveConstraints (spec §4.5's top-K selection).
func (m *Matcher) ActivateAll(candidates []constraint.Constraint, ctx triggerctx.Context, now time.Time) []Activation {
	activations := make([]Activation, 0, len(candidates))
	for _, c := range candidates {
		if a, ok := m.Activate(c, ctx, now); ok {
			activations = append(activations, a)
		}
	}
	sort.SliceStable(activations, func(i, j int) bool {
		return activations[i].Score > activations[j].Score
	})
	if len(activations) > m.maxActiveConstraints {
		activations = activations[:m.maxActiveConstraints]
	}
	return activations
}

// MaxActiveConstraints reports the matcher's configured top-K bound.
func (m *Matcher) MaxActiveConstraints() int {
	return m.maxActiveConstraints
}
