// Package dispatcher implements the length-framed JSON-RPC 2.0 stdio loop
// (spec §4.1) that wires every other component into the request/response
// cycle: session + scheduler decide whether to inject, the context
// analyser and trigger matcher pick constraints, the composition engine
// orders them, the injector formats the reply, and the event logger
// records what happened.
package dispatcher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/composition"
	"github.com/constraintmcp/constraint-mcp/internal/config"
	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/errs"
	"github.com/constraintmcp/constraint-mcp/internal/eventlog"
	"github.com/constraintmcp/constraint-mcp/internal/injector"
	"github.com/constraintmcp/constraint-mcp/internal/scheduler"
	"github.com/constraintmcp/constraint-mcp/internal/session"
	"github.com/constraintmcp/constraint-mcp/internal/telemetry"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
	"github.com/constraintmcp/constraint-mcp/internal/triggerctx"
)

// Server owns every piece of runtime state for one stdio connection: the
// constraint library, the scheduler config, the logger sink, and the
// dispatch loop; no process-wide singletons.
type Server struct {
	Config   config.Config
	Anchors  injector.Anchors
	Library  *constraint.Library
	Resolver *constraint.Resolver
	Matcher  *trigger.Matcher
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
	Events   *eventlog.Logger
	Now      func() time.Time

	sess     *session.Session
	shutdown bool
}

// New constructs a Server ready to Run. now defaults to time.Now when nil.
func New(cfg config.Config, anchors injector.Anchors, lib *constraint.Library, matcher *trigger.Matcher, logger telemetry.Logger, metrics telemetry.Metrics, events *eventlog.Logger) *Server {
	return &Server{
		Config:   cfg,
		Anchors:  anchors,
		Library:  lib,
		Resolver: constraint.NewResolver(lib),
		Matcher:  matcher,
		Logger:   logger,
		Metrics:  metrics,
		Events:   events,
		Now:      time.Now,
	}
}

// Reload swaps in a freshly-admitted library (e.g. after an external
// hot-reload of the constraint pack) and invalidates the resolver's
// memoisation cache, per spec §5's "read-mostly... exclusive writer" model.
func (s *Server) Reload(lib *constraint.Library) {
	s.Library = lib
	s.Resolver = constraint.NewResolver(lib)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run reads length-framed JSON-RPC requests from r and writes responses to
// w until r is exhausted, shutdown is received, or a fatal transport error
// occurs. Per spec §5, requests are handled strictly in arrival order and
// responses are written in that same order; the loop never exits on a
// single bad request.
func (s *Server) Run(r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		if s.shutdown {
			return nil
		}
		frame, err := readFrame(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var req request
		if err := json.Unmarshal(frame, &req); err != nil {
			if werr := writeFrame(w, mustMarshal(errorResponse(nil, errs.CodeParseError, errs.PublicParseError))); werr != nil {
				return werr
			}
			continue
		}

		resp, isNotification := s.handle(req)
		if isNotification {
			continue
		}
		if err := writeFrame(w, mustMarshal(resp)); err != nil {
			return err
		}
	}
}

// handle dispatches one request to its method handler. The bool result
// reports whether req was a notification (no id), in which case resp is
// zero and must not be written.
func (s *Server) handle(req request) (resp response, isNotification bool) {
	if len(req.ID) == 0 || string(req.ID) == "null" {
		isNotification = true
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logError(fmt.Sprintf("panic: %v", rec))
			resp = errorResponse(req.ID, errs.CodeInternalError, errs.PublicInternalError)
		}
	}()

	switch req.Method {
	case "server.help":
		return resultResponse(req.ID, helpResult()), isNotification
	case "initialize":
		s.sess = session.New()
		return resultResponse(req.ID, initializeResult()), isNotification
	case "shutdown":
		s.shutdown = true
		s.sess = nil
		return resultResponse(req.ID, struct{}{}), isNotification
	case "tools/call":
		return s.handleToolCall(req), isNotification
	case "tools/list", "resources/list":
		return resultResponse(req.ID, map[string]any{"tools": []any{}}), isNotification
	default:
		if s.Config.UnknownMethod == config.EmptyObjectPolicy {
			return resultResponse(req.ID, struct{}{}), isNotification
		}
		return errorResponse(req.ID, errs.CodeMethodNotFound, errs.PublicMethodNotFound), isNotification
	}
}

func helpResult() map[string]any {
	return map[string]any{
		"name":    config.ServerName,
		"version": config.ServerVersion,
		"purpose": "intercepts MCP tool calls and injects methodology reminders",
		"commands": []string{
			"server.help", "initialize", "shutdown", "tools/call", "tools/list", "resources/list",
		},
	}
}

func initializeResult() map[string]any {
	return map[string]any{
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"notifications": map[string]any{
				"constraints": true,
			},
		},
		"serverInfo": map[string]any{
			"name":    config.ServerName,
			"version": config.ServerVersion,
		},
		"protocolVersion": config.ProtocolVersion,
	}
}

// handleToolCall runs the full injection pipeline (spec §2): scheduler
// decision, context extraction, trigger matching, injection formatting,
// and event logging, all bounded by the per-request deadline. The matcher,
// composition engine, and injector never suspend (spec §5), so the
// deadline is enforced by timing the pipeline rather than by racing a
// goroutine against it: only the event sink can genuinely block, and it
// enforces its own write timeout independently (internal/eventlog).
func (s *Server) handleToolCall(req request) response {
	if s.sess == nil {
		s.sess = session.New()
	}

	deadline := s.Config.RequestDeadline
	if deadline <= 0 {
		deadline = 100 * time.Millisecond
	}

	beforeTotal, beforeHits := s.Resolver.Counts()
	start := s.now()
	text := s.runPipeline(req, beforeTotal, beforeHits)
	elapsed := s.now().Sub(start)

	if elapsed > deadline {
		s.Events.Error(s.now(), s.sess.InteractionCounter, "deadline_exceeded")
		if s.Metrics != nil {
			s.Metrics.IncCounter("dispatch.deadline_exceeded", 1)
		}
		return resultResponse(req.ID, toolCallResultPayload(""))
	}
	if s.Metrics != nil {
		s.Metrics.RecordTimer("dispatch.duration", elapsed)
	}
	return resultResponse(req.ID, toolCallResultPayload(text))
}

func toolCallResultPayload(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": false,
	}
}

// runPipeline runs the deterministic, in-memory portion of the pipeline:
// it never itself suspends (spec §5), so the deadline in handleToolCall
// exists to bound pathological matcher/composition behaviour rather than
// any I/O this function performs.
func (s *Server) runPipeline(req request, beforeResolutions, beforeCacheHits uint64) string {
	start := s.now()
	n := s.sess.NextInteraction()
	now := start

	decision := scheduler.Schedule(n, s.sess.WorkflowState, schedulerConfigFrom(s.Config))
	if decision == scheduler.Pass {
		s.Events.Pass(now, n, "not-scheduled")
		return ""
	}

	var params toolCallParams
	_ = json.Unmarshal(req.Params, &params)
	tctx := triggerctx.FromToolCall(params.Name, stringArguments(params.Arguments), s.sess.ID, now)
	tctx.WorkflowState = s.sess.WorkflowState.Name
	deps := toCompositionDeps(dependencyArguments(params.Arguments))

	activations := s.Matcher.ActivateAll(s.Library.All(), tctx, now)
	if len(activations) == 0 {
		s.Events.Pass(now, n, "no-activation")
		return ""
	}

	reminders := make([]string, 0, len(activations))
	ids := make([]string, 0, len(activations))
	for _, a := range activations {
		resolved := s.composeActivation(a, tctx, deps, now)
		ids = append(ids, string(resolved.ConstraintID))
		reminders = append(reminders, s.remindersFor(resolved)...)
		s.applyPhaseTransition(resolved)
	}

	text := injector.Format(n, s.Anchors, reminders)
	dt := s.dispatchTelemetry(start, len(ids), beforeResolutions, beforeCacheHits)
	telemetry.RecordDispatch(s.Metrics, dt)
	s.Events.Inject(now, n, s.sess.WorkflowState.Name, ids, activations[0].Reason.String(), dt)
	return text
}

// dispatchTelemetry builds the DispatchTelemetry snapshot for one
// tools/call: wall-clock time spent in the pipeline since start, the
// number of constraint ids selected, and whether every resolver lookup
// this request made was a cache hit (derived from before/after counter
// deltas, since Resolver.Metrics only exposes a lifetime-average rate).
func (s *Server) dispatchTelemetry(start time.Time, selected int, beforeResolutions, beforeCacheHits uint64) telemetry.DispatchTelemetry {
	afterResolutions, afterCacheHits := s.Resolver.Counts()
	dt := telemetry.DispatchTelemetry{
		DurationMs:          s.now().Sub(start).Milliseconds(),
		SelectedConstraints: selected,
	}
	if afterResolutions > beforeResolutions {
		dt.ResolverCacheHit = afterCacheHits-beforeCacheHits == afterResolutions-beforeResolutions
	}
	return dt
}

// composeActivation consults the composition engine for a composite
// activation, replacing it with the concrete component due next (spec §2:
// "composition engine, consulting the current workflow state, reorders/
// filters activations"). Progression is kept in the session's per-
// composite composition state so a Sequential/Progressive/Layered
// composite advances one step per tool call across the whole session
// lifetime, rather than resetting every request. Atomic activations, and
// composite activations the engine has nothing to say about yet
// (OutcomeNone/OutcomeComplete), pass through unchanged.
func (s *Server) composeActivation(a trigger.Activation, ctx triggerctx.Context, deps []composition.Dependency, now time.Time) trigger.Activation {
	comp, ok := s.Library.Composite(a.ConstraintID)
	if !ok {
		return a
	}
	universe := composition.Universe{
		References: comp.References,
		Priority:   make(map[constraint.Id]constraint.Priority, len(comp.References)),
	}
	for _, ref := range comp.References {
		if resolved, err := s.Resolver.Resolve(ref.ID); err == nil {
			universe.Priority[ref.ID] = resolved.Root.PriorityValue()
		}
	}
	result, next := composition.Next(comp.Type, universe, deps, s.sess.CompositionState[comp.ID], ctx, now)
	s.sess.CompositionState[comp.ID] = next
	if result.Outcome != composition.OutcomeActivation {
		return a
	}
	return result.Activation
}

func toCompositionDeps(pairs []dependencyPair) []composition.Dependency {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]composition.Dependency, len(pairs))
	for i, p := range pairs {
		out[i] = composition.Dependency{SourceNamespace: p.Source, TargetNamespace: p.Target}
	}
	return out
}

// remindersFor expands an activation into the reminder bullets spliced into
// the response. An atomic activation (whether matched directly or selected
// by the composition engine from a composite's components) contributes its
// own authored Reminders. A composite activation the engine had nothing to
// say about contributes the concatenation of its resolved atomic
// components' reminders, in reference order (spec §4.3: a composite
// carries no reminders of its own). A resolver failure falls back to the
// activation's guidance text rather than dropping the reminder entirely.
func (s *Server) remindersFor(a trigger.Activation) []string {
	resolved, err := s.Resolver.Resolve(a.ConstraintID)
	if err != nil {
		return []string{a.Guidance}
	}
	switch resolved.Root.Kind {
	case constraint.KindAtomic:
		if len(resolved.Root.Atomic.Reminders) == 0 {
			return []string{a.Guidance}
		}
		return resolved.Root.Atomic.Reminders
	case constraint.KindComposite:
		var out []string
		collectReminders(resolved, &out)
		if len(out) == 0 {
			return []string{a.Guidance}
		}
		return out
	default:
		return []string{a.Guidance}
	}
}

func collectReminders(r constraint.Resolved, out *[]string) {
	if r.Root.Kind == constraint.KindAtomic {
		*out = append(*out, r.Root.Atomic.Reminders...)
		return
	}
	for _, component := range r.Components {
		collectReminders(component, out)
	}
}

// applyPhaseTransition moves the session to the activated atomic
// constraint's declared next phase, if any (SPEC_FULL.md supplement: a
// packfile constraint's "next_phase" metadata is the mechanism by which a
// session's workflow state ever leaves its default, see
// internal/packfile). Composite activations, and atomics without the
// metadata key, leave the workflow state unchanged.
func (s *Server) applyPhaseTransition(a trigger.Activation) {
	atomic, ok := s.Library.Atomic(a.ConstraintID)
	if !ok {
		return
	}
	next, ok := atomic.Metadata["next_phase"]
	if !ok || next == "" {
		return
	}
	s.sess.SetWorkflowState(session.WorkflowState{Name: next})
}

func schedulerConfigFrom(cfg config.Config) scheduler.Config {
	return scheduler.NewConfig(cfg.Scheduler.EveryN, cfg.Scheduler.PhaseOverrides)
}

func (s *Server) logError(msg string) {
	if s.Logger != nil {
		s.Logger.Error(context.Background(), msg)
	}
	n := 0
	if s.sess != nil {
		n = s.sess.InteractionCounter
	}
	s.Events.Error(s.now(), n, msg)
}

func mustMarshal(r response) []byte {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(errorResponse(r.ID, errs.CodeInternalError, errs.PublicInternalError))
	}
	return data
}
