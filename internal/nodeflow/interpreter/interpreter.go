// Package interpreter drives a parsed graph through the three-stage
// pipeline: parameter validation, static schema inference, and topological
// execution, including the iteration driver for loop-control pairs.
package interpreter

import (
	"context"
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/graph"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/errors"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

// Stage names as reported in progress updates.
const (
	StageParameters = "parameters"
	StageValidation = "validation"
	StageExecution  = "execution"
)

// Progress is one interpreter progress update. Percent covers stage 3 only;
// the earlier stages are quick and report 0.
type Progress struct {
	Stage   string  `json:"stage"`
	NodeID  string  `json:"node_id,omitempty"`
	Percent float64 `json:"percent"`
}

// Reporter receives progress updates during a run. Implementations must be
// cheap; the interpreter calls them inline between nodes.
type Reporter func(p Progress)

// OutputKey addresses one produced value: a node and one of its output
// ports.
type OutputKey struct {
	Node string
	Port string
}

// Result carries everything a finished run produced.
type Result struct {
	// Outputs holds every value produced at the top level, keyed by
	// (node, port). Loop-body iterations are not retained.
	Outputs map[OutputKey]*data.Data

	// Schemas is the stage-2 inference result for the same keys.
	Schemas map[OutputKey]*schema.Schema
}

// Interpreter executes graphs against a node registry. Safe for concurrent
// use; per-run state lives in the run struct.
type Interpreter struct {
	registry *node.Registry
	cfg      *config.Config
	logger   *logger.Logger
}

// New builds an interpreter over a registry.
func New(registry *node.Registry, cfg *config.Config) *Interpreter {
	return &Interpreter{
		registry: registry,
		cfg:      cfg,
		logger:   logger.New().WithField("component", "interpreter"),
	}
}

type run struct {
	in        *Interpreter
	graph     *graph.Graph
	report    Reporter
	instances map[string]*node.Instance
	schemas   map[OutputKey]*schema.Schema
	outputs   map[OutputKey]*data.Data
	total     int
	done      int
}

// Run takes a structurally valid graph through all three stages. The first
// failing stage aborts the run and its error classifies the failure; stage 1
// aggregates every parameter error before aborting. Cancellation via ctx is
// checked between nodes and between loop iterations.
func (in *Interpreter) Run(ctx context.Context, g *graph.Graph, report Reporter) (*Result, error) {
	if report == nil {
		report = func(Progress) {}
	}
	r := &run{
		in:        in,
		graph:     g,
		report:    report,
		instances: make(map[string]*node.Instance, len(g.Nodes)),
		schemas:   make(map[OutputKey]*schema.Schema),
		outputs:   make(map[OutputKey]*data.Data),
		total:     len(g.Nodes),
	}

	report(Progress{Stage: StageParameters})
	if err := r.constructAll(); err != nil {
		return nil, err
	}

	report(Progress{Stage: StageValidation})
	plan, err := r.buildPlan()
	if err != nil {
		return nil, err
	}
	if err := r.inferSteps(plan.Steps); err != nil {
		return nil, err
	}

	report(Progress{Stage: StageExecution, Percent: 0})
	if err := r.executeSteps(ctx, plan.Steps, nil); err != nil {
		return nil, err
	}

	return &Result{Outputs: r.outputs, Schemas: r.schemas}, nil
}

// constructAll is stage 1: every node is constructed and parameter-checked,
// and all failures are aggregated so the caller sees the full list at once.
func (r *run) constructAll() error {
	var failed []*errors.ParameterError
	for i := range r.graph.Nodes {
		spec := &r.graph.Nodes[i]
		inst, err := r.in.registry.Construct(node.Context{
			ID:     spec.ID,
			Type:   spec.Type,
			Params: spec.Params,
			Config: r.in.cfg,
		})
		if err != nil {
			var pe *errors.ParameterError
			if errors.As(err, &pe) {
				failed = append(failed, pe)
				continue
			}
			return err
		}
		r.instances[spec.ID] = inst
	}
	if len(failed) > 0 {
		return &errors.ParameterErrors{Errors: failed}
	}
	return nil
}

// buildPlan extracts loop roles from the constructed instances and collapses
// pairs into the execution plan.
func (r *run) buildPlan() (*graph.Plan, error) {
	roles := make(map[string]graph.LoopRole)
	for id, inst := range r.instances {
		switch impl := inst.Impl().(type) {
		case node.LoopBegin:
			roles[id] = graph.LoopRole{PairID: impl.PairID(), Kind: string(impl.Kind()), Begin: true}
		case node.LoopEnd:
			roles[id] = graph.LoopRole{PairID: impl.PairID(), Kind: string(impl.Kind())}
		}
	}
	plan, err := graph.BuildPlan(r.graph, roles)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidGraph) {
			return nil, errors.NewValidationError("", err.Error())
		}
		return nil, err
	}
	return plan, nil
}

// inputSchemas resolves a node's inbound edges against inferred schemas.
func (r *run) inputSchemas(id string) (map[string]*schema.Schema, error) {
	in := make(map[string]*schema.Schema)
	for port, e := range r.graph.Inbound(id) {
		s, ok := r.schemas[OutputKey{Node: e.Src, Port: e.SrcPort}]
		if !ok {
			return nil, fmt.Errorf("node %s: input %q wired to %s.%s which has no inferred schema", id, port, e.Src, e.SrcPort)
		}
		in[port] = s
	}
	return in, nil
}

// inferSteps is stage 2 over one plan level: schemas flow in topological
// order, first failure aborts.
func (r *run) inferSteps(steps []graph.Step) error {
	for _, step := range steps {
		if step.Loop != nil {
			if err := r.inferLoop(step.Loop); err != nil {
				return err
			}
			continue
		}
		if err := r.inferNode(step.NodeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) inferNode(id string) error {
	in, err := r.inputSchemas(id)
	if err != nil {
		return err
	}
	out, err := r.instances[id].InferSchema(in)
	if err != nil {
		return err
	}
	for port, s := range out {
		r.schemas[OutputKey{Node: id, Port: port}] = s
	}
	return nil
}

// inferLoop runs stage 2 through a collapsed pair: BEGIN's outputs are the
// per-iteration schemas seen inside the body; END's outputs are the loop's
// outward schemas.
func (r *run) inferLoop(lp *graph.LoopPlan) error {
	if err := r.inferNode(lp.BeginID); err != nil {
		return err
	}
	if err := r.inferSteps(lp.Body); err != nil {
		return err
	}
	return r.inferNode(lp.EndID)
}

// resolveInputs materializes a node's inbound edges from produced values,
// consulting the iteration-local overlay first when inside a loop body.
func (r *run) resolveInputs(id string, local map[OutputKey]*data.Data) (map[string]*data.Data, error) {
	in := make(map[string]*data.Data)
	for port, e := range r.graph.Inbound(id) {
		key := OutputKey{Node: e.Src, Port: e.SrcPort}
		if local != nil {
			if d, ok := local[key]; ok {
				in[port] = d
				continue
			}
		}
		d, ok := r.outputs[key]
		if !ok {
			return nil, errors.NewExecutionError(id,
				fmt.Sprintf("input %q wired to %s.%s which produced no value", port, e.Src, e.SrcPort))
		}
		in[port] = d
	}
	return in, nil
}

// executeSteps is stage 3 over one plan level. local is nil at the top
// level and holds per-iteration values inside a loop body; fan-out always
// shares the same immutable Data reference.
func (r *run) executeSteps(ctx context.Context, steps []graph.Step, local map[OutputKey]*data.Data) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Loop != nil {
			if err := r.executeLoop(ctx, step.Loop, local); err != nil {
				return err
			}
			continue
		}
		if err := r.executeNode(ctx, step.NodeID, local); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) executeNode(ctx context.Context, id string, local map[OutputKey]*data.Data) error {
	if local == nil {
		r.starting(id)
	}
	in, err := r.resolveInputs(id, local)
	if err != nil {
		return err
	}
	out, err := r.instances[id].Execute(in)
	if err != nil {
		return err
	}
	sink := r.outputs
	if local != nil {
		sink = local
	}
	for port, d := range out {
		sink[OutputKey{Node: id, Port: port}] = d
	}
	if local == nil {
		r.finished(1, id)
	}
	return nil
}

// executeLoop drives a collapsed pair: BEGIN builds the iterator, the body
// runs once per iteration against an iteration-local value map, END
// accumulates each iteration and finalizes once. outer is nil for a
// top-level pair and the enclosing iteration's overlay for a nested one;
// nested pairs read their BEGIN inputs from it and sink their finalize
// outputs back into it.
func (r *run) executeLoop(ctx context.Context, lp *graph.LoopPlan, outer map[OutputKey]*data.Data) error {
	begin, ok := r.instances[lp.BeginID].Impl().(node.LoopBegin)
	if !ok {
		return errors.NewExecutionError(lp.BeginID, "planned as a loop begin but does not implement one")
	}
	end, ok := r.instances[lp.EndID].Impl().(node.LoopEnd)
	if !ok {
		return errors.NewExecutionError(lp.EndID, "planned as a loop end but does not implement one")
	}

	if outer == nil {
		r.starting(lp.BeginID)
	}
	beginIn, err := r.resolveInputs(lp.BeginID, outer)
	if err != nil {
		return err
	}
	it, err := begin.Iterations(beginIn)
	if err != nil {
		return err
	}

	r.in.logger.Debug("entering loop", "pair", lp.PairID, "kind", lp.Kind, "iterations", it.Len())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		iteration, err := it.Next()
		if err != nil {
			return err
		}
		if iteration == nil {
			break
		}

		local := make(map[OutputKey]*data.Data, len(outer)+len(iteration))
		for k, d := range outer {
			local[k] = d
		}
		for port, d := range iteration {
			local[OutputKey{Node: lp.BeginID, Port: port}] = d
		}
		if err := r.executeSteps(ctx, lp.Body, local); err != nil {
			return err
		}
		endIn, err := r.resolveInputsLocal(lp.EndID, local)
		if err != nil {
			return err
		}
		if err := r.checkIterationInputs(lp.EndID, endIn); err != nil {
			return err
		}
		if err := end.Accumulate(endIn); err != nil {
			return err
		}
	}

	out, err := end.Finalize()
	if err != nil {
		return err
	}
	sink := r.outputs
	if outer != nil {
		sink = outer
	}
	for port, d := range out {
		key := OutputKey{Node: lp.EndID, Port: port}
		want, ok := r.schemas[key]
		if !ok {
			return errors.NewExecutionError(lp.EndID, fmt.Sprintf("finalize produced undeclared output %q", port))
		}
		if got := d.ExtractSchema(); !got.Equal(want) {
			return errors.NewExecutionError(lp.EndID,
				fmt.Sprintf("output %q schema drifted: inferred %s, got %s", port, want, got))
		}
		sink[key] = d
	}

	if outer == nil {
		r.finished(r.loopSize(lp), lp.EndID)
	}
	return nil
}

// checkIterationInputs re-checks an END's per-iteration inputs against the
// stage-2 schemas of their source ports. Values coming straight off a
// BEGIN's iterator bypass Instance.Execute, so this is the only place their
// drift can be caught and attributed to the producing node.
func (r *run) checkIterationInputs(endID string, in map[string]*data.Data) error {
	for port, e := range r.graph.Inbound(endID) {
		want, ok := r.schemas[OutputKey{Node: e.Src, Port: e.SrcPort}]
		if !ok {
			continue
		}
		if got := in[port].ExtractSchema(); !got.Equal(want) {
			return errors.NewExecutionError(e.Src,
				fmt.Sprintf("output %q schema drifted: inferred %s, got %s", e.SrcPort, want, got))
		}
	}
	return nil
}

// resolveInputsLocal is resolveInputs restricted to the iteration overlay;
// END's inputs are per-iteration by construction.
func (r *run) resolveInputsLocal(id string, local map[OutputKey]*data.Data) (map[string]*data.Data, error) {
	in := make(map[string]*data.Data)
	for port, e := range r.graph.Inbound(id) {
		d, ok := local[OutputKey{Node: e.Src, Port: e.SrcPort}]
		if !ok {
			return nil, errors.NewExecutionError(id,
				fmt.Sprintf("input %q wired to %s.%s which produced no per-iteration value", port, e.Src, e.SrcPort))
		}
		in[port] = d
	}
	return in, nil
}

// loopSize counts the nodes a collapsed pair accounts for in progress math.
func (r *run) loopSize(lp *graph.LoopPlan) int {
	n := 2
	for _, s := range lp.Body {
		if s.Loop != nil {
			n += r.loopSize(s.Loop)
		} else {
			n++
		}
	}
	return n
}

// starting reports that a top-level node (or pair) is about to execute;
// finished reports completion. Percent only advances on finished, so a
// starting update repeats the current figure under the new node id.
func (r *run) starting(id string) {
	percent := float64(r.done) / float64(r.total) * 100
	r.report(Progress{Stage: StageExecution, NodeID: id, Percent: percent})
}

func (r *run) finished(n int, id string) {
	r.done += n
	percent := float64(r.done) / float64(r.total) * 100
	r.report(Progress{Stage: StageExecution, NodeID: id, Percent: percent})
}
