// Package lab drives a topology through its lifecycle: create, destroy,
// show, feature toggles and graph export.
//
// Every action is a sequence of batches. A batch attempts all of its items
// and reports which ones failed; a failed item never stops the run.
package lab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"meshtopo/internal/check"
	"meshtopo/internal/cluster"
	"meshtopo/internal/config"
	"meshtopo/internal/mesh"
	"meshtopo/internal/resource"
	"meshtopo/internal/telemetry"
	"meshtopo/internal/topology"
)

// Action names, also used as run records.
const (
	ActionCreate  = "create"
	ActionDestroy = "destroy"
	ActionShow    = "show"
	ActionEIF     = "enable-ip-forwarding"
	ActionLLDP    = "enable-lldp"
	ActionGraph   = "export-graph"
)

// Option configures a Driver.
type Option func(*Driver)

// WithMesh wires links through agent once workloads are running.
func WithMesh(agent *mesh.Agent) Option {
	check.Assert(agent != nil, "WithMesh: agent must not be nil")
	return func(d *Driver) { d.agent = agent }
}

// WithRunLog records every action in log.
func WithRunLog(log cluster.RunLog) Option {
	check.Assert(log != nil, "WithRunLog: run log must not be nil")
	return func(d *Driver) { d.runs = log }
}

func WithTracer(tracer trace.Tracer) Option {
	check.Assert(tracer != nil, "WithTracer: tracer must not be nil")
	return func(d *Driver) { d.tracer = tracer }
}

func WithPollPolicy(p PollPolicy) Option {
	return func(d *Driver) { d.poll = p }
}

func WithLogger(log *slog.Logger) Option {
	check.Assert(log != nil, "WithLogger: logger must not be nil")
	return func(d *Driver) { d.log = log }
}

// WithClock replaces the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// Driver runs lab actions for one topology.
type Driver struct {
	settings   *config.Settings
	graph      *topology.Graph
	ports      []topology.PortAssignment
	synth      *resource.Synthesizer
	cluster    cluster.Cluster
	topologies cluster.MeshTopologies

	agent  *mesh.Agent
	runs   cluster.RunLog
	tracer trace.Tracer
	poll   PollPolicy
	log    *slog.Logger
	now    func() time.Time
}

// New builds the topology graph of settings and returns a driver for it.
// Graph problems are logged and the best-effort graph is kept.
func New(settings *config.Settings, c cluster.Cluster, topologies cluster.MeshTopologies, opts ...Option) *Driver {
	check.Assert(settings != nil, "New: settings must not be nil")
	check.Assert(c != nil, "New: cluster must not be nil")
	check.Assert(topologies != nil, "New: topologies must not be nil")

	d := &Driver{
		settings:   settings,
		synth:      resource.New(settings),
		cluster:    c,
		topologies: topologies,
		tracer:     noop.NewTracerProvider().Tracer("meshtopo"),
		poll:       DefaultPollPolicy(),
		log:        slog.With("component", "lab", "topology", settings.Prefix),
		now:        time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.prepare()
	return d
}

// prepare builds the full graph, then schedules and expands it. Expansion
// never starts before construction has finished.
func (d *Driver) prepare() {
	g, err := topology.Build(d.settings.Entries, d.settings.BuildOptions())
	if err != nil {
		d.log.Warn("topology has invalid entries", "err", err)
	}
	if err := g.Validate(); err != nil {
		d.log.Warn("topology graph is inconsistent", "err", err)
	}
	topology.ScheduleStartup(g, d.settings.Startup)
	if err := topology.ExpandAll(g); err != nil {
		d.log.Warn("link expansion failed", "err", err)
	}

	ports, err := topology.AllocatePorts(g.Registry.Devices(), d.settings.Publish)
	if err != nil {
		d.log.Warn("skipping port publishing", "err", err)
	}
	d.graph = g
	d.ports = ports
}

// Graph returns the expanded topology graph.
func (d *Driver) Graph() *topology.Graph { return d.graph }

// Ports returns the allocated port assignments.
func (d *Driver) Ports() []topology.PortAssignment { return d.ports }

// Outcome is the result of one action.
type Outcome struct {
	RunID   string
	Action  string
	Batches []*BatchResult
}

// OK reports whether every batch of the action fully succeeded.
func (o *Outcome) OK() bool {
	for _, b := range o.Batches {
		if !b.OK() {
			return false
		}
	}
	return true
}

// run wraps one action: it assigns a run ID, opens the action span, logs
// each batch and records the run.
type run struct {
	d   *Driver
	op  *telemetry.Operation
	out *Outcome
	log *slog.Logger
}

func (d *Driver) begin(ctx context.Context, action string, steps ...string) (*run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	plan := telemetry.Plan{Steps: make([]telemetry.PlannedStep, 0, len(steps))}
	for _, s := range steps {
		plan.Steps = append(plan.Steps, telemetry.PlannedStep{ID: s, Title: s})
	}
	op, err := telemetry.EmitPlan(ctx, d.tracer, action, id.String(), plan)
	if err != nil {
		return nil, err
	}
	op.Annotate(
		attribute.String("meshtopo.namespace", d.settings.Namespace),
		attribute.Int("meshtopo.devices", d.graph.Registry.Len()),
	)
	r := &run{
		d:   d,
		op:  op,
		out: &Outcome{RunID: id.String(), Action: action},
		log: d.log.With("run", id.String(), "action", action),
	}
	r.log.Debug("starting action")
	return r, nil
}

// step runs fn as a traced step. fn returns the batch it produced, if any.
func (r *run) step(id string, fn func(context.Context) (*BatchResult, error)) error {
	return r.op.RunStep(r.op.Context(), id, func(ctx context.Context) error {
		b, err := fn(ctx)
		if b != nil {
			b.Log(r.log)
			r.out.Batches = append(r.out.Batches, b)
		}
		return err
	})
}

func (r *run) end(ctx context.Context, err error) (*Outcome, error) {
	r.op.End(err)
	if r.d.runs != nil {
		rec := cluster.Run{
			ID:        r.out.RunID,
			Action:    r.out.Action,
			Namespace: r.d.settings.Namespace,
			Prefix:    r.d.settings.Prefix,
			At:        r.d.now(),
		}
		for _, b := range r.out.Batches {
			rec.Succeeded += len(b.Succeeded)
			rec.Failed += len(b.Failed)
		}
		if recErr := r.d.runs.RecordRun(ctx, rec); recErr != nil {
			r.log.Warn("failed to record run", "err", recErr)
		}
	}
	return r.out, err
}

func (d *Driver) devicesOf(pred func(*topology.Device) bool) []*topology.Device {
	var out []*topology.Device
	for _, dev := range d.graph.Registry.Devices() {
		if pred == nil || pred(dev) {
			out = append(out, dev)
		}
	}
	return out
}
