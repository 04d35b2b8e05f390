package topology

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/control"
	"github.com/bilirumine/engine/internal/model"
	imgpipe "github.com/bilirumine/engine/internal/pipeline/image"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/runid"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// edgeBuffer sizes every forward queue channel. The scheduler's own task
// FIFO (internal/scheduler.Scheduler.queue) is the real unbounded buffer;
// the channel feeding it only needs enough slack that a producer never
// blocks on a consumer mid-drain-round.
const edgeBuffer = 64

// feedbackBuffer is the feedback edge's capacity. A bounded feedback
// channel needs capacity >= 2 to avoid self-deadlock with fresh stdin
// input competing for the same downstream queue.
const feedbackBuffer = 8

// ImageDeps bundles every collaborator the image topology wires together.
type ImageDeps struct {
	Sets    *state.Sets
	Ring    *ring.Ring
	Model   model.Model
	Cache   clip.Cache
	Passes  []imgpipe.Pass
	// JitterFactor overrides the Extend stage's outpaint jitter bound; zero
	// leaves imgpipe.DefaultJitterFactor in effect.
	JitterFactor float64
	Logger       *zap.Logger
	Metrics      MetricsSink
	Events       EventSink
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// MetricsSink is the subset of opsmetrics.Metrics the topology records to,
// kept as an interface here so topology has no import-time dependency on
// the concrete Prometheus collector types.
type MetricsSink interface {
	ObserveRing(name string, next, generation int64)
	ObserveScheduler(stage string, pending int64, paused int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRing(string, int64, int64)    {}
func (nopMetrics) ObserveScheduler(string, int64, int) {}

// EventSink is the subset of opsserver.Server's API the topology publishes
// structured events to, kept as an interface for the same reason as
// MetricsSink: no import-time coupling to the concrete websocket server.
type EventSink interface {
	Publish(stage, kind string, fields map[string]interface{})
}

type nopEvents struct{}

func (nopEvents) Publish(string, string, map[string]interface{}) {}

type feedbackEdge struct {
	State   state.State
	Payload tensor.Payload
}

// Image wires the five-stage image pipeline topology (Read, Extend, Detail,
// Interpolate, Write) plus the Detail -> Read feedback edge.
type Image struct {
	deps ImageDeps

	read   *imgpipe.Read
	extend *imgpipe.Extend
	detail *imgpipe.Detail
	interp *imgpipe.Interpolate
	write  *imgpipe.Write

	stdinR *control.Reader
	stdout *control.Writer
	stderr *control.Writer

	feedback chan feedbackEdge

	toExtend chan scheduler.Task
	toDetail chan scheduler.Task
	toInterp chan scheduler.Task
	toWrite  chan scheduler.Task

	fromExtend chan scheduler.Result
	fromDetail chan scheduler.Result
	fromInterp chan scheduler.Result
	fromWrite  chan scheduler.Result

	schedExtend *scheduler.Scheduler
	schedDetail *scheduler.Scheduler
	schedInterp *scheduler.Scheduler
	schedWrite  *scheduler.Scheduler
}

// NewImage constructs the image topology. Run must be called to start it.
func NewImage(deps ImageDeps) *Image {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Events == nil {
		deps.Events = nopEvents{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	extend := imgpipe.NewExtend(deps.Model, deps.Cache)
	if deps.JitterFactor != 0 {
		extend.JitterFactor = deps.JitterFactor
	}

	t := &Image{
		deps:   deps,
		read:   imgpipe.NewRead(deps.Sets, deps.Ring),
		extend: extend,
		detail: imgpipe.NewDetail(deps.Model, deps.Cache),
		interp: imgpipe.NewInterpolate(deps.Model, deps.Passes),
		write:  imgpipe.NewWrite(deps.Ring),

		stdinR: control.NewReader(deps.Stdin),
		stdout: control.NewWriter(deps.Stdout),
		stderr: control.NewWriter(deps.Stderr),

		feedback: make(chan feedbackEdge, feedbackBuffer),

		toExtend: make(chan scheduler.Task, edgeBuffer),
		toDetail: make(chan scheduler.Task, edgeBuffer),
		toInterp: make(chan scheduler.Task, edgeBuffer),
		toWrite:  make(chan scheduler.Task, edgeBuffer),

		fromExtend: make(chan scheduler.Result, edgeBuffer),
		fromDetail: make(chan scheduler.Result, edgeBuffer),
		fromInterp: make(chan scheduler.Result, edgeBuffer),
		fromWrite:  make(chan scheduler.Result, edgeBuffer),
	}

	t.schedExtend = scheduler.New(deps.Sets, t.toExtend, t.fromExtend)
	t.schedDetail = scheduler.New(deps.Sets, t.toDetail, t.fromDetail)
	t.schedInterp = scheduler.New(deps.Sets, t.toInterp, t.fromInterp)
	t.schedWrite = scheduler.New(deps.Sets, t.toWrite, t.fromWrite)

	return t
}

// Schedulers exposes each stage's scheduler keyed by stage name, for an ops
// surface to register against GET /scheduler/:stage.
func (t *Image) Schedulers() map[string]*scheduler.Scheduler {
	return map[string]*scheduler.Scheduler{
		"extend": t.schedExtend,
		"detail": t.schedDetail,
		"interp": t.schedInterp,
		"write":  t.schedWrite,
	}
}

// Run starts every worker goroutine and blocks until ctx is cancelled or
// stdin reaches EOF, at which point it returns nil for a clean exit.
func (t *Image) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	spawn(func() { t.schedExtend.Run(ctx) })
	spawn(func() { t.schedDetail.Run(ctx) })
	spawn(func() { t.schedInterp.Run(ctx) })
	spawn(func() { t.schedWrite.Run(ctx) })

	spawn(func() { t.relayExtend(ctx) })
	spawn(func() { t.relayDetail(ctx) })
	spawn(func() { t.relayInterp(ctx) })
	spawn(func() { t.relayWrite(ctx) })

	spawn(func() { t.feedbackLoop(ctx) })

	readErr := t.stdinLoop(ctx)

	cancel()
	wg.Wait()
	return readErr
}

// stdinLoop is the Read stage's primary input source. It returns nil on
// clean EOF and a non-nil error only for an I/O failure distinct from EOF;
// malformed lines are logged and skipped.
func (t *Image) stdinLoop(ctx context.Context) error {
	for {
		st, err := t.stdinR.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *control.ParseError
			if errors.As(err, &perr) {
				_ = t.stderr.EmitDiagnostic("parse error: %v", perr.Err)
				continue
			}
			return err
		}

		t.read.ApplySets(st)

		payload, ok, merr := t.read.Materialize(st)
		if merr != nil {
			_ = t.stderr.EmitDiagnostic("load error: %v", merr)
			t.deps.Logger.Warn("image read materialize failed", zap.Error(merr), zap.Int64("version", st.Version))
			continue
		}
		if !ok {
			continue
		}

		t.submitExtend(ctx, st, payload)
	}
}

// feedbackLoop consumes the Detail -> Read edge: a merged state plus a
// resolved seed payload, submitted directly into the Extend queue without
// re-running Materialize (the feedback payload is already resolved).
func (t *Image) feedbackLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case edge, ok := <-t.feedback:
			if !ok {
				return
			}
			t.submitExtend(ctx, edge.State, edge.Payload)
		}
	}
}

func (t *Image) submitExtend(ctx context.Context, st state.State, payload tensor.Payload) {
	task := scheduler.Task{
		State:  st,
		Inputs: payload,
		Step:   t.extend.Steps(ctx, st, payload),
	}
	t.deps.Logger.Debug("submitting extend task",
		zap.String("task_id", runid.NewTaskID().String()),
		zap.Int64("version", st.Version))
	select {
	case <-ctx.Done():
	case t.toExtend <- task:
	}
	_, paused := t.deps.Sets.Snapshot()
	t.deps.Metrics.ObserveScheduler("extend", t.schedExtend.Pending(), paused)
}

func (t *Image) relayExtend(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromExtend:
			if !ok {
				return
			}
			out, _ := res.Output.(imgpipe.ExtendOutput)
			if out.Err != nil {
				t.deps.Logger.Error("extend stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}
			task := scheduler.Task{
				State:  res.State,
				Inputs: out,
				Step:   t.detail.Steps(ctx, res.State, out),
			}
			select {
			case <-ctx.Done():
				return
			case t.toDetail <- task:
			}
		}
	}
}

func (t *Image) relayDetail(ctx context.Context) {
	loadSeed := func(st state.State) (tensor.Payload, bool) {
		payload, ok, err := t.read.Materialize(st)
		if err != nil {
			t.deps.Logger.Warn("feedback seed load failed", zap.Error(err), zap.Int64("version", st.Version))
			return tensor.Payload{}, false
		}
		return payload, ok
	}

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromDetail:
			if !ok {
				return
			}
			out, _ := res.Output.(imgpipe.DetailOutput)
			if out.Err != nil {
				t.deps.Logger.Error("detail stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}

			if fbState, fbPayload, fbOK := imgpipe.Feedback(res.State, out.Decoded, loadSeed); fbOK {
				select {
				case <-ctx.Done():
					return
				case t.feedback <- feedbackEdge{State: fbState, Payload: fbPayload}:
				}
			}

			if !res.State.Full {
				task := scheduler.Task{
					State:  res.State,
					Inputs: out.Decoded,
					Step:   t.write.Steps(res.State, out.Decoded),
				}
				select {
				case <-ctx.Done():
					return
				case t.toWrite <- task:
				}
				continue
			}

			task := scheduler.Task{
				State:  res.State,
				Inputs: out,
				Step:   t.interp.Steps(ctx, res.State, out),
			}
			select {
			case <-ctx.Done():
				return
			case t.toInterp <- task:
			}
		}
	}
}

func (t *Image) relayInterp(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromInterp:
			if !ok {
				return
			}
			out, _ := res.Output.(imgpipe.InterpolateOutput)
			if out.Err != nil {
				t.deps.Logger.Error("interpolate stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}
			task := scheduler.Task{
				State:  res.State,
				Inputs: out.Frames,
				Step:   t.write.Steps(res.State, out.Frames),
			}
			select {
			case <-ctx.Done():
				return
			case t.toWrite <- task:
			}
		}
	}
}

func (t *Image) relayWrite(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromWrite:
			if !ok {
				return
			}
			out, _ := res.Output.(imgpipe.WriteOutput)
			if out.Err != nil {
				t.deps.Logger.Error("write stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}

			completion := control.ImageCompletion{
				Version:     res.State.Version,
				Tags:        res.State.Tags,
				Loop:        res.State.Loop,
				Description: res.State.Positive,
				Width:       out.Width,
				Height:      out.Height,
				Count:       out.Count,
				Offset:      out.Offset,
				Size:        out.Size,
				Generation:  out.Generation,
			}
			if err := t.stdout.Emit(completion); err != nil {
				t.deps.Logger.Error("emit completion failed", zap.Error(err), zap.Int64("version", res.State.Version))
			}

			_, next, generation, _ := t.deps.Ring.Snapshot()
			t.deps.Metrics.ObserveRing(t.deps.Ring.Path(), next, generation)
			t.deps.Events.Publish("write", "completion", map[string]interface{}{
				"version": res.State.Version,
				"width":   out.Width,
				"height":  out.Height,
				"count":   out.Count,
			})
		}
	}
}
