package topology

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/bilirumine/engine/internal/control"
	"github.com/bilirumine/engine/internal/model"
	audiopipe "github.com/bilirumine/engine/internal/pipeline/audio"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/runid"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// AudioDeps bundles every collaborator the audio topology wires together.
type AudioDeps struct {
	Sets    *state.Sets
	Ring    *ring.Ring
	Model   model.Model
	Logger  *zap.Logger
	Metrics MetricsSink
	Events  EventSink
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Audio wires the three-stage audio pipeline topology: Read, Process,
// Write, plus Write's self-loop re-injection when state.Loop is set — a
// second feedback mechanism distinct from the image pipeline's, since it
// never leaves the Process stage's own input queue.
type Audio struct {
	deps AudioDeps

	read    *audiopipe.Read
	process *audiopipe.Process
	write   *audiopipe.Write

	stdinR *control.Reader
	stdout *control.Writer
	stderr *control.Writer

	toProcess chan scheduler.Task
	toWrite   chan scheduler.Task

	fromProcess chan scheduler.Result
	fromWrite   chan scheduler.Result

	schedProcess *scheduler.Scheduler
	schedWrite   *scheduler.Scheduler
}

// processInputs closes over whether a prior clip was resolved, since
// Process.Steps needs both the payload and that boolean to choose between
// Generate and GenerateContinuation.
type processInputs struct {
	prior    tensor.Payload
	hasPrior bool
}

// NewAudio constructs the audio topology. Run must be called to start it.
func NewAudio(deps AudioDeps) *Audio {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Events == nil {
		deps.Events = nopEvents{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	t := &Audio{
		deps:    deps,
		read:    audiopipe.NewRead(deps.Sets, deps.Ring),
		process: audiopipe.NewProcess(deps.Model),
		write:   audiopipe.NewWrite(deps.Ring),

		stdinR: control.NewReader(deps.Stdin),
		stdout: control.NewWriter(deps.Stdout),
		stderr: control.NewWriter(deps.Stderr),

		toProcess: make(chan scheduler.Task, edgeBuffer),
		toWrite:   make(chan scheduler.Task, edgeBuffer),

		fromProcess: make(chan scheduler.Result, edgeBuffer),
		fromWrite:   make(chan scheduler.Result, edgeBuffer),
	}

	t.schedProcess = scheduler.New(deps.Sets, t.toProcess, t.fromProcess)
	t.schedWrite = scheduler.New(deps.Sets, t.toWrite, t.fromWrite)

	return t
}

// Schedulers exposes each stage's scheduler keyed by stage name, for an ops
// surface to register against GET /scheduler/:stage.
func (t *Audio) Schedulers() map[string]*scheduler.Scheduler {
	return map[string]*scheduler.Scheduler{
		"process": t.schedProcess,
		"write":   t.schedWrite,
	}
}

// Run starts every worker goroutine and blocks until ctx is cancelled or
// stdin reaches EOF.
func (t *Audio) Run(ctx context.Context) error {
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

	spawn(func() { t.schedProcess.Run(ctx) })
	spawn(func() { t.schedWrite.Run(ctx) })
	spawn(func() { t.relayProcess(ctx) })
	spawn(func() { t.relayWrite(ctx) })

	readErr := t.stdinLoop(ctx)

	cancel()
	wg.Wait()
	return readErr
}

func (t *Audio) stdinLoop(ctx context.Context) error {
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
		if st.Skip {
			continue
		}

		prior, hasPrior, merr := t.read.Materialize(st)
		if merr != nil {
			_ = t.stderr.EmitDiagnostic("load error: %v", merr)
			t.deps.Logger.Warn("audio read materialize failed", zap.Error(merr), zap.Int64("version", st.Version))
			continue
		}

		t.submitProcess(ctx, st, prior, hasPrior)
	}
}

func (t *Audio) submitProcess(ctx context.Context, st state.State, prior tensor.Payload, hasPrior bool) {
	task := scheduler.Task{
		State:  st,
		Inputs: processInputs{prior: prior, hasPrior: hasPrior},
		Step:   t.process.Steps(ctx, st, prior, hasPrior),
	}
	t.deps.Logger.Debug("submitting process task",
		zap.String("task_id", runid.NewTaskID().String()),
		zap.Int64("version", st.Version))
	select {
	case <-ctx.Done():
	case t.toProcess <- task:
	}
}

func (t *Audio) relayProcess(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromProcess:
			if !ok {
				return
			}
			out, _ := res.Output.(audiopipe.ProcessOutput)
			if out.Err != nil {
				t.deps.Logger.Error("audio process stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}
			task := scheduler.Task{
				State:  res.State,
				Inputs: out,
				Step:   t.write.Steps(res.State, out.Clip, out.Rate),
			}
			select {
			case <-ctx.Done():
				return
			case t.toWrite <- task:
			}
		}
	}
}

func (t *Audio) relayWrite(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-t.fromWrite:
			if !ok {
				return
			}
			out, _ := res.Output.(audiopipe.WriteOutput)
			if out.Err != nil {
				t.deps.Logger.Error("audio write stage failed", zap.Error(out.Err), zap.Int64("version", res.State.Version))
				continue
			}

			completion := control.AudioCompletion{
				Version:     res.State.Version,
				Tags:        res.State.Tags,
				Loop:        res.State.Loop,
				Description: joinPrompts(res.State.Prompts),
				Overlap:     res.State.Overlap,
				Rate:        out.Rate,
				Samples:     out.Samples,
				Channels:    out.Channels,
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
				"samples": out.Samples,
				"rate":    out.Rate,
			})

			// A loop request re-injects the fresh clip as the next Process
			// seed directly (self-loop, not via stdin), seeded by its own
			// overlap tail on the following cycle.
			if res.State.Loop {
				t.submitProcess(ctx, res.State, out.Clip, true)
			}
		}
	}
}

func joinPrompts(prompts []string) string {
	out := ""
	for i, p := range prompts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
