package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/config"
	"github.com/bilirumine/engine/internal/logging"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/model/remote"
	"github.com/bilirumine/engine/internal/opsmetrics"
	"github.com/bilirumine/engine/internal/opsserver"
	imgpipe "github.com/bilirumine/engine/internal/pipeline/image"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/runid"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/topology"
)

func main() {
	topologyFile := flag.String("topology", "", "optional YAML topology-tuning file")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if err := config.LoadTopologyFile(cfg, *topologyFile); err != nil {
		fmt.Fprintf(os.Stderr, "bilirumine-image: %v\n", err)
		os.Exit(1)
	}

	run := runid.NewRunID()

	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development || *dev,
		OutputPaths: logging.ResolveOutputPaths(cfg.Logging.OpsLogPath),
	}
	logger, err := logging.NewForStage(logCfg, "image")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bilirumine-image: logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Logger = logger.Logger.With(zap.String("run_id", run.String()))

	r, err := ring.Open(cfg.Ring.Path(), ring.Config{
		Capacity:  cfg.Ring.Capacity,
		HeadPad:   cfg.Ring.HeadPad,
		Alignment: cfg.Ring.Alignment,
	})
	if err != nil {
		logger.Fatal("ring open failed", zap.Error(err))
	}
	defer r.Close()

	cache, err := clip.New(cfg.Clip.CachePath)
	if err != nil {
		logger.Fatal("clip cache init failed", zap.Error(err))
	}

	var mdl model.Model
	if cfg.Model.Endpoint == "" || cfg.Model.Endpoint == "local" {
		mdl = local.New()
	} else {
		mdl = remote.New(cfg.Model.Endpoint)
	}

	passes := imgpipe.DefaultPasses()
	if len(cfg.Topology.InterpolatePasses) > 0 {
		passes = make([]imgpipe.Pass, 0, len(cfg.Topology.InterpolatePasses))
		for _, p := range cfg.Topology.InterpolatePasses {
			passes = append(passes, imgpipe.Pass{Scale: p.Scale, Multiplier: p.Multiplier})
		}
	}

	metrics := opsmetrics.New()
	sets := state.NewSets()

	var ops *opsserver.Server
	if cfg.Ops.Enabled {
		ops = opsserver.New(opsserver.Deps{
			Addr:    cfg.Ops.Addr,
			Metrics: metrics,
			Sets:    sets,
			Logger:  logger.Logger,
		})
		ops.RegisterRing(cfg.Ring.Name, r)
	}

	deps := topology.ImageDeps{
		Sets:         sets,
		Ring:         r,
		Model:        mdl,
		Cache:        cache,
		Passes:       passes,
		JitterFactor: cfg.Topology.JitterFactor,
		Logger:       logger.Logger,
		Metrics:      metrics,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	}
	if ops != nil {
		deps.Events = ops
	}
	topo := topology.NewImage(deps)

	if ops != nil {
		for stage, sched := range topo.Schedulers() {
			ops.RegisterScheduler(stage, sched)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	opsErr := make(chan error, 1)
	if ops != nil {
		go func() {
			if err := ops.Run(ctx); err != nil {
				opsErr <- err
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() {
		runErr <- topo.Run(ctx)
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down on signal")
		cancel()
		<-runErr
		os.Exit(0)
	case err := <-runErr:
		cancel()
		if err != nil {
			logger.Error("pipeline exited with error", zap.Error(err))
			os.Exit(1)
		}
		os.Exit(0)
	case err := <-opsErr:
		logger.Error("ops server failed", zap.Error(err))
		cancel()
		<-runErr
		os.Exit(1)
	}
}
