package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bilirumine/engine/internal/config"
	"github.com/bilirumine/engine/internal/logging"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/model/remote"
	"github.com/bilirumine/engine/internal/opsmetrics"
	"github.com/bilirumine/engine/internal/opsserver"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/runid"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/topology"
)

func main() {
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if os.Getenv("RING_NAME") == "" {
		// The shared Config struct defaults Ring.Name to "image"; this
		// binary's own ring is "sound" unless a deployment overrides it.
		cfg.Ring.Name = "sound"
	}
	if os.Getenv("OPS_ADDR") == "" {
		// Avoid colliding with bilirumine-image's ops port when both run on
		// one host with no explicit override.
		cfg.Ops.Addr = "127.0.0.1:9596"
	}

	run := runid.NewRunID()

	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development || *dev,
		OutputPaths: logging.ResolveOutputPaths(cfg.Logging.OpsLogPath),
	}
	logger, err := logging.NewForStage(logCfg, "audio")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bilirumine-audio: logger init: %v\n", err)
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

	var mdl model.Model
	if cfg.Model.Endpoint == "" || cfg.Model.Endpoint == "local" {
		mdl = local.New()
	} else {
		mdl = remote.New(cfg.Model.Endpoint)
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

	deps := topology.AudioDeps{
		Sets:    sets,
		Ring:    r,
		Model:   mdl,
		Logger:  logger.Logger,
		Metrics: metrics,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	if ops != nil {
		deps.Events = ops
	}
	topo := topology.NewAudio(deps)

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
