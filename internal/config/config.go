// Package config holds process configuration for the bilirumine pipeline
// binaries: one root struct of nested Xxx configs, loaded from the
// environment via envconfig with a Load/LoadOrDefault/Default trio,
// optionally layered under a YAML topology-tuning file.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all process configuration for one pipeline binary (image or
// audio — both binaries share this struct; a binary simply ignores the
// sections it has no use for).
type Config struct {
	Ring     RingConfig
	Model    ModelConfig
	Clip     ClipConfig
	Ops      OpsConfig
	Logging  LogConfig
	Topology TopologyConfig
}

// RingConfig parameterizes the shared-memory ring backing one pipeline's
// bulk payload transport.
type RingConfig struct {
	Name      string `envconfig:"RING_NAME" default:"image"`
	Dir       string `envconfig:"RING_DIR" default:"/dev/shm"`
	Capacity  int64  `envconfig:"RING_CAPACITY" default:"2147483647"`
	HeadPad   int64  `envconfig:"RING_HEAD_PAD" default:"64"`
	Alignment int64  `envconfig:"RING_ALIGNMENT" default:"8"`
}

// Path returns the ring's backing file path, e.g. "/dev/shm/bilirumine_image".
func (r RingConfig) Path() string {
	return fmt.Sprintf("%s/bilirumine_%s", r.Dir, r.Name)
}

// ModelConfig names the model collaborators each stage delegates to, and the
// per-stage sampler defaults. Only Endpoint is read, by the binaries' model
// selection; the Extend and Detail stages use their own fixed sampler values
// and read none of the other fields.
type ModelConfig struct {
	// Endpoint is "local" for the deterministic in-process stand-in, or a
	// base URL for internal/model/remote.
	Endpoint string `envconfig:"MODEL_ENDPOINT" default:"local"`

	Checkpoint       string  `envconfig:"MODEL_CHECKPOINT" default:"default"`
	ExtendScheduler  string  `envconfig:"MODEL_EXTEND_SCHEDULER" default:"lcm/sgm_uniform"`
	ExtendSteps      int     `envconfig:"MODEL_EXTEND_STEPS" default:"5"`
	ExtendGuidance   float64 `envconfig:"MODEL_EXTEND_GUIDANCE" default:"1.0"`
	ExtendDenoise    float64 `envconfig:"MODEL_EXTEND_DENOISE" default:"1.0"`
	DetailScheduler  string  `envconfig:"MODEL_DETAIL_SCHEDULER" default:"euler_ancestral/sgm_uniform"`
}

// ClipConfig parameterizes the CLIP embedding cache.
type ClipConfig struct {
	// CachePath selects the cache mode once per process: empty means the
	// in-memory cache, non-empty is the disk cache directory. A control
	// message's own `cache` field is parsed and merged but does not change
	// the mode or the directory.
	CachePath string `envconfig:"CLIP_CACHE_PATH" default:""`
}

// OpsConfig parameterizes the local operator HTTP surface (health, metrics,
// ring/scheduler introspection) — never the host control protocol, which
// stays on stdin/stdout.
type OpsConfig struct {
	Enabled bool   `envconfig:"OPS_ENABLED" default:"true"`
	Addr    string `envconfig:"OPS_ADDR" default:"127.0.0.1:9595"`
}

// LogConfig parameterizes the process's structured zap logger.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	// OpsLogPath, when set, routes operational zap logging to a file
	// instead of the process's real stderr, so it never interleaves with
	// the control channel's protocol stderr lines.
	OpsLogPath string `envconfig:"BILI_OPS_LOG" default:""`
}

// TopologyConfig carries deploy-time tuning for the generation topology:
// the interpolation pass cascade and the outpaint jitter bound.
type TopologyConfig struct {
	// InterpolatePasses, if non-empty, overrides image.DefaultPasses().
	InterpolatePasses []PassConfig `yaml:"interpolate_passes"`
	// JitterFactor is the multiplicative jitter bound applied to outpaint
	// margins before extension: int(v * (U[0,1)*JitterFactor+1)).
	JitterFactor float64 `yaml:"jitter_factor"`
}

// PassConfig is one cascaded interpolation pass's (scale, multiplier).
type PassConfig struct {
	Scale      float64 `yaml:"scale"`
	Multiplier int     `yaml:"multiplier"`
}

// Default returns the spec's literal defaults.
func Default() *Config {
	return &Config{
		Ring: RingConfig{
			Name:      "image",
			Dir:       "/dev/shm",
			Capacity:  2147483647,
			HeadPad:   64,
			Alignment: 8,
		},
		Model: ModelConfig{
			Endpoint:        "local",
			Checkpoint:      "default",
			ExtendScheduler: "lcm/sgm_uniform",
			ExtendSteps:     5,
			ExtendGuidance:  1.0,
			ExtendDenoise:   1.0,
			DetailScheduler: "euler_ancestral/sgm_uniform",
		},
		Clip: ClipConfig{},
		Ops: OpsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9595",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Topology: TopologyConfig{
			JitterFactor: 0.25,
		},
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	if cfg.Topology.JitterFactor == 0 {
		cfg.Topology.JitterFactor = 0.25
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or falls back to
// Default on any error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadTopologyFile layers an optional YAML topology-tuning file (passes,
// jitter bounds) over cfg.Topology's envconfig-derived defaults. A missing
// file is not an error — the envconfig/Default values stand.
func LoadTopologyFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read topology file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg.Topology); err != nil {
		return fmt.Errorf("config: parse topology file %s: %w", path, err)
	}
	return nil
}
