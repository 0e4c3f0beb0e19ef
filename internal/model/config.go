package model

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	_ "embed"
)

const (
	EnvPrefix = "WATCHDOG"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Deadline time.Duration `mapstructure:"deadline" yaml:"deadline"`
	Stages   []Stage       `mapstructure:"stages" yaml:"stages"`
	Pool     Pool          `mapstructure:"pool" yaml:"pool"`
	Schedule Schedule      `mapstructure:"schedule" yaml:"schedule"`
	Verbose  bool          `mapstructure:"verbose" yaml:"verbose"`
	Log      Log           `mapstructure:"log" yaml:"log"`
	Metrics  Metrics       `mapstructure:"metrics" yaml:"metrics"`
}

// Stage is a single simulated step of a run.
type Stage struct {
	Name     string        `mapstructure:"name" yaml:"name"`
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
}

// Pool sizes the worker pool executing the stages.
type Pool struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
	Queue   int `mapstructure:"queue" yaml:"queue"`
}

// Schedule triggers periodic starts. Cron has a precedence over Every, both
// empty disable the scheduler.
type Schedule struct {
	Cron  string        `mapstructure:"cron" yaml:"cron,omitempty"`
	Every time.Duration `mapstructure:"every" yaml:"every,omitempty"`
}

func (s Schedule) Enabled() bool {
	return s.Cron != "" || s.Every > 0
}

type Log struct {
	Format string `mapstructure:"format" yaml:"format"` // "json" | "text"
}

type Metrics struct {
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"` // empty disables /metrics
}

// NewViper returns a viper instance with all defaults set and environment
// overrides enabled, e.g. WATCHDOG_DEADLINE=10s or WATCHDOG_POOL_WORKERS=2.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("deadline", "5s")
	v.SetDefault("stages", []map[string]any{
		{"name": "middle", "duration": "2s"},
		{"name": "final", "duration": "2s"},
	})
	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.queue", 16)
	// no defaults, an empty duration can't be decoded
	_ = v.BindEnv("schedule.cron")
	_ = v.BindEnv("schedule.every")
	v.SetDefault("verbose", false)
	v.SetDefault("log.format", LogFormatJSON)
	v.SetDefault("metrics.addr", "")
	return v
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	cfg, err := Decode(NewViper())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// LoadConfig reads YAML from r on top of the defaults, validates it and decodes it.
func LoadConfig(r io.Reader) (Config, error) {
	v := NewViper()
	if err := v.ReadConfig(r); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Decode(v)
}

// Decode decodes all settings of v into Config and validates the result
// against the CUE schema. Unknown keys are rejected.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	value := cueCtx.Encode(cfg.settings())
	if value.Err() != nil {
		return Config{}, value.Err()
	}
	unified := schema.Unify(value)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// settings is the canonical form of the config checked by the schema.
// Durations are written the way time.Duration prints them.
func (c Config) settings() map[string]any {
	stages := make([]map[string]any, 0, len(c.Stages))
	for _, s := range c.Stages {
		stages = append(stages, map[string]any{
			"name":     s.Name,
			"duration": s.Duration.String(),
		})
	}
	schedule := map[string]any{}
	if c.Schedule.Cron != "" {
		schedule["cron"] = c.Schedule.Cron
	}
	if c.Schedule.Every != 0 {
		schedule["every"] = c.Schedule.Every.String()
	}
	return map[string]any{
		"deadline": c.Deadline.String(),
		"stages":   stages,
		"pool": map[string]any{
			"workers": c.Pool.Workers,
			"queue":   c.Pool.Queue,
		},
		"schedule": schedule,
		"verbose":  c.Verbose,
		"log": map[string]any{
			"format": c.Log.Format,
		},
		"metrics": map[string]any{
			"addr": c.Metrics.Addr,
		},
	}
}

// Validate checks what the schema can't express.
func (c Config) Validate() error {
	var errs []error
	// zero disables the deadline
	if c.Deadline < 0 {
		errs = append(errs, fmt.Errorf("deadline: must not be negative, got %s", c.Deadline))
	}
	if len(c.Stages) == 0 {
		errs = append(errs, ErrNoStages)
	}
	if c.Schedule.Every < 0 {
		errs = append(errs, fmt.Errorf("schedule.every: must not be negative, got %s", c.Schedule.Every))
	}
	seen := make(map[string]struct{}, len(c.Stages))
	for _, s := range c.Stages {
		if _, ok := seen[s.Name]; ok {
			errs = append(errs, fmt.Errorf("stages: duplicate name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Total is the time a run takes when nothing stops it.
func (c Config) Total() time.Duration {
	var total time.Duration
	for _, s := range c.Stages {
		total += s.Duration
	}
	return total
}
