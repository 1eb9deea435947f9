// Package config loads the runtime configuration of the constraint server:
// scheduler cadence, composition wiring, latency deadlines, and the
// protocol metadata advertised to clients.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProtocolVersion is the MCP protocol version string advertised on
// initialize (spec §6).
const ProtocolVersion = "2024-11-05"

// ServerName and ServerVersion populate serverInfo on initialize and the
// server.help response.
var (
	ServerName    = "Constraint Enforcement MCP Server"
	ServerVersion = "0.1.0"
)

// UnknownMethodPolicy selects how the dispatcher answers a method it does
// not recognise (spec §4.1, §9 Open Question 1).
type UnknownMethodPolicy int

const (
	// MethodNotFoundPolicy answers with a -32601 JSON-RPC error. This is
	// the reference behaviour per spec §9.
	MethodNotFoundPolicy UnknownMethodPolicy = iota
	// EmptyObjectPolicy answers with an empty object result, for
	// compatibility with a walking-skeleton host that has not yet wired
	// every method.
	EmptyObjectPolicy
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	// Scheduler holds the cadence/override settings of spec §4.2.
	Scheduler SchedulerConfig `yaml:"scheduler"`
	// MaxActiveConstraints bounds the trigger matcher's top-K selection
	// (spec §4.5); defaults to 2.
	MaxActiveConstraints int `yaml:"max_active_constraints"`
	// RequestDeadline bounds the injection pipeline per request (spec
	// §5); defaults to 100ms.
	RequestDeadline time.Duration `yaml:"request_deadline"`
	// UnknownMethod selects the dispatcher's policy for unrecognised
	// methods.
	UnknownMethod UnknownMethodPolicy `yaml:"-"`
	// PackPath points at the constraint-pack file to load at startup, if
	// any. The command sets it from the --pack CLI flag; the --config flag
	// names this runtime config file, not the pack.
	PackPath string `yaml:"-"`
	// LogSink names where the NDJSON event log is written: "stderr" or a
	// file path. Defaults to "stderr". Load accepts "stdout", but the
	// command rejects it because stdout is reserved for the JSON-RPC
	// transport.
	LogSink string `yaml:"log_sink"`
}

// SchedulerConfig is the YAML-facing shape of scheduler.Config.
type SchedulerConfig struct {
	EveryN         int      `yaml:"every_n"`
	PhaseOverrides []string `yaml:"phase_overrides"`
}

// Default returns the walking-skeleton default configuration.
func Default() Config {
	return Config{
		Scheduler:            SchedulerConfig{EveryN: 1},
		MaxActiveConstraints: 2,
		RequestDeadline:      100 * time.Millisecond,
		UnknownMethod:        MethodNotFoundPolicy,
		LogSink:              "stderr",
	}
}

// Load reads path as YAML over the defaults; a missing path is not an
// error; it simply returns Default(). Non-YAML fields (PackPath,
// UnknownMethod) are left at their Default() values and must be set by the
// caller from CLI flags.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the loaded values are within their documented ranges.
func (c Config) Validate() error {
	if c.Scheduler.EveryN < 0 {
		return fmt.Errorf("scheduler.every_n must be >= 0, got %d", c.Scheduler.EveryN)
	}
	if c.MaxActiveConstraints < 0 {
		return fmt.Errorf("max_active_constraints must be >= 0, got %d", c.MaxActiveConstraints)
	}
	if c.RequestDeadline < 0 {
		return fmt.Errorf("request_deadline must be >= 0, got %s", c.RequestDeadline)
	}
	return nil
}
