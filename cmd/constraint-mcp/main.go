// Command constraint-mcp runs the constraint-enforcement MCP server: a
// length-framed JSON-RPC stdio loop that injects methodology reminders
// into tool calls on a configurable cadence.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/constraintmcp/constraint-mcp/internal/config"
	"github.com/constraintmcp/constraint-mcp/internal/constraint"
	"github.com/constraintmcp/constraint-mcp/internal/dispatcher"
	"github.com/constraintmcp/constraint-mcp/internal/eventlog"
	"github.com/constraintmcp/constraint-mcp/internal/injector"
	"github.com/constraintmcp/constraint-mcp/internal/packfile"
	"github.com/constraintmcp/constraint-mcp/internal/telemetry"
	"github.com/constraintmcp/constraint-mcp/internal/trigger"
)

func main() {
	os.Exit(run())
}

// run builds and executes the root command, translating cobra's error
// classes into the exit codes spec §6 names: 2 for an unrecognized flag,
// 1 for any other unhandled error, 0 on clean completion.
func run() int {
	var (
		configPath string
		packPath   string
	)

	rootCmd := &cobra.Command{
		Use:     "constraint-mcp",
		Short:   "Constraint enforcement MCP server",
		Long:    "constraint-mcp speaks length-framed JSON-RPC 2.0 over stdio and splices methodology reminders into intercepted tool calls.",
		Version: config.ServerVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, packPath)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a runtime config YAML file")
	rootCmd.Flags().StringVar(&packPath, "pack", "", "path to a constraint pack YAML file")

	flagParseFailed := false
	rootCmd.FParseErrWhitelist.UnknownFlags = false
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		flagParseFailed = true
		return err
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if flagParseFailed {
			return 2
		}
		return 1
	}
	return 0
}

func serve(configPath, packPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.PackPath = packPath

	lib := constraint.NewLibrary("0.0.0", "empty library")
	anchors := injector.Anchors{
		Prologue: "the constraint below applies to this step.",
		Epilogue: "confirm every reminder has been honored.",
	}

	if cfg.PackPath != "" {
		pack, err := packfile.Load(cfg.PackPath)
		if err != nil {
			return fmt.Errorf("load pack: %w", err)
		}
		lib = constraint.NewLibrary(pack.Version, "loaded from "+cfg.PackPath)
		if err := packfile.Admit(lib, pack); err != nil {
			return fmt.Errorf("admit pack: %w", err)
		}
		anchors = pack.Anchors()
	}

	matcher := trigger.New(trigger.Options{
		Boosts:               []trigger.Boost{trigger.NewTddKeywordBoost()},
		MaxActiveConstraints: cfg.MaxActiveConstraints,
	})

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	sink, err := openSink(cfg.LogSink)
	if err != nil {
		return fmt.Errorf("open log sink: %w", err)
	}
	events := eventlog.New(sink)

	server := dispatcher.New(cfg, anchors, lib, matcher, logger, metrics, events)
	return server.Run(os.Stdin, os.Stdout)
}

// openSink resolves the configured log_sink to a writer. "stdout" is
// rejected because stdout is reserved for the JSON-RPC transport; anything
// other than "stderr" is treated as a file path, opened for append.
func openSink(name string) (*os.File, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return nil, fmt.Errorf("log_sink cannot be stdout: stdout is reserved for the JSON-RPC transport")
	default:
		return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}
