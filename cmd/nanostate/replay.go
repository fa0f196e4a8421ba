package main

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/nanostate/formats"
	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/envelope"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (cli *CLI) newReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Run a scenario and print the events it raises",
		Long: `Replay loads a YAML scenario: an optional schema, the initial items
of a collection and a list of steps. Steps are suspend, resume, insert,
append, remove, move, replace, set, accept, reject and clear.

Example scenario:

  items:
    - {key: a, values: {name: A}}
    - {key: b, values: {name: B}}
  steps:
    - {op: suspend, analyze: true}
    - {op: remove, index: 0}
    - {op: insert, index: 1, item: a}
    - {op: resume}`,
		Args: cobra.ExactArgs(1),
		RunE: cli.runReplay,
	}

	flags := cmd.Flags()
	flags.StringP("format", "f", "text", "output format ("+joinFormats()+")")
	flags.Bool("cache-all", false, "cache every computed property result")
	flags.Float64("reset-threshold", 1.0, "fraction of changed items that collapses a window into a reset (0 disables)")
	flags.Bool("metrics", false, "print Prometheus metrics after the events")
	flags.String("save", "", "write the final collection with its change state to this file")

	_ = cli.viperInst.BindPFlag(keyOutputFormat, flags.Lookup("format"))
	_ = cli.viperInst.BindPFlag(keyCacheAll, flags.Lookup("cache-all"))
	_ = cli.viperInst.BindPFlag(keyResetThreshold, flags.Lookup("reset-threshold"))
	_ = cli.viperInst.BindPFlag(keyMetrics, flags.Lookup("metrics"))
	_ = cli.viperInst.BindPFlag(keySave, flags.Lookup("save"))
	return cmd
}

func (cli *CLI) runReplay(cmd *cobra.Command, args []string) error {
	v := cli.viperInst
	format, err := formats.Get(v.GetString(keyOutputFormat))
	if err != nil {
		return err
	}

	scenario, err := LoadScenario(args[0])
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	cfg := metrics.DefaultConfig()
	cfg.Registry = registry
	recorder, err := metrics.NewPrometheus(cfg)
	if err != nil {
		return err
	}

	logger := logging.ComponentLogger("replay").With(zap.String(logging.FieldFile, args[0]))
	events, col, runErr := scenario.Run(runOptions{
		CacheAll:       v.GetBool(keyCacheAll),
		ResetThreshold: v.GetFloat64(keyResetThreshold),
		Metrics:        recorder,
		Logger:         logger,
	})

	out, err := formats.Render(format, events)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(cli.out, out)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("scenario replayed", zap.Int(logging.FieldCount, len(events)))

	if path := v.GetString(keySave); path != "" {
		file := envelope.NewFile(path, envelope.New(envelope.WithLogger(logger)))
		if err := file.SaveCollection(cmd.Context(), col); err != nil {
			return errors.Wrap(err, "failed to save collection")
		}
	}

	if v.GetBool(keyMetrics) {
		return writeMetrics(cli, registry)
	}
	return nil
}

func writeMetrics(cli *CLI, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	fmt.Fprintln(cli.out)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cli.out, mf); err != nil {
			return errors.Wrap(err, "failed to write metrics")
		}
	}
	return nil
}

func joinFormats() string {
	return strings.Join(formats.List(), "|")
}
