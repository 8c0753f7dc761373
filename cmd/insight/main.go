package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runtime-insight/agent/internal/agent"
	"github.com/runtime-insight/agent/internal/config"
	"github.com/runtime-insight/agent/internal/metrics/dynamic"
	"github.com/runtime-insight/agent/internal/metrics/static"
	"github.com/runtime-insight/agent/internal/monitor"
	"github.com/runtime-insight/agent/internal/sender"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load environment file
	if err := config.LoadEnvFile(config.EnvFilePath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load env file: %v\n", err)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runAgent(os.Args[2:])
	case "sample":
		runSample(os.Args[2:])
	case "specs":
		showSpecs()
	case "version":
		showVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Runtime Insight - Process Metrics Agent

Usage:
  insight <command> [flags]

Commands:
  run       Sample this process and stream metrics
  sample    Print two samples one interval apart and exit
  specs     Print the device descriptor
  version   Show version information
  help      Show this help message

Run flags:
  --interval MS     Sampling interval in milliseconds
  --cpu, --memory, --network, --disk
                    Enable or disable a metric (e.g. --disk=false)
  --format FORMAT   Stream format: json or cbor
  --server URL      Post samples to URL instead of stdout
  --control         Read commands from stdin (one JSON request per line)
  --no-listen       Do not attach the stream at startup

Environment Variables:
  INSIGHT_SERVER_URL   Collector URL (optional, default: stream to stdout)
  INSIGHT_TOKEN        Bearer token for the collector (optional)
  INSIGHT_CONFIG       Metrics config file (default: /etc/runtime-insight/metrics.yaml)
  INSIGHT_UNSET_FLAGS  Unspecified metric flags: enabled (default) or disabled
  INSIGHT_FORMAT       Stream format: json (default) or cbor
  INSIGHT_DEBUG        Enable debug logging (true/1)
  INSIGHT_LOG_JSON     Log as JSON (true/1)

Configuration File:
  /etc/runtime-insight/env   Environment variables file

Examples:
  insight run --interval 500 --network=false
  insight run --control --no-listen
  insight sample --cpu --memory=false
  insight specs`)
}

// metricFlags are the flags shared by run and sample
type metricFlags struct {
	interval *int64
	cpu      *bool
	memory   *bool
	network  *bool
	disk     *bool
}

func addMetricFlags(fs *pflag.FlagSet) *metricFlags {
	return &metricFlags{
		interval: fs.Int64("interval", models.DefaultIntervalMs, "sampling interval in milliseconds"),
		cpu:      fs.Bool("cpu", true, "report process CPU usage"),
		memory:   fs.Bool("memory", true, "report resident memory"),
		network:  fs.Bool("network", true, "report network byte counters"),
		disk:     fs.Bool("disk", true, "report disk byte counters"),
	}
}

// apply overrides cfg with the flags set on the command line. The result goes
// through the same parser as transport args, so a bad interval falls back.
func (m *metricFlags) apply(fs *pflag.FlagSet, cfg models.MetricsConfig) models.MetricsConfig {
	args := map[string]any{
		"cpu":        cfg.CPU,
		"memory":     cfg.Memory,
		"network":    cfg.Network,
		"disk":       cfg.Disk,
		"intervalMs": cfg.IntervalMs,
	}
	if fs.Changed("interval") {
		args["intervalMs"] = *m.interval
	}
	if fs.Changed("cpu") {
		args["cpu"] = *m.cpu
	}
	if fs.Changed("memory") {
		args["memory"] = *m.memory
	}
	if fs.Changed("network") {
		args["network"] = *m.network
	}
	if fs.Changed("disk") {
		args["disk"] = *m.disk
	}
	return models.ParseMetricsConfig(args, models.UnsetFlagsEnabled)
}

func newLogger() *logrus.Logger {
	return config.NewLogger(os.Stderr, config.IsDebugMode(), config.IsJSONLogging())
}

func runAgent(argv []string) {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	metrics := addMetricFlags(fs)
	format := fs.String("format", config.GetFormat(), "stream format (json or cbor)")
	serverURL := fs.String("server", config.GetServerURL(), "collector URL")
	control := fs.Bool("control", false, "read commands from stdin")
	noListen := fs.Bool("no-listen", false, "do not attach the stream at startup")
	_ = fs.Parse(argv)

	logger := newLogger()
	policy := config.GetFlagPolicy()
	configPath := config.GetMetricsFilePath()

	cfg, err := config.LoadMetricsConfig(configPath, policy)
	if err != nil {
		logger.WithError(err).Warn("Using default metrics config")
	}
	cfg = metrics.apply(fs, cfg)

	streamFormat, err := sender.ParseFormat(*format)
	if err != nil {
		logger.WithError(err).Fatal("Invalid stream format")
	}
	stream, err := sender.NewStreamSender(os.Stdout, streamFormat)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create stream sender")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := dynamic.NewSelfReader(ctx, logger.WithField("component", "reader"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to open process counters")
	}

	a := agent.New(agent.Options{
		Sources: reader.Sources(ctx),
		Policy:  policy,
		Logger:  logger,
	})

	opts := agent.RunOptions{
		Config:     cfg,
		ConfigPath: configPath,
	}

	var out sender.Sender = stream
	if *serverURL != "" {
		out = sender.NewHTTPSender(*serverURL, config.GetToken(), a.Dispatch)
	}
	defer out.Close()
	if !*noListen {
		opts.Sink = out
	}
	if *control {
		opts.Control = os.Stdin
		opts.Stream = stream
	}

	logger.WithFields(logrus.Fields{
		"version":     config.Version,
		"server":      *serverURL,
		"format":      streamFormat,
		"unset_flags": policy.String(),
	}).Info("Starting Runtime Insight agent")

	if err := a.Run(ctx, opts); err != nil {
		logger.WithError(err).Error("Agent error")
		os.Exit(1)
	}
}

func runSample(argv []string) {
	fs := pflag.NewFlagSet("sample", pflag.ExitOnError)
	metrics := addMetricFlags(fs)
	format := fs.String("format", config.GetFormat(), "output format (json or cbor)")
	_ = fs.Parse(argv)

	logger := newLogger()
	cfg := metrics.apply(fs, models.DefaultMetricsConfig())

	streamFormat, err := sender.ParseFormat(*format)
	if err != nil {
		logger.WithError(err).Fatal("Invalid output format")
	}
	out, err := sender.NewStreamSender(os.Stdout, streamFormat)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create output")
	}

	ctx := context.Background()
	reader, err := dynamic.NewSelfReader(ctx, logger.WithField("component", "reader"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to open process counters")
	}

	// The first sample only sets the CPU baseline
	builder := monitor.NewSampleBuilder(reader.Sources(ctx))
	for i := 0; i < 2; i++ {
		if i > 0 {
			time.Sleep(cfg.Interval())
		}
		if err := out.Send(ctx, builder.Build(ctx, cfg, time.Now())); err != nil {
			logger.WithError(err).Fatal("Failed to write sample")
		}
	}
}

func showSpecs() {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	specs, err := static.CollectDeviceSpecs(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func showVersion() {
	fmt.Printf("Runtime Insight Agent v%s\n", config.Version)
	fmt.Printf("Commit: %s\n", config.Commit)
	fmt.Printf("Build Date: %s\n", config.BuildDate)
}
