package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"

	"github.com/puku-sh/editormru"
	"github.com/puku-sh/editormru/config"
	"github.com/puku-sh/editormru/internal/tag"
	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/sim"
)

const usage = `Runs editors script from file or stdin and prints responses to stdout.

Config values merge rules:
1) config file value overrides default
2) command line value overrides any`

type flags struct {
	ConfigPath  string
	Watch       bool
	DumpMetrics bool
	config.Config
}

var f flags

var (
	rootCmd = &cobra.Command{
		Use:           "mrusim [script]",
		Short:         "Simulates editor groups with most recently used editors limit",
		Long:          usage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	configCmd = &cobra.Command{
		Use:   "config [file.json|file.yaml]",
		Short: "Prints merged config in format chosen by file extension",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printConfig,
	}
)

func init() {
	def := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.ConfigPath, "config", "", "path to json or yaml config")
	pf.StringVar(&f.LogDestination, "log-destination", "", fmt.Sprintf("log destination: stderr, stdout or file path (default %q)", def.LogDestination))
	pf.StringVar(&f.LogLevel, "log-level", "", fmt.Sprintf("log level: debug, info, warn, error, silent (default %q)", def.LogLevel))
	pf.IntVar(&f.Limit.Value, "limit", 0, "opened editors limit, enables limit if positive")
	pf.BoolVar(&f.Limit.PerEditorGroup, "per-group", false, "apply limit to every group separately")
	pf.BoolVar(&f.Limit.ExcludeDirty, "exclude-dirty", false, "don't count dirty editors")
	pf.StringVar(&f.State.Backend, "state-backend", "", fmt.Sprintf("state store: memory, aof or badger (default %q)", def.State.Backend))
	pf.StringVar(&f.State.Path, "state-path", "", "aof file or badger directory")
	rootCmd.Flags().BoolVar(&f.Watch, "watch", false, "reload limit when config file changes")
	rootCmd.Flags().BoolVar(&f.DumpMetrics, "metrics", false, "print metrics to stderr at exit")
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads config file if any, and returns merged config.
func loadConfig() (*config.Config, error) {
	conf := config.Default()
	if f.ConfigPath != "" {
		fileConf, err := config.Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		config.Merge(conf, fileConf)
	}
	override := f.Config
	if override.Limit.Value > 0 {
		override.Limit.Enabled = true
	}
	config.Merge(conf, &override)
	return conf, nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	name := "config.json"
	if len(args) == 1 {
		name = args[0]
	}
	_, err = cmd.OutOrStdout().Write(config.Marshal(name, conf))
	return err
}

func run(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := config.Parse(*conf)
	if err != nil {
		return err
	}
	l := log.NewLogger(opts.LogLevel, opts.LogDestination)
	l.Debugf("Config: %#v", conf)
	if tag.Debug {
		l.Warn("Using debug build. It has more runtime checks and large perfomance overhead.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var script io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		script = file
	}

	store, err := opts.State.OpenStore(l)
	if err != nil {
		return err
	}
	registry := metrics.NewRegistry()
	simConf := sim.Config{
		Limit:   opts.Limit,
		Store:   store,
		Metrics: registry,
		Observer: editormru.Config{
			Scoped:   opts.State.Scoped,
			StateKey: opts.State.Key,
		},
	}
	if f.Watch {
		if f.ConfigPath == "" {
			store.Close()
			return fmt.Errorf("--watch requires --config")
		}
		w, err := config.NewWatcher(l, f.ConfigPath)
		if err != nil {
			store.Close()
			return err
		}
		defer w.Close()
		go w.Run(ctx)
		simConf.Settings = w
	}

	s := sim.NewSession(l, simConf)
	err = s.Run(ctx, script, cmd.OutOrStdout())
	closeErr := s.Close()
	if f.DumpMetrics {
		metrics.WriteOnce(registry, cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}
	return closeErr
}
