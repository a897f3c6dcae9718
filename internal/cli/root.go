package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	alpacastream "github.com/alpacastream/alpacastream-go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type flags struct {
	configPath string
	host       string
	path       string
	port       int
	plaintext  bool
	streams    []string
	reconnect  bool
	debug      bool
}

// NewRootCommand builds the alpaca-stream command tree.
func NewRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "alpaca-stream",
		Short:        "Stream Alpaca market data to stdout",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), f.debug)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return stream(ctx, cfg, cmd.OutOrStdout(), logger, f.reconnect)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&f.host, "host", "", "Server host")
	pf.StringVar(&f.path, "path", "", "Stream path")
	pf.IntVar(&f.port, "port", 0, "Server port")
	pf.BoolVar(&f.plaintext, "plaintext", false, "Use ws:// instead of wss://")
	pf.StringArrayVarP(&f.streams, "stream", "s", nil, "Stream to listen to (repeatable)")
	pf.BoolVar(&f.reconnect, "reconnect", false, "Reconnect after a disconnect")
	pf.BoolVarP(&f.debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(newConfigCommand(&f))
	return cmd
}

func newConfigCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if cfg.SecretKey != "" {
				cfg.SecretKey = "********"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// load layers defaults, the config file, the environment and flags.
func (f *flags) load(cmd *cobra.Command) (alpacastream.Config, error) {
	cfg := alpacastream.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = alpacastream.LoadConfig(f.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()

	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Host = f.host
	}
	if fs.Changed("path") {
		cfg.Path = f.path
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("plaintext") {
		cfg.TLS = !f.plaintext
	}
	if fs.Changed("stream") {
		cfg.Streams = f.streams
	}
	return cfg, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// stream prints every payload until ctx is done or the client stops.
func stream(ctx context.Context, cfg alpacastream.Config, out io.Writer, logger *slog.Logger, reconnect bool) error {
	client, err := alpacastream.Connect(ctx, cfg,
		alpacastream.WithLogger(logger),
		alpacastream.WithAutoReconnect(reconnect),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-client.Done():
			return client.Err()
		case msg := <-client.Messages:
			if _, err := fmt.Fprintf(out, "%s\n", msg); err != nil {
				return err
			}
		}
	}
}
