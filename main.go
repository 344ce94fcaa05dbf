package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/solraven/keeper/metrics"
)

var app = cli.Command{
	Name:  "keeper",
	Usage: "Room moderation and command bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
		&flagLogFile,
	},
	Commands: []*cli.Command{
		{
			Name:  "check",
			Usage: "Validate the configuration without connecting",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				r, err := os.Open(cmd.String("config"))
				if err != nil {
					return fmt.Errorf("couldn't open config file: %w", err)
				}
				defer r.Close()
				cfg, _, err := Load(r)
				if err != nil {
					return err
				}
				fmt.Printf("ok: room %s, %d emotes, %d presets\n", cfg.Room.Room, len(cfg.Emotes), len(cfg.Presets))
				return nil
			},
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
	}
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("couldn't open config file: %w", err)
	}
	cfg, _, err := Load(r)
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	r.Close()

	mets := newMetrics()
	k, err := New(cfg, mets)
	if err != nil {
		return err
	}
	return k.Run(ctx)
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}

	flagLogFile = cli.StringFlag{
		Name:       "log-file",
		Usage:      "Log to a rotated file instead of stderr",
		Persistent: true,
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var w io.Writer = os.Stderr
	if f := cmd.String("log-file"); f != "" {
		w = &lumberjack.Logger{
			Filename:   f,
			MaxSize:    64, // megabytes
			MaxBackups: 8,
			Compress:   true,
		}
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		EventCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "room",
					Name:      "events",
					Help:      "Number of room events received, by kind.",
				},
				[]string{"kind"},
			),
		),
		CommandCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of command invocations dispatched, by command.",
				},
				[]string{"command"},
			),
		),
		DenialCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "commands",
					Name:      "denials",
					Help:      "Number of command invocations refused, by reason.",
				},
				[]string{"reason"},
			),
		),
		BadWordCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "chat",
					Name:      "bad_words",
					Help:      "Number of messages caught by the bad-word filter.",
				},
			),
		),
		CorrectionCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "guard",
					Name:      "corrections",
					Help:      "Number of teleports issued to correct movement.",
				},
			),
		),
		ReconnectCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "keeper",
					Subsystem: "room",
					Name:      "reconnects",
					Help:      "Number of times the room connection dropped.",
				},
			),
		),
		ActionLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 10},
					Namespace: "keeper",
					Subsystem: "room",
					Name:      "action_latency",
					Help:      "How long platform actions take to acknowledge in seconds.",
				},
				[]string{"op"},
			),
		),
	}
}
