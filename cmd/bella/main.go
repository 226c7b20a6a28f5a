package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"github.com/urfave/cli/v2"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/interpreter"
	"github.com/oarkflow/bella/pkg/config"
	"github.com/oarkflow/bella/pkg/events"
	"github.com/oarkflow/bella/pkg/history"
	"github.com/oarkflow/bella/pkg/scheduler"
	"github.com/oarkflow/bella/pkg/server"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "bella",
		Usage:   "Run Bella programs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"BELLA_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute a program file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the output as a JSON array",
					},
					&cli.BoolFlag{
						Name:  "ast",
						Usage: "Treat the file as a JSON program tree",
					},
				},
				Action: runFile,
			},
			{
				Name:      "ast",
				Usage:     "Print the JSON program tree of a file",
				ArgsUsage: "<file>",
				Action:    printAST,
			},
			{
				Name:   "repl",
				Usage:  "Start an interactive session",
				Action: startREPL,
			},
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the configuration file (YAML, JSON, or BCL)",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides the configuration",
					},
				},
				Action: serve,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	var w io.Writer = os.Stderr
	if c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	bella.SetLogger(&log.Logger{Level: level, Writer: &log.IOWriter{Writer: w}})
	return nil
}

func readArg(c *cli.Context) ([]byte, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("%s expects exactly one file argument", c.Command.Name)
	}
	return os.ReadFile(c.Args().First())
}

func runFile(c *cli.Context) error {
	data, err := readArg(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out interpreter.Output
	if c.Bool("ast") {
		program, err := bella.DecodeProgram(data)
		if err != nil {
			return err
		}
		out, err = bella.RunProgram(ctx, program)
		if err != nil {
			return err
		}
	} else {
		out, err = bella.Run(ctx, string(data))
		if err != nil {
			return err
		}
	}
	if c.Bool("json") {
		encoded, err := json.Marshal(interpreter.OutputToHost(out))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, string(encoded))
		return err
	}
	return writeOutput(c.App.Writer, out)
}

func writeOutput(w io.Writer, out interpreter.Output) error {
	for _, v := range out {
		if _, err := fmt.Fprintln(w, v.Inspect()); err != nil {
			return err
		}
	}
	return nil
}

func printAST(c *cli.Context) error {
	data, err := readArg(c)
	if err != nil {
		return err
	}
	program, err := bella.Parse(string(data))
	if err != nil {
		return err
	}
	encoded, err := interpreter.EncodeProgram(program)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(encoded))
	return err
}

func startREPL(c *cli.Context) error {
	return repl(os.Stdin, c.App.Writer, c.App.ErrWriter)
}

func serve(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	if !c.IsSet("log-level") {
		level, err := config.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		bella.SetLogger(&log.Logger{Level: level, Writer: &log.IOWriter{Writer: os.Stderr}})
	}
	bella.SetRuntimeConfig(bella.RuntimeConfig{
		MaxSourceBytes:  cfg.Runtime.MaxSourceBytes,
		MaxNestingDepth: cfg.Runtime.MaxNestingDepth,
		LogExecution:    cfg.Runtime.LogExecution,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bella.Logger()
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Config{
		Version:    version,
		Prefork:    cfg.Server.Prefork,
		BodyLimit:  cfg.Server.BodyLimit,
		CacheSize:  cfg.Cache.MaxPrograms,
		RequestLog: true,
	}, store, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	bus := events.NewEventBus()
	bus.OnError(func(e events.Event, err error) {
		logger.Error().Err(err).Str("event", string(e.Type)).Msg("event handler failed")
	})
	srv.Recorder().UseEvents(bus)
	if cfg.Events.AMQPURL != "" {
		fwd, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			_ = store.Close()
			return err
		}
		defer fwd.Close()
		bus.Subscribe(events.EventRunCompleted, fwd.Handle)
		bus.Subscribe(events.EventRunFailed, fwd.Handle)
	}

	sched := scheduler.New(srv.Recorder(), logger)
	for _, sc := range cfg.Schedules {
		if err := sched.Add(sc.Name, sc.Cron, sc.Source); err != nil {
			_ = store.Close()
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address)
	}()
	select {
	case err := <-errCh:
		_ = store.Close()
		return err
	case <-ctx.Done():
		err := srv.Shutdown()
		bus.Wait()
		return err
	}
}
