// Command rumble replays a game event feed into a haptic intensity stream
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/rumble/audio"
	"github.com/lixenwraith/rumble/config"
	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/engine"
	"github.com/lixenwraith/rumble/feed"
	"github.com/lixenwraith/rumble/metrics"
	"github.com/lixenwraith/rumble/monitor"
	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/sink"
	"github.com/lixenwraith/rumble/status"
)

// errFeedDone ends the process group once a finite feed has been replayed
var errFeedDone = errors.New("feed exhausted")

type options struct {
	configPath  string
	debug       bool
	feedPath    string
	sinkName    string
	monitor     bool
	metricsAddr string
	pace        time.Duration
	linger      time.Duration
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("rumble", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "TOML config file")
	fs.BoolVar(&o.debug, "debug", false, "write JSON logs to logs/rumble.log")
	fs.StringVar(&o.feedPath, "feed", "", "event feed file, - for stdin, overrides [feed] path")
	fs.StringVar(&o.sinkName, "sink", "log", "actuator: log or tone")
	fs.BoolVar(&o.monitor, "monitor", false, "show the terminal dashboard")
	fs.StringVar(&o.metricsAddr, "metrics", "", "serve prometheus metrics on addr")
	fs.DurationVar(&o.pace, "pace", 0, "delay between replayed events")
	fs.DurationVar(&o.linger, "linger", 2*time.Second, "keep mixing after the feed ends, without -monitor")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.sinkName != "log" && o.sinkName != "tone" {
		return o, fmt.Errorf("unknown sink %q", o.sinkName)
	}
	return o, nil
}

func main() {
	// Panic recovery for the main goroutine, workers go through core.Go
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nRUMBLE CRASHED: %v\nStack Trace:\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, logFile := setupLogging(opts.debug)
	if logFile != nil {
		defer logFile.Close()
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	if opts.feedPath == "" {
		opts.feedPath = cfg.Feed.Path
	}

	reg := status.NewRegistry()
	out, closeSink, err := buildSink(opts.sinkName, logger, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
		return 1
	}
	defer closeSink()

	session := engine.New(cfg.Settings(), out, engine.WithLogger(logger), engine.WithRegistry(reg))

	var screen tcell.Screen
	if opts.monitor {
		if screen, err = tcell.NewScreen(); err == nil {
			err = screen.Init()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
			return 1
		}
		defer screen.Fini()
	}

	// Worker panics restore the terminal before reporting
	core.SetCrashHandler(func(name string, r any, stack []byte) {
		if screen != nil {
			screen.Fini()
		}
		logger.Error("worker crashed", zap.String("worker", name), zap.Any("panic", r), zap.ByteString("stack", stack))
		_ = logger.Sync()
		fmt.Fprintf(os.Stderr, "\r\nRUMBLE CRASHED in %s: %v\r\nStack Trace:\r\n%s\r\n", name, r, stack)
		os.Exit(1)
	})

	if err := session.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })

	if opts.feedPath != "" {
		g.Go(func() error { return replayFeed(gctx, opts, session, logger) })
	}
	if opts.metricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, opts.metricsAddr, reg, logger) })
	}
	if screen != nil {
		mon := monitor.New(screen, session, logger)
		g.Go(func() error { return mon.Run(gctx) })
	}

	err = g.Wait()
	stop()

	if serr := session.Shutdown(parameter.ShutdownTimeout); serr != nil {
		logger.Warn("shutdown", zap.Error(serr))
	}

	if err != nil && !expectedExit(err) {
		logger.Error("exiting", zap.Error(err))
		if screen != nil {
			screen.Fini()
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func expectedExit(err error) bool {
	return errors.Is(err, monitor.ErrQuit) ||
		errors.Is(err, errFeedDone) ||
		errors.Is(err, context.Canceled)
}

// buildSink returns the actuator wrapped in a circuit breaker, and its closer
func buildSink(name string, logger *zap.Logger, reg *status.Registry) (sink.Sink, func(), error) {
	var next sink.Sink
	closer := func() {}

	switch name {
	case "tone":
		tone := audio.NewToneSink(logger, reg)
		if err := tone.Init(); err != nil {
			return nil, nil, err
		}
		next = sink.Multi{tone, sink.NewLog(logger, 0.05)}
		closer = func() { _ = tone.Close() }
	default:
		next = sink.NewLog(logger, 0.01)
	}

	return sink.NewBreaker(next, sink.DefaultBreakerConfig(), logger, reg), closer, nil
}

// replayFeed pushes the configured feed into the session queue
func replayFeed(ctx context.Context, opts options, session *engine.Context, logger *zap.Logger) error {
	var r io.Reader = os.Stdin
	if opts.feedPath != "-" {
		f, err := os.Open(opts.feedPath)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()
		r = f
	}

	_, err := feed.Replay(ctx, r, session.Queue(), feed.ReplayOptions{Interval: opts.pace, Logger: logger})
	if err != nil {
		return err
	}

	// The monitor keeps the session alive until the user quits
	if opts.monitor {
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(opts.linger):
		return errFeedDone
	}
}
