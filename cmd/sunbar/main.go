package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"sunbar/internal/bar"
	"sunbar/internal/config"
	"sunbar/internal/ephemeris"
	"sunbar/internal/ics"
	appLog "sunbar/internal/log"
	"sunbar/internal/schedule"
	"sunbar/internal/web"
	"sunbar/internal/window"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// flagConfig holds CLI flag values before they are merged into the config.
type flagConfig struct {
	configPath string
	elevation  float64
	loglevel   string
	length     int
	watch      bool
	listen     string
	icsDays    int

	// set records which flags were given explicitly.
	set map[string]bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, time.Now))
}

// run is the whole program minus process setup; it returns the exit code.
// now is the clock for the one-shot print and ics modes.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, now func() time.Time) int {
	flags, positional, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	level, err := appLog.ParseLevel(flags.loglevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	logger := appLog.New(stderr, level)

	cfg, err := loadConfig(flags, positional)
	if err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		logger.Error("failed to load config", err, "config_path", flags.configPath)
		return exitError
	}
	if err := cfg.Observer.Validate(); err != nil {
		logger.Error("invalid observer", err)
		return exitError
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("failed to load timezone", err, "timezone", cfg.Timezone)
		return exitError
	}

	logger.Debug("effective config",
		"latitude", cfg.Observer.Latitude,
		"longitude", cfg.Observer.Longitude,
		"elevation", cfg.Observer.Elevation,
		"timezone", loc.String(),
		"length", cfg.Length,
		"refresh", cfg.RefreshCron,
		"watch", flags.watch,
		"listen", flags.listen,
		"ics_days", flags.icsDays,
	)

	var provider ephemeris.Provider = ephemeris.NewSunriseProvider(logger.With("component", "ephemeris"))

	switch {
	case flags.set["ics"]:
		err = runICS(cfg, provider, now().In(loc), flags.icsDays, stdout, logger)
	case flags.listen != "":
		cfg.Listen = flags.listen
		err = web.StartServer(ctx, cfg, ephemeris.NewCache(provider, 0), loc, logger.With("component", "web"))
	case flags.watch:
		err = runWatch(ctx, cfg, ephemeris.NewCache(provider, 0), loc, stdout, logger)
	default:
		err = printBar(cfg, provider, now().In(loc), stdout, logger)
	}

	if err != nil {
		logger.Error("sunbar failed", err)
		return exitError
	}
	return exitOK
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func parseFlags(args []string, stderr io.Writer) (flagConfig, []string, error) {
	cfg := flagConfig{set: make(map[string]bool)}

	fs := flag.NewFlagSet("sunbar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: sunbar [flags] <latitude> <longitude>")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.configPath, "config", "", "Path to an optional YAML config file")
	fs.Float64Var(&cfg.elevation, "elevation", 0.0, "Current elevation in metres")
	fs.StringVar(&cfg.loglevel, "loglevel", "WARNING", "Loglevel (DEBUG, INFO, WARNING, ERROR)")
	fs.IntVar(&cfg.length, "length", bar.DefaultLength, "Bar length in characters")
	fs.BoolVar(&cfg.watch, "watch", false, "Redraw on the configured refresh schedule")
	fs.StringVar(&cfg.listen, "listen", "", "Serve the HTTP API on this address instead of printing")
	fs.IntVar(&cfg.icsDays, "ics", 0, "Print an iCalendar of the next N days and exit")

	flagArgs, positional := splitArgs(fs, args)
	if err := fs.Parse(flagArgs); err != nil {
		return cfg, nil, err
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	return cfg, append(positional, fs.Args()...), nil
}

// splitArgs separates flags from positional coordinates so that flags may
// follow the coordinates and a negative coordinate ("-33.86") is not taken
// for a flag.
func splitArgs(fs *flag.FlagSet, args []string) (flagArgs, positional []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if _, err := strconv.ParseFloat(a, 64); err == nil || !strings.HasPrefix(a, "-") {
			positional = append(positional, a)
			continue
		}

		flagArgs = append(flagArgs, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil || isBoolFlag(f) || i+1 >= len(args) {
			continue
		}
		// Value flag: the next argument belongs to it, even if negative.
		i++
		flagArgs = append(flagArgs, args[i])
	}
	return flagArgs, positional
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// loadConfig merges the optional config file with CLI flags. Positional
// coordinates are required unless a config file supplies them.
func loadConfig(flags flagConfig, positional []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	switch len(positional) {
	case 2:
		lat, err := strconv.ParseFloat(positional[0], 64)
		if err != nil {
			return nil, usageError{fmt.Sprintf("invalid latitude %q", positional[0])}
		}
		lon, err := strconv.ParseFloat(positional[1], 64)
		if err != nil {
			return nil, usageError{fmt.Sprintf("invalid longitude %q", positional[1])}
		}
		cfg.Observer.Latitude = lat
		cfg.Observer.Longitude = lon
	case 0:
		if flags.configPath == "" {
			return nil, usageError{"latitude and longitude are required"}
		}
	default:
		return nil, usageError{"expected exactly two positional arguments: latitude longitude"}
	}

	if flags.set["elevation"] {
		cfg.Observer.Elevation = flags.elevation
	}
	if flags.set["length"] {
		cfg.Length = flags.length
	}
	if flags.set["ics"] && flags.icsDays <= 0 {
		return nil, usageError{"--ics needs a positive number of days"}
	}
	return cfg, nil
}

func printBar(cfg *config.Config, p ephemeris.Provider, now time.Time, out io.Writer, logger *appLog.Logger) error {
	w, err := window.NewResolver(p, logger).Resolve(cfg.Observer, now)
	if err != nil {
		return err
	}
	b, err := bar.NewRenderer(cfg.Length, logger).Render(w)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, b.String())
	return err
}

func runICS(cfg *config.Config, p ephemeris.Provider, from time.Time, days int, out io.Writer, logger *appLog.Logger) error {
	body, err := ics.Export(p, cfg.Observer, from, days, logger)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, body)
	return err
}

// runWatch redraws on every refresh tick. The first failure stops the loop
// and is returned.
func runWatch(ctx context.Context, cfg *config.Config, p ephemeris.Provider, loc *time.Location, out io.Writer, logger *appLog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
	)
	err := schedule.Run(ctx, cfg.RefreshCron, loc, logger, func(now time.Time) {
		if err := printBar(cfg, p, now, out, logger); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			cancel()
		}
	})
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}
