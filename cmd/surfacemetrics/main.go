package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"surfacemetrics/pkg/config"
	"surfacemetrics/pkg/sink"
)

type command struct {
	summary string
	run     func(args []string) error
}

var commands = map[string]command{
	"distance":   {"mean distance from every vertex to another surface", runDistance},
	"topology":   {"spherical coordinates and areal roughness around a target", runTopology},
	"ridges":     {"high-curvature ridges, their area and skeleton length", runRidges},
	"intensity":  {"relative membrane intensity projected onto the surface", runIntensity},
	"composite":  {"two-channel membrane intensity", runComposite},
	"voids":      {"segment low-intensity voids in volumes", runVoids},
	"voidsize":   {"size of the void under a tracked point", runVoidSize},
	"motion":     {"distance travelled by tracked points", runMotion},
	"recolor":    {"write surfaces coloured by a measurement", runRecolor},
	"isosurface": {"extract the surface of volumes", runIsosurface},
	"config":     {"write the default configuration file", runConfig},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\nCommands:\n", os.Args[0])
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for the flags of a command.\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("SURFACE METRICS FOR 3D MICROSCOPY OF CELLS ENGULFING TARGETS")
	fmt.Println("================================")

	startTime := time.Now()
	if err := cmd.run(os.Args[2:]); err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
	fmt.Printf("\n%s completed successfully in %.2f seconds!\n", os.Args[1], time.Since(startTime).Seconds())
}

// common holds the flags shared by every measurement command.
type common struct {
	configPath *string
	outDir     *string
	database   *string
	debug      *bool
	jsonLogs   *bool
}

func commonFlags(fs *flag.FlagSet) *common {
	return &common{
		configPath: fs.String("config", "surfacemetrics.yaml", "Configuration file (defaults apply when missing)"),
		outDir:     fs.String("out", "", "Directory receiving result tables (overrides config)"),
		database:   fs.String("db", "", "SQLite results database (overrides config)"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
		jsonLogs:   fs.Bool("json", false, "Log as JSON"),
	}
}

// env is the configured runtime of one command.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	sink   sink.Appender
	db     *sink.SQLite
}

func (c *common) setup(command string) (*env, error) {
	cfg, err := config.LoadConfig(*c.configPath)
	if err != nil {
		return nil, err
	}
	if *c.outDir != "" {
		cfg.Output.Dir = *c.outDir
	}
	if *c.database != "" {
		cfg.Output.Database = *c.database
	}
	if *c.jsonLogs {
		cfg.Output.JSONLogs = true
	}

	level := slog.LevelInfo
	if !cfg.Output.Verbose {
		level = slog.LevelWarn
	}
	if *c.debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Output.JSONLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler).With("command", command)
	slog.SetDefault(logger)

	e := &env{cfg: cfg, logger: logger}
	var tee sink.Tee
	if cfg.Output.Dir != "" {
		tee = append(tee, sink.NewCSV(cfg.Output.Dir))
	}
	if cfg.Output.Database != "" {
		db, err := sink.OpenSQLite(cfg.Output.Database, command)
		if err != nil {
			return nil, fmt.Errorf("failed to open results database: %w", err)
		}
		e.db = db
		tee = append(tee, db)
		logger.Info("recording run", "database", cfg.Output.Database, "run", db.RunID)
	}
	if len(tee) > 0 {
		e.sink = tee
	}
	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Warn("failed to close results database", "error", err)
		}
	}
}

// required exits with the command usage when a named flag was left empty.
func required(fs *flag.FlagSet, names ...string) {
	for _, name := range names {
		if f := fs.Lookup(name); f != nil && f.Value.String() == "" {
			fmt.Fprintf(os.Stderr, "flag -%s is required\n", name)
			fs.Usage()
			os.Exit(2)
		}
	}
}
