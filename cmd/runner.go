package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acegen/internal/channels"
	"github.com/desertthunder/acegen/internal/repositories"
	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/desertthunder/acegen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	engine     services.Engine
	notifier   services.Notifier
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	stdin      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner. Engine and
// Notifier are normally built per command from the loaded config; injecting
// them here substitutes fakes in tests.
type RunnerOpts struct {
	Engine     services.Engine
	Notifier   services.Notifier
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Stdin      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	return &Runner{
		engine:     opts.Engine,
		notifier:   opts.Notifier,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		stdin:      opts.Stdin,
	}
}

// SetLogger replaces the runner's logger for commands that redirect logging.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, generateCommand, setupCommand, statusCommand, channelsCommand, cacheCommand, apiCommand, updateCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveConfig loads and validates the config for commands that run the
// pipeline, creating the file from the embedded template when it is missing.
func (r *Runner) resolveConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
		}
		r.logger.Info("config file created", "path", path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

// loadConfig reads the config when the file exists and falls back to the
// embedded defaults otherwise, for commands that only need connection
// settings.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

// configureLogging applies the log level and optional log file, flag values
// taking precedence over the config. The returned closer releases the log
// file when one was opened.
func (r *Runner) configureLogging(config *shared.Config, level, file string) (func(), error) {
	if level == "" {
		level = config.Log.Level
	}
	if file == "" {
		file = config.Log.File
	}

	var parsed log.Level
	if level != "" {
		var err error
		if parsed, err = log.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("%w: log level %q: %v", shared.ErrInvalidFlag, level, err)
		}
		shared.SetLogLevel(r.logger, parsed)
	}

	if file == "" {
		return func() {}, nil
	}

	fileLogger, f, err := shared.NewFileLogger(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if level != "" {
		shared.SetLogLevel(fileLogger, parsed)
	}
	r.SetLogger(fileLogger)

	return func() { f.Close() }, nil
}

// engineClient returns the injected engine when one was provided, otherwise
// a client for the configured engine address.
func (r *Runner) engineClient(config *shared.Config) services.Engine {
	if r.engine != nil {
		return r.engine
	}
	return services.NewEngineClient(config.Engine.Addr, config.Engine.SearchPageSize, r.httpClient, r.logger)
}

// notifierFor returns the injected notifier when one was provided, an SMTP
// notifier when crash notifications are enabled and a no-op otherwise.
func (r *Runner) notifierFor(config *shared.Config) services.Notifier {
	if r.notifier != nil {
		return r.notifier
	}
	if config.Crash.Notify {
		return services.NewSMTPNotifier(config.SMTP)
	}
	return services.NoopNotifier{}
}

// channelRepository compiles the rule sets of every configured destination
// into a repository over the given engine and checker.
func (r *Runner) channelRepository(config *shared.Config, engine services.Engine, checker *services.Checker) (*channels.Repository, error) {
	checkTTL := time.Duration(config.Database.CheckTTLHours) * time.Hour
	return channels.NewRepository(engine, checker, config.Destinations, checkTTL, r.logger)
}

// generationStack bundles the collaborators behind one generation run.
type generationStack struct {
	generator *tasks.Generator
	db        *sql.DB
}

// Close releases the stack's database handle when one was opened.
func (s *generationStack) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// buildStack wires the engine client, check cache, checker, channel
// repository and generator for config. The check cache is skipped when no
// database path is configured; probes then run uncached.
func (r *Runner) buildStack(config *shared.Config) (*generationStack, error) {
	engine := r.engineClient(config)

	var db *sql.DB
	var cache services.CheckCache
	if config.Database.Path != "" {
		var err error
		if db, err = shared.NewDatabase(config.Database.Path); err != nil {
			return nil, fmt.Errorf("failed to open check database: %w", err)
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		if _, err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		cache = repositories.NewCheckCacheAdapter(repositories.NewCheckRepository(db))
	}

	checker := services.NewChecker(r.httpClient, cache, r.logger)

	repo, err := r.channelRepository(config, engine, checker)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	return &generationStack{
		generator: tasks.NewGenerator(config, repo, engine, r.logger),
		db:        db,
	}, nil
}

// destinationByName finds the destination with the given name, defaulting to
// the first configured one when name is empty. Callers pass validated
// configs, so at least one destination exists.
func destinationByName(config *shared.Config, name string) (shared.Destination, error) {
	if name == "" {
		return config.Destinations[0], nil
	}
	for _, dest := range config.Destinations {
		if dest.Name == name {
			return dest, nil
		}
	}
	return shared.Destination{}, fmt.Errorf("%w: unknown destination %q", shared.ErrInvalidArgument, name)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
