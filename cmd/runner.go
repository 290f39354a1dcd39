package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/query"
	"github.com/desertthunder/ticketscope/internal/repositories"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/shared"
	"github.com/desertthunder/ticketscope/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The backend and database are opened lazily so commands that need neither (setup, --dry-run)
// work without a reachable backend.
type Runner struct {
	config     *shared.Config
	configPath string
	backend    services.Backend
	cached     *query.Backend
	db         *sql.DB
	ownsDB     bool
	closers    []func()
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Backend    services.Backend
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Backend.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		backend:    opts.Backend,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database and backend connections opened by the runner.
func (r *Runner) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
	if r.ownsDB && r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, analyticsCommand, cacheCommand, apiCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}
	commands = append(commands, entityCommands(r)...)

	return commands
}

// database opens the local sqlite database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	r.ownsDB = true
	return db, nil
}

// rawBackend builds the configured backend without the query cache.
func (r *Runner) rawBackend(ctx context.Context) (services.Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}

	cfg := r.config.Backend
	switch cfg.Mode {
	case "postgres":
		pool, err := services.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, pool.Close)
		r.backend = services.NewPostgresBackend(pool)
	case "", "rest":
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: backend.url", shared.ErrMissingConfig)
		}
		api := services.NewAPIService(cfg.URL, r.httpClient,
			services.WithAPIKey(cfg.Key()),
			services.WithRateLimit(cfg.RateLimit),
			services.WithLogger(r.logger),
		)
		r.backend = services.NewRESTBackend(api)
	default:
		return nil, fmt.Errorf("%w: backend.mode %q", shared.ErrInvalidConfig, cfg.Mode)
	}

	r.logger.Debug("backend ready", "backend", r.backend.Name())
	return r.backend, nil
}

// Backend returns the configured backend behind the query cache. With
// query.persist enabled the cache lives in the sqlite database.
func (r *Runner) Backend(ctx context.Context) (*query.Backend, error) {
	if r.cached != nil {
		return r.cached, nil
	}

	raw, err := r.rawBackend(ctx)
	if err != nil {
		return nil, err
	}

	var store query.Store
	if r.config.Query.Persist {
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		store = repositories.NewQueryCacheRepository(db)
	}

	retry := query.DefaultRetryPolicy()
	retry.MaxRetries = r.config.Query.MaxRetries

	client := query.NewClient(query.Options{
		Store:     store,
		StaleTime: r.config.Query.StaleTime(),
		Retry:     &retry,
		Logger:    r.logger,
	})
	r.cached = client.Wrap(raw)
	return r.cached, nil
}

// engine builds a task engine over the cached backend. Jobs are recorded when
// the database can be opened.
func (r *Runner) engine(ctx context.Context) (*tasks.Engine, error) {
	b, err := r.Backend(ctx)
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		Analytics: r.analyzer(b),
		Logger:    r.logger,
	}
	if db, err := r.database(); err == nil {
		opts.Jobs = repositories.NewExportJobRepository(db)
	} else {
		r.logger.Warn("export jobs will not be recorded", "err", err)
	}
	return tasks.NewEngine(b, opts), nil
}

func (r *Runner) analyzer(b services.Backend) *services.AnalyticsResolver {
	return services.NewAnalyticsResolver(b, services.AnalyticsOpts{Logger: r.logger})
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
