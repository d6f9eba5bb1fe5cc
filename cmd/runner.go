package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/repositories"
	"github.com/desertthunder/pagewalk/internal/server"
	"github.com/desertthunder/pagewalk/internal/services"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/desertthunder/pagewalk/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	creds       pagination.CredentialProvider
	httpClient  *http.Client
	db          *sql.DB
	logger      *log.Logger
	output      io.Writer
	authorize   func(w io.Writer, url string) bool
	stopMetrics context.CancelFunc
	metricsDone chan error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Credentials pagination.CredentialProvider // defaults to OAuth credentials from the config
	HTTPClient  *http.Client // defaults to a client with the configured API timeout
	DB          *sql.DB // opened from the config on first use when nil
	Logger      *log.Logger
	Output      io.Writer
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		creds:      opts.Credentials,
		httpClient: opts.HTTPClient,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		authorize:  shared.PromptAuthorization,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "pagewalk",
		Usage:   "Fetch playable tracks from paginated listings",
		Version: "0.1.0",
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve prometheus metrics on this address while the command runs",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

// Before loads the config file when it exists, applies log settings and starts the metrics server.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
		r.configPath = path
	} else if r.configPath == "" {
		r.configPath = path
	}

	if r.config.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return ctx, err
		}
		r.SetLogger(fileLogger)
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	if addr := cmd.String("metrics-addr"); addr != "" {
		if err := r.startMetrics(ctx, addr); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// After stops the metrics server and closes the item cache.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.stopMetrics != nil {
		r.stopMetrics()
		if err := <-r.metricsDone; err != nil {
			r.logger.Warn("metrics server stopped with error", "err", err)
		}
		r.stopMetrics = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		r.db = nil
	}
	return nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tracksCommand, playlistCommand, batchCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) startMetrics(ctx context.Context, addr string) error {
	srvCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ready := make(chan string, 1)
	done := make(chan error, 1)

	router := server.NewRouter(r.logger)
	go func() {
		done <- server.Serve(srvCtx, addr, router, r.logger, ready)
	}()

	select {
	case bound := <-ready:
		r.logger.Info("serving metrics", "url", "http://"+bound+"/metrics", "routes", router.Patterns())
	case err := <-done:
		cancel()
		return err
	}

	r.stopMetrics = cancel
	r.metricsDone = done
	return nil
}

// credentials returns the injected provider, or OAuth credentials built from the config whose refreshed
// tokens are saved back to the config file.
func (r *Runner) credentials() (pagination.CredentialProvider, error) {
	if r.creds != nil {
		return r.creds, nil
	}
	creds, err := r.oauthCredentials()
	if err != nil {
		return nil, err
	}
	r.creds = creds
	return creds, nil
}

func (r *Runner) oauthCredentials() (*services.OAuthCredentials, error) {
	oauth := r.config.Credentials.OAuth
	if r.configPath != "" && oauth.AccessToken == "" && oauth.RefreshToken == "" {
		if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run 'pagewalk setup database'): %w",
				shared.ErrMissingConfig, r.configPath, shared.ErrMissingCredentials)
		}
	}

	creds, err := services.NewOAuthCredentials(oauth.Map(), r.saveTokens)
	if err != nil {
		return nil, err
	}
	creds.SetLogger(r.logger)
	return creds, nil
}

// saveTokens stores an issued or refreshed token in the config, and in the config file when one is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidConfig)
	}

	if err := r.config.Credentials.OAuth.Update(token); err != nil {
		return fmt.Errorf("failed to update oauth configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("saved tokens", "path", r.configPath)
	return nil
}

func (r *Runner) listingClient() *services.ListingClient {
	opts := []services.ClientOption{services.WithClientLogger(r.logger)}
	if r.httpClient != nil {
		opts = append(opts, services.WithHTTPClient(r.httpClient))
	}
	return services.NewListingClient(r.config.API, opts...)
}

// itemRepository opens the item cache on first use.
func (r *Runner) itemRepository() (*repositories.ItemRepository, error) {
	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open item cache: %w", err)
		}
		r.db = db
	}
	return repositories.NewItemRepository(r.db), nil
}

// engine builds a fetch engine, caching fetched items when cache is set.
func (r *Runner) engine(cache bool) (*tasks.Engine, error) {
	creds, err := r.credentials()
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		Credentials: creds,
		Logger:      r.logger,
		ChunkDelay:  r.config.Fetch.ChunkDelay(),
	}
	if cache {
		repo, err := r.itemRepository()
		if err != nil {
			return nil, err
		}
		opts.Cacher = repositories.NewItemCacheAdapter(repo)
	}
	return tasks.NewEngine(opts), nil
}

// logProgress logs progress updates until the channel is closed, then signals done.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
	}
	close(done)
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
