package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/covers"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/repositories"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/desertthunder/mixsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the services built on it are opened on first use so commands like
// "setup config" work before a database exists.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	sources    map[string]services.Source

	db        *sql.DB
	ownsDB    bool
	playlists *repositories.PlaylistRepository
	tracks    *repositories.PlaylistTrackRepository
	runs      *repositories.SyncRunRepository
	coverRepo *repositories.CoverRepository
	covers    *covers.Cache
	engine    *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB                    // Optional pre-opened database, already migrated
	Sources    map[string]services.Source // Optional sources keyed by provenance, overriding the configured ones
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
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Sources == nil {
		opts.Sources = map[string]services.Source{}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		sources:    opts.Sources,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, syncCommand, coverCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by --config and applies --verbose.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("loaded config", "path", path)
	return ctx, nil
}

// open connects to the database and builds the repositories, cover cache, and engine.
func (r *Runner) open() error {
	if r.engine != nil {
		return nil
	}

	if r.db == nil {
		path := r.config.DatabasePath()
		db, err := shared.NewDatabase(path)
		if err != nil {
			return err
		}
		if path != ":memory:" {
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
		r.ownsDB = true
	}

	r.playlists = repositories.NewPlaylistRepository(r.db)
	r.tracks = repositories.NewPlaylistTrackRepository(r.db)
	r.runs = repositories.NewSyncRunRepository(r.db)
	r.coverRepo = repositories.NewCoverRepository(r.db)

	cache, err := covers.New(r.coverRepo, covers.Options{
		MaxDimension: r.config.Covers.MaxDimension,
		JPEGQuality:  r.config.Covers.JPEGQuality,
		CacheSize:    r.config.Covers.CacheSize,
	})
	if err != nil {
		return err
	}
	r.covers = cache

	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return covers.Download(ctx, r.httpClient, url)
	}

	r.engine = tasks.NewPlaylistEngine(
		r.playlists, r.tracks, r.runs,
		tasks.NewLocker(r.config.LockDir()),
		tasks.WithCovers(r.covers, fetch),
		tasks.WithEngineLogger(shared.WithLogger(r.logger, "component", "engine")),
	)
	return nil
}

// Close releases the database if the Runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.engine = nil
	return err
}

// source resolves the incoming source for a provenance name.
func (r *Runner) source(name string) (services.Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if src, ok := r.sources[name]; ok {
		return src, nil
	}

	switch name {
	case models.ProvenanceSpotify:
		svc, err := services.NewSpotifyService(
			r.config.Credentials.Spotify.Map(),
			services.WithRequestsPerSecond(r.config.Spotify.RequestsPerSecond),
			services.WithPageSize(r.config.Spotify.PageSize),
			services.WithLogger(shared.WithLogger(r.logger, "component", "spotify")),
		)
		if err != nil {
			return nil, err
		}
		r.sources[name] = svc
		return svc, nil
	case models.ProvenanceFile:
		src := services.NewFileSource()
		r.sources[name] = src
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q (expected spotify or file)", shared.ErrUnknownProvenance, name)
	}
}

// progress starts a goroutine printing progress updates and returns the channel plus a function
// that closes it and waits for the printer to finish.
func (r *Runner) progress() (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.writePlain("%s\n", update.Message)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

// progressFor is [Runner.progress] unless --json is set, in which case updates are discarded
// so the output stays parseable.
func (r *Runner) progressFor(cmd *cli.Command) (chan tasks.ProgressUpdate, func()) {
	if cmd.Bool("json") {
		return nil, func() {}
	}
	return r.progress()
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
