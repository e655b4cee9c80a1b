package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jothamO/prism-admin/internal/api"
	"github.com/jothamO/prism-admin/internal/classifier"
	"github.com/jothamO/prism-admin/internal/engine"
	"github.com/jothamO/prism-admin/internal/messaging"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/session"
	"github.com/jothamO/prism-admin/internal/store"
	"github.com/jothamO/prism-admin/internal/taxapi"
	"github.com/jothamO/prism-admin/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for simulator state data
	DefaultStateDir = "/var/lib/prism-simulator"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "simulator.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	classifierOpts := buildClassifierOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping simulator with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "classifier", len(classifierOpts), "api", len(apiOpts))

	if err := run(flags, storeOpts, classifierOpts, apiOpts); err != nil {
		slog.Error("Simulator failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Simulator exited successfully")
}

// run wires the modules together and serves until interrupted.
func run(flags Flags, storeOpts []store.Option, classifierOpts []classifier.Option, apiOpts []api.Option) error {
	st, err := openStore(storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(st, models.DefaultPolicy())

	engineOpts := []engine.Option{}

	cls := classifier.New(classifierOpts...)
	if cls.Enabled() {
		engineOpts = append(engineOpts, engine.WithClassifier(cls))
	} else {
		slog.Info("run: no OpenAI key configured, classifier disabled")
	}

	if *flags.taxAPIBase != "" {
		taxClient, err := taxapi.NewClient(taxapi.WithBaseURL(*flags.taxAPIBase))
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, engine.WithTaxService(taxClient))
	} else {
		slog.Info("run: no TAXAPI_BASE_URL configured, calculators disabled")
	}

	if *flags.mirrorTo != "" {
		channel, err := messaging.NewTwilioChannel(messaging.WithMirrorTo(*flags.mirrorTo))
		if err != nil {
			slog.Warn("run: Twilio mirror unavailable, falling back to log channel", "error", err)
		} else {
			engineOpts = append(engineOpts, engine.WithChannel(channel))
		}
	}

	eng := engine.New(sessions, st, engineOpts...)
	server := api.NewServer(eng, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}

// openStore builds the configured store backend, defaulting to in-memory.
func openStore(opts []store.Option) (store.Store, error) {
	if len(opts) == 0 {
		slog.Info("openStore: using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		return store.NewPostgresStore(opts...)
	}
	return store.NewSQLiteStore(opts...)
}

// Config holds environment configuration
type Config struct {
	DBDSN      string
	StateDir   string
	OpenAIKey  string
	TaxAPIBase string
	APIAddr    string
	MirrorTo   string
	Debug      bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDSN      *string
	openaiKey  *string
	taxAPIBase *string
	apiAddr    *string
	mirrorTo   *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	level := slog.LevelDebug
	if !util.ParseBoolEnv("SIMULATOR_DEBUG", true) {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DBDSN:      util.FirstEnv("SIMULATOR_DB_DSN", "DATABASE_URL"),
		StateDir:   util.EnvOrDefault("SIMULATOR_STATE_DIR", DefaultStateDir),
		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		TaxAPIBase: os.Getenv("TAXAPI_BASE_URL"),
		APIAddr:    os.Getenv("API_ADDR"),
		MirrorTo:   os.Getenv("SIMULATOR_MIRROR_TO"),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DBDSN)
	}

	slog.Debug("environment variables loaded",
		"SIMULATOR_DB_DSN_SET", config.DBDSN != "",
		"SIMULATOR_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TAXAPI_BASE_URL", config.TaxAPIBase,
		"API_ADDR", config.APIAddr,
		"SIMULATOR_MIRROR_TO_SET", config.MirrorTo != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for simulator data (overrides $SIMULATOR_STATE_DIR)"),
		dbDSN:      flag.String("db-dsn", config.DBDSN, "database DSN for the session store (overrides $SIMULATOR_DB_DSN or $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the intent classifier (overrides $OPENAI_API_KEY)"),
		taxAPIBase: flag.String("taxapi-base-url", config.TaxAPIBase, "base URL of the tax calculation service (overrides $TAXAPI_BASE_URL)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "admin API server address (overrides $API_ADDR)"),
		mirrorTo:   flag.String("mirror-to", config.MirrorTo, "WhatsApp number to mirror bot output to via Twilio (overrides $SIMULATOR_MIRROR_TO)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"taxAPIBase", *flags.taxAPIBase,
		"apiAddr", *flags.apiAddr,
		"mirrorToSet", *flags.mirrorTo != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DBDSN && config.DBDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildClassifierOptions constructs classifier configuration options
func buildClassifierOptions(flags Flags) []classifier.Option {
	var opts []classifier.Option
	if *flags.openaiKey != "" {
		opts = append(opts, classifier.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
