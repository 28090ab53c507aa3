package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/kartoza/cplus-plugin/internal/adapters/api"
	tomlrepo "github.com/kartoza/cplus-plugin/internal/adapters/repo/toml"
	filestore "github.com/kartoza/cplus-plugin/internal/adapters/secrets/file"
	"github.com/kartoza/cplus-plugin/internal/application"
	"github.com/kartoza/cplus-plugin/internal/domain"
	"github.com/kartoza/cplus-plugin/internal/ports"
	"github.com/kartoza/cplus-plugin/internal/version"
)

type app struct {
	service         *application.Service
	client          *api.Client
	auth            *api.Authenticator
	settingsRepo    ports.SettingsRepository
	credentialStore ports.CredentialStore
	settings        domain.Settings
	logger          zerolog.Logger
	now             func() time.Time
}

func wireApp() (*app, error) {
	settingsRepo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}

	settings, err := settingsRepo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	credentialStore := filestore.NewStore(filepath.Join(homeDir, ".cplus", "secrets"))

	logger := newLogger(settings.Debug)
	transport := api.NewTransport(logger)
	auth := api.NewAuthenticator(
		transport,
		api.TrendsURL{Base: envOrDefault("CPLUS_TRENDS_API_URL", api.DefaultTrendsBaseURL)},
		credentialStore,
		ports.SystemClock{},
		logger,
	)

	client := api.NewClient(api.ClientConfig{
		Transport:     transport,
		Auth:          auth,
		BaseURL:       effectiveBaseURL(settings),
		PluginVersion: version.Version,
		Logger:        logger,
	})

	uploader := api.NewUploader(transport, ports.SystemSleeper{}, logger)
	downloader := &api.Downloader{Logger: logger}

	return &app{
		service:         application.NewService(client, uploader, downloader, logger),
		client:          client,
		auth:            auth,
		settingsRepo:    settingsRepo,
		credentialStore: credentialStore,
		settings:        settings,
		logger:          logger,
		now:             time.Now,
	}, nil
}

// effectiveBaseURL honors the configured override only in debug mode; in
// production the fixed endpoint always wins.
func effectiveBaseURL(settings domain.Settings) string {
	if override := os.Getenv("CPLUS_API_URL"); override != "" {
		return override
	}
	if settings.Debug && settings.BaseURL != "" {
		return settings.BaseURL
	}
	return api.DefaultBaseURL
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
