package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snipstash/backend/internal/auth"
	"github.com/snipstash/backend/internal/config"
	"github.com/snipstash/backend/internal/database"
	"github.com/snipstash/backend/internal/embedding"
	"github.com/snipstash/backend/internal/logging"
	"github.com/snipstash/backend/internal/server"
	"github.com/snipstash/backend/internal/snippets"
	"github.com/snipstash/backend/internal/teams"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snipstash-api",
		Short: "SnipStash snippet storage and semantic search service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("embedding-base-url", defaults.GetString("embedding.base_url"), "OpenAI-compatible embeddings endpoint base URL")
	cmd.PersistentFlags().String("embedding-model", defaults.GetString("embedding.model"), "Embedding model name")
	cmd.PersistentFlags().Int("embedding-dimension", defaults.GetInt("embedding.dimension"), "Expected embedding dimension")
	cmd.PersistentFlags().Int("search-default-limit", defaults.GetInt("search.default_limit"), "Default number of search results")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "embedding.base_url", "embedding-base-url")
	bindFlag(cmd, "embedding.model", "embedding-model")
	bindFlag(cmd, "embedding.dimension", "embedding-dimension")
	bindFlag(cmd, "search.default_limit", "search-default-limit")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	teamsService, err := teams.NewService(teams.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	// The provider client is built lazily so a cold or absent model server
	// delays search, not process startup. Probe makes a bad endpoint fail
	// the attempt instead of poisoning every later embed call.
	generator, err := embedding.NewGenerator(embedding.GeneratorConfig{
		Dimension: appConfig.EmbeddingDimension,
		Logger:    logger,
		Factory: func(factoryCtx context.Context) (embedding.Embedder, error) {
			client, err := embedding.NewClient(embedding.ClientConfig{
				BaseURL:   appConfig.EmbeddingBaseURL,
				Model:     appConfig.EmbeddingModel,
				Dimension: appConfig.EmbeddingDimension,
			})
			if err != nil {
				return nil, err
			}
			probeCtx, cancel := context.WithTimeout(factoryCtx, 30*time.Second)
			defer cancel()
			if err := client.Probe(probeCtx); err != nil {
				return nil, err
			}
			return client, nil
		},
	})
	if err != nil {
		return err
	}

	snippetsService, err := snippets.NewService(snippets.ServiceConfig{
		Database:           db,
		Embedder:           generator,
		Memberships:        teamsService,
		Clock:              time.Now,
		IDProvider:         snippets.NewUUIDProvider(),
		Logger:             logger,
		DefaultSearchLimit: appConfig.SearchDefaultLimit,
	})
	if err != nil {
		return err
	}

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.AuthSigningKey),
		Issuer:        appConfig.AuthIssuer,
		CookieName:    appConfig.AuthCookieName,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:        sessionValidator,
		SnippetsService: snippetsService,
		Memberships:     teamsService,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
