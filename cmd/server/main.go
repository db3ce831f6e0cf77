package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/martinhantha/kutt/internal/cache"
	"github.com/martinhantha/kutt/internal/cache/memory"
	"github.com/martinhantha/kutt/internal/cache/redis"
	"github.com/martinhantha/kutt/internal/config"
	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/filter"
	"github.com/martinhantha/kutt/internal/repository/sqlstore"
	"github.com/martinhantha/kutt/internal/service"
	"github.com/martinhantha/kutt/internal/shortener"
	"github.com/martinhantha/kutt/internal/transport/client"
	httpTransport "github.com/martinhantha/kutt/internal/transport/http"
)

var rootCmd = &cobra.Command{
	Use:           "kutt",
	Short:         "Link shortener resolution service",
	Long:          "Resolves short links through a TTL cache in front of a SQLite, libsql or Postgres store, keeping the cache coherent across mutations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [ADDRESS]",
	Short: "Resolve an address on the default domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Link cache maintenance",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drop every cached link",
	RunE:  runCacheFlush,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with a running server",
}

var createCmd = &cobra.Command{
	Use:   "create [TARGET]",
	Short: "Create a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateLink,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List links",
	RunE:  runListLinks,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [ID]",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteLink,
}

var batchDeleteCmd = &cobra.Command{
	Use:   "batch-delete [ID...]",
	Short: "Delete several links at once",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatchDelete,
}

func init() {
	// Server command flags override the environment
	serveCmd.Flags().StringP("port", "p", "", "Server port (overrides PORT)")
	serveCmd.Flags().BoolP("verbose", "v", false, "Log error response bodies")

	// Client command flags
	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:3000", "Server URL")
	createCmd.Flags().StringP("address", "a", "", "Custom address (generated when empty)")
	listCmd.Flags().Uint64("skip", 0, "Number of links to skip")
	listCmd.Flags().Uint64("limit", 10, "Number of links to show")
	listCmd.Flags().StringP("search", "s", "", "Search description, address and target")

	// Add subcommands
	cacheCmd.AddCommand(cacheFlushCmd)
	clientCmd.AddCommand(createCmd, listCmd, deleteCmd, batchDeleteCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, resolveCmd, cacheCmd, clientCmd)
}

// loadConfig reads an optional .env file and then the environment
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return config.Load()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (*sqlstore.Repository, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Client)
	if err != nil {
		return nil, err
	}

	open := sqlstore.Open
	if migrate {
		open = sqlstore.New
	}
	repo, err := open(ctx, dialect, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repo, nil
}

// newCacheStore returns nil when the cache is disabled
func newCacheStore(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Store {
	if !cfg.Enabled {
		logger.Info("link cache disabled")
		return nil
	}

	if cfg.Driver == config.CacheDriverMemory {
		store := memory.New()
		if err := store.StartJanitor(context.Background(), time.Minute); err != nil {
			logger.Warn("failed to start memory cache janitor", "error", err)
		}
		logger.Info("using in-memory link cache", "ttl", cfg.TTL)
		return store
	}

	store := redis.New(redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// Lookups fall back to the store until Redis answers
		logger.Warn("redis is unreachable, lookups will use the database", "addr", cfg.Addr(), "error", err)
	} else {
		logger.Info("using redis link cache", "addr", cfg.Addr(), "ttl", cfg.TTL)
	}
	return store
}

// newResolver wires the repository, cache and generator into a resolver
func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Resolver, error) {
	repo, err := openRepository(ctx, cfg.Database, true)
	if err != nil {
		return nil, err
	}

	generator, err := shortener.NewGenerator(cfg.Shortener, repo)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create address generator: %w", err)
	}
	logger.Debug("address generator ready", "type", generator.Type())

	store := newCacheStore(ctx, cfg.Cache, logger)
	return service.NewResolver(repo, store, generator, service.Config{
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
	}, logger), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Logging)
	logger.Info("starting kutt",
		"port", cfg.Server.Port,
		"default_domain", cfg.Server.DefaultDomain,
		"db_client", cfg.Database.Client,
		"cache_enabled", cfg.Cache.Enabled,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	resolver, err := newResolver(ctx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Error("error closing resolver", "error", err)
		}
	}()

	// Create and start HTTP server
	server := httpTransport.NewServer(resolver, cfg.Server.Port, cfg.Server.DefaultDomain, cfg.Logging.Verbose, logger)

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	repo, err := openRepository(ctx, cfg.Database, false)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrations applied", "db_client", cfg.Database.Client)
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer resolver.Close()

	link, err := resolver.Find(ctx, filter.ByAddress(args[0], domain.DefaultDomain()))
	if err != nil {
		return err
	}
	if link == nil {
		return fmt.Errorf("address '%s' not found", args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), link.Target)
	return nil
}

func runCacheFlush(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Link cache is disabled, nothing to flush")
		return nil
	}
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer resolver.Close()

	removed := resolver.FlushCache(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "Flushed %d cached links\n", removed)
	return nil
}

func newCommands(cmd *cobra.Command) *client.Commands {
	serverURL, _ := cmd.Flags().GetString("server-url")
	return client.NewCommands(client.NewClient(serverURL), cmd.OutOrStdout())
}

func runCreateLink(cmd *cobra.Command, args []string) error {
	address, _ := cmd.Flags().GetString("address")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Create(ctx, args[0], address)
}

func runListLinks(cmd *cobra.Command, args []string) error {
	skip, _ := cmd.Flags().GetUint64("skip")
	limit, _ := cmd.Flags().GetUint64("limit")
	search, _ := cmd.Flags().GetString("search")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).List(ctx, skip, limit, search)
}

func runDeleteLink(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Delete(ctx, ids[0])
}

func runBatchDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).BatchDelete(ctx, ids)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid link id: %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
