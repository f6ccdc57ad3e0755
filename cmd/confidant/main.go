package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/server"
	"github.com/hrygo/confidant/store"
	"github.com/hrygo/confidant/store/cache"
	"github.com/hrygo/confidant/store/db"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "confidant",
	Short: `A companion chat service with persistent memory of each conversation.`,
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:              viper.GetString("mode"),
			Addr:              viper.GetString("addr"),
			Port:              viper.GetInt("port"),
			Data:              viper.GetString("data"),
			Driver:            viper.GetString("driver"),
			DSN:               viper.GetString("dsn"),
			Version:           version,
			AIBaseURL:         viper.GetString("ai-base-url"),
			AIAPIKey:          viper.GetString("ai-api-key"),
			AIModel:           viper.GetString("ai-model"),
			PersonaFile:       viper.GetString("persona-file"),
			JWTSecret:         viper.GetString("jwt-secret"),
			HistoryWindow:     viper.GetInt("history-window"),
			SummaryInterval:   viper.GetInt("summary-interval"),
			SummaryWorkers:    viper.GetInt("summary-workers"),
			CompletionTimeout: viper.GetDuration("completion-timeout"),
			RateLimit:         viper.GetInt("rate-limit"),
			RateBurst:         viper.GetInt("rate-burst"),
			RedisAddr:         viper.GetString("redis-addr"),
			LogFormat:         viper.GetString("log-format"),
			LogLevel:          viper.GetString("log-level"),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid profile", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.SetDefault(newLogger(instanceProfile))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		storeInstance, err := newStore(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to create store", slog.String("error", err.Error()))
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			slog.Error("failed to create server", slog.String("error", err.Error()))
			_ = storeInstance.Close()
			return
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", slog.String("error", err.Error()))
			_ = storeInstance.Close()
			return
		}
		printGreetings(instanceProfile)

		<-c
		s.Shutdown(ctx)
	},
}

func newStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}

	cacheConfig := cache.DefaultTieredConfig()
	if instanceProfile.RedisAddr != "" {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addrs = instanceProfile.RedisAddr
		redisCache, err := cache.NewRedisCache(redisConfig)
		if err != nil {
			slog.Warn("redis unavailable, using in-memory preferences cache only", slog.String("error", err.Error()))
		} else {
			cacheConfig.L2 = redisCache
		}
	}

	storeInstance := store.NewWithCache(dbDriver, instanceProfile, cache.NewTieredCache(cacheConfig))
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return storeInstance, nil
}

func newLogger(instanceProfile *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if instanceProfile.IsDev() {
		level = slog.LevelDebug
	}
	if instanceProfile.LogLevel != "" {
		if err := level.UnmarshalText([]byte(instanceProfile.LogLevel)); err != nil {
			slog.Warn("unknown log level, keeping default", slog.String("level", instanceProfile.LogLevel))
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if instanceProfile.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func init() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 0, "port of server, defaults to 3000")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("ai-base-url", profile.DefaultAIBaseURL, "base URL of the OpenAI compatible completion API")
	rootCmd.PersistentFlags().String("ai-api-key", "", "API key of the completion provider")
	rootCmd.PersistentFlags().String("ai-model", "", "completion model")
	rootCmd.PersistentFlags().String("persona-file", "", "file holding the persona system prompt")
	rootCmd.PersistentFlags().String("jwt-secret", "", "secret used to verify bearer tokens")
	rootCmd.PersistentFlags().Int("history-window", profile.DefaultHistoryWindow, "number of recent messages sent with each request")
	rootCmd.PersistentFlags().Int("summary-interval", profile.DefaultSummaryInterval, "messages between summary refreshes")
	rootCmd.PersistentFlags().Int("summary-workers", profile.DefaultSummaryWorkers, "number of background summary workers")
	rootCmd.PersistentFlags().Duration("completion-timeout", profile.DefaultCompletionTimeout, "timeout of a single completion call")
	rootCmd.PersistentFlags().Int("rate-limit", 30, "sends allowed per user per minute, 0 disables")
	rootCmd.PersistentFlags().Int("rate-burst", 0, "burst of sends allowed per user, defaults to the rate limit")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address for the shared preferences cache")
	rootCmd.PersistentFlags().String("log-format", "text", "log format, text or json")
	rootCmd.PersistentFlags().String("log-level", "", "log level, debug, info, warn or error")

	flags := []string{
		"mode", "addr", "port", "data", "driver", "dsn",
		"ai-base-url", "ai-api-key", "ai-model", "persona-file", "jwt-secret",
		"history-window", "summary-interval", "summary-workers", "completion-timeout",
		"rate-limit", "rate-burst", "redis-addr", "log-format", "log-level",
	}
	for _, name := range flags {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("confidant")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("Confidant %s started successfully!\n", instanceProfile.Version)
	if instanceProfile.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if instanceProfile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", instanceProfile.DSN)
		}
	}
	if len(instanceProfile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", instanceProfile.Port)
		fmt.Printf("Access your companion at: http://localhost:%d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
	fmt.Printf("Model: %s\n", instanceProfile.AIModel)
	fmt.Println()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
