package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/glyscope/glyscope/internal/api"
	"github.com/glyscope/glyscope/internal/auth"
	"github.com/glyscope/glyscope/internal/config"
	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/internal/peaks"
	"github.com/glyscope/glyscope/internal/server"
	"github.com/glyscope/glyscope/internal/source"
	"github.com/glyscope/glyscope/internal/version"
	"github.com/glyscope/glyscope/internal/ws"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "analyze":
			runAnalyze(os.Args[2:])
			return
		case "hash-password":
			runHashPassword(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.New(viperCfg)
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Glyscope server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Detection options are fatal to get wrong: a misconfigured server
	// must not come up and silently produce different numbers.
	detectOpts := detect.Options{
		NominalSamplingMinutes: cfg.GetFloat64("analysis.sampling_minutes"),
		JitterToleranceMinutes: cfg.GetFloat64("analysis.jitter_minutes"),
		Exclusive:              detect.ExclusiveMode(cfg.GetString("analysis.exclusive_mode")),
	}
	switch eod := cfg.GetString("analysis.end_of_data"); eod {
	case "discard":
		detectOpts.EndOfData = detect.EndOfDataDiscard
	case "finalize":
		detectOpts.EndOfData = detect.EndOfDataFinalize
	default:
		logger.Fatal("invalid analysis.end_of_data", zap.String("value", eod))
	}
	if err := detect.ValidateOptions(detectOpts); err != nil {
		logger.Fatal("invalid analysis configuration", zap.Error(err))
	}

	peakOpts := peaks.Options{
		Threshold:      cfg.GetFloat64("peaks.threshold"),
		GapMinutes:     cfg.GetFloat64("peaks.gap_minutes"),
		BacktrackHours: cfg.GetFloat64("peaks.window_hours"),
	}

	// The reading store is optional in server mode: when the configured
	// database file exists it backs the readiness probe.
	var ready server.ReadinessChecker
	dbPath := cfg.GetString("database.path")
	if _, statErr := os.Stat(dbPath); statErr == nil {
		db, err := source.OpenSQLite(dbPath, cfg.GetString("database.table"))
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer db.Close()
		ready = db.Ping
		logger.Info("database attached",
			zap.String("component", "database"),
			zap.String("path", dbPath),
		)
	}

	// Auth is opt-in; when enabled the password hash must be provisioned
	// up front (see the hash-password subcommand).
	var tokens *auth.TokenService
	var authProvider server.AuthProvider
	if cfg.GetBool("auth.enabled") {
		hash := cfg.GetString("auth.password_hash")
		if hash == "" {
			logger.Fatal("auth.enabled requires auth.password_hash to be set")
		}

		jwtSecret := cfg.GetString("auth.jwt_secret")
		if jwtSecret == "" {
			// Ephemeral secret: tokens won't survive restarts.
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				logger.Fatal("failed to generate JWT secret", zap.Error(err))
			}
			jwtSecret = hex.EncodeToString(b)
			logger.Info("using auto-generated JWT secret (set auth.jwt_secret in config to persist sessions across restarts)",
				zap.String("component", "auth"),
			)
		}

		accessTTL := cfg.GetDuration("auth.access_token_ttl")
		if accessTTL == 0 {
			accessTTL = 15 * time.Minute
		}

		tokens = auth.NewTokenService([]byte(jwtSecret), accessTTL)
		authProvider = auth.NewHandler(auth.Credentials{
			Username:     cfg.GetString("auth.username"),
			PasswordHash: hash,
		}, tokens, logger.Named("auth"))
		logger.Info("auth enabled",
			zap.String("component", "auth"),
			zap.Duration("access_token_ttl", accessTTL),
		)
	}

	wsHandler := ws.NewHandler(tokens, logger.Named("ws"))
	apiHandler := api.New(detectOpts, cfg.GetInt("analysis.workers"), peakOpts, wsHandler, logger.Named("api"))

	var srvCfg server.Config
	if err := cfg.Sub("server").Unmarshal(&srvCfg); err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}
	addr := srvCfg.Addr()
	srv := server.New(addr, logger, ready, authProvider, apiHandler, wsHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("Glyscope server ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("Glyscope server stopped")
}

// runHashPassword prints the bcrypt hash for auth.password_hash.
func runHashPassword(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	password := fs.String("password", "", "password to hash")
	_ = fs.Parse(args)

	if *password == "" {
		fmt.Fprintln(os.Stderr, "hash-password: -password is required")
		os.Exit(2)
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
