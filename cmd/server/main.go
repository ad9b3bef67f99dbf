package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/iamcapote/semantic-flow-sub001/internal/config"
	"github.com/iamcapote/semantic-flow-sub001/internal/store/postgres"
	fakeproviderrepo "github.com/iamcapote/semantic-flow-sub001/providers/repofakes"
	"github.com/iamcapote/semantic-flow-sub001/server"
	fakeuserrepo "github.com/iamcapote/semantic-flow-sub001/users/repofake"
	"github.com/iamcapote/semantic-flow-sub001/webhook"
	fakeworkflowrepo "github.com/iamcapote/semantic-flow-sub001/workflows/repofakes"
)

const shutdownTimeout = 5 * time.Second

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	port := pflag.String("port", "", "listen port, overrides PORT")
	pflag.Parse()

	if err := run(*envFile, *port); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(envFile, port string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New(envFile)
	if port != "" {
		_ = os.Setenv("PORT", port)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()

	handler, err := server.New(c, deps)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open event streams would otherwise hold Shutdown until its timeout
	srv.RegisterOnShutdown(handler.Hub().Close)

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// buildDependencies uses Postgres and Redis when configured, in-memory stores otherwise
func buildDependencies(ctx context.Context, c config.Config) (server.Dependencies, func(), error) {
	var (
		deps     server.Dependencies
		closers  []func()
		cleanupF = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	if dsn := c.GetDatabaseURL(); dsn != "" {
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return deps, cleanupF, err
		}
		closers = append(closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			cleanupF()
			return deps, func() {}, err
		}
		deps.Repos = server.Repos{
			Users:     postgres.NewUserRepo(pool),
			Workflows: postgres.NewWorkflowRepo(pool),
			Providers: postgres.NewProviderRepo(pool),
		}
		log.Info().Msg("Using Postgres record store")
	} else {
		deps.Repos = server.Repos{
			Users:     fakeuserrepo.NewFakeUserRepo(),
			Workflows: fakeworkflowrepo.NewFakeWorkflowRepo(),
			Providers: fakeproviderrepo.NewFakeProviderRepo(),
		}
		log.Warn().Msg("DATABASE_URL not set, records are kept in memory")
	}

	if addr := c.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			cleanupF()
			return deps, func() {}, fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Deduper = webhook.NewRedisDeduper(client, c.GetWebhookDedupeTTL())
		log.Info().Str("addr", addr).Msg("Using Redis webhook dedupe")
	}

	return deps, cleanupF, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
