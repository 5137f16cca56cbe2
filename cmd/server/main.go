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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/internal/config"
	"github.com/jrsteele09/go-auth-proxy/internal/metrics"
	"github.com/jrsteele09/go-auth-proxy/server"
	"github.com/jrsteele09/go-auth-proxy/store"
	"github.com/jrsteele09/go-auth-proxy/store/memstore"
	"github.com/jrsteele09/go-auth-proxy/store/redisstore"
)

const memoryCleanupInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	if err := config.Validate(c); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	handler, err := server.New(c, st, server.WithMetrics(m))
	if err != nil {
		return err
	}

	servers := []*http.Server{{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if addr := c.GetMetricsAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			errs <- listenAndServe(srv)
		}(srv)
	}

	select {
	case err := <-errs:
		if err != nil {
			returnError = err
		}
	case <-waitForStopSignal():
	}

	for _, srv := range servers {
		if err := shutdown(srv); err != nil && returnError == nil {
			returnError = err
		}
	}
	return returnError
}

// openStore selects Redis when STORE_URL is set, otherwise an in-memory store swept periodically.
func openStore(ctx context.Context, c config.Config) (store.Store, func(), error) {
	if url := c.GetStoreURL(); url != "" {
		rs, err := redisstore.New(ctx, url, c.GetStoreKeyPrefix())
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		log.Info().Str("prefix", c.GetStoreKeyPrefix()).Msg("Using redis credential store")
		return rs, func() { _ = rs.Close() }, nil
	}

	log.Warn().Msg("STORE_URL not set: credentials are kept in memory and lost on restart")
	ms := memstore.New()
	go func() {
		ticker := time.NewTicker(memoryCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ms.Cleanup(); n > 0 {
					log.Debug().Int("removed", n).Msg("Expired credentials swept")
				}
			}
		}
	}()
	return ms, func() {}, nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", c.GetAppName()).Logger()
	if c.GetEnv() == "DEV" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	log.Logger = logger
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
