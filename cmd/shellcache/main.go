package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	shellcache "github.com/spedbusmd/shellcache"
	"github.com/spedbusmd/shellcache/cache"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFlag         string
	listenFlag         string
	originFlag         string
	dbFlag             string
	versionTagFlag     string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFlag, "config", "", "Path to yaml config file")
	flag.StringVar(&listenFlag, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.StringVar(&dbFlag, "db", "", "Cache db file or directory (overrides config)")
	flag.StringVar(&versionTagFlag, "cache-version", "", "Cache generation version tag (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config, err := loadConfig(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	if listenFlag != "" {
		config.Listen = listenFlag
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if dbFlag != "" {
		config.Cache.Path = dbFlag
	}
	if versionTagFlag != "" {
		config.Cache.Version = versionTagFlag
	}

	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	store, err := cache.Open(config.Cache.Backend, config.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Str("backend", config.Cache.Backend).Msg("Could not open cache store")
	}
	defer store.Close()

	worker := shellcache.CreateWorker(shellcache.Config{
		Store:     store,
		OriginURL: *originURL,
		AppName:   config.Cache.Name,
		Version:   config.Cache.Version,
		Manifest:  config.Precache,
		Logger:    &log.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// install and activate before taking traffic, so the new generation
	// applies immediately and stale generations are gone
	worker.Install(ctx)
	if err := worker.Activate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not activate cache generation")
	}

	if config.Admin != "" {
		adminSrv := &http.Server{Addr: config.Admin, Handler: worker.AdminHandler()}
		go func() {
			log.Info().Str("addr", config.Admin).Msg("Admin listener starting")
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Admin server error")
			}
		}()
		defer adminSrv.Close()
	}

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           worker,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Msgf("Proxying %s to %s (generation '%s')", config.Listen, config.Origin, worker.Generation())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
