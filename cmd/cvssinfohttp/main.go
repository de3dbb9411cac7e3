// Command cvssinfohttp serves CVSS vector definitions and NVD records over
// HTTP.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crgimenes/goconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quay/cvssinfo/datastore/sqlite"
	"github.com/quay/cvssinfo/nvd"
	"github.com/quay/cvssinfo/updates"
)

// Config this struct is using the goconfig library for simple flag and env
// var parsing. See: https://github.com/crgimenes/goconfig
type Config struct {
	HTTPListenAddr  string `cfgDefault:"0.0.0.0:8089" cfg:"HTTP_LISTEN_ADDR"`
	DBPath          string `cfgDefault:"cvssinfo.sqlite" cfg:"DB_PATH" cfgHelper:"Path to the SQLite database file."`
	APIRoot         string `cfgDefault:"" cfg:"NVD_API_ROOT" cfgHelper:"Override for the NVD CVE API endpoint."`
	APIKey          string `cfgDefault:"" cfg:"NVD_API_KEY" cfgHelper:"NVD API key. Raises the request rate limit."`
	FeedRoot        string `cfgDefault:"" cfg:"NVD_FEED_ROOT" cfgHelper:"Override for the NVD yearly feed root."`
	UpdateInterval  string `cfgDefault:"6h" cfg:"UPDATE_INTERVAL" cfgHelper:"Period between feed ingests. 0 disables background updates."`
	UpdateRetention int    `cfgDefault:"2" cfg:"UPDATE_RETENTION" cfgHelper:"Update operations kept per updater when garbage collecting."`
	LogLevel        string `cfgDefault:"debug" cfg:"LOG_LEVEL" cfgHelper:"Log levels: debug, info, warning, error, fatal, panic"`
}

func main() {
	ctx := context.Background()
	// parse our config
	conf := Config{}
	err := goconfig.Parse(&conf)
	if err != nil {
		log.Fatal().Msgf("failed to parse config: %v", err)
	}

	// setup pretty logging
	zerolog.SetGlobalLevel(logLevel(conf))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx = log.Logger.WithContext(ctx)

	interval, err := time.ParseDuration(conf.UpdateInterval)
	if err != nil {
		log.Fatal().Msgf("failed to parse update interval: %v", err)
	}

	store, err := sqlite.Open(ctx, conf.DBPath)
	if err != nil {
		log.Fatal().Msgf("failed to open datastore: %v", err)
	}
	defer store.Close()

	var copts []nvd.Option
	if conf.APIRoot != "" {
		copts = append(copts, nvd.WithRoot(conf.APIRoot))
	}
	if conf.APIKey != "" {
		copts = append(copts, nvd.WithKey(conf.APIKey))
	}
	client, err := nvd.NewClient(nil, copts...)
	if err != nil {
		log.Fatal().Msgf("failed to create NVD client: %v", err)
	}
	fetcher, err := nvd.NewFetcher(nil, conf.FeedRoot)
	if err != nil {
		log.Fatal().Msgf("failed to create NVD fetcher: %v", err)
	}

	mopts := []updates.ManagerOption{updates.WithRetention(conf.UpdateRetention)}
	if interval > 0 {
		mopts = append(mopts, updates.WithInterval(interval))
	}
	mgr, err := updates.NewManager(store, fetcher, mopts...)
	if err != nil {
		log.Fatal().Msgf("failed to create update manager: %v", err)
	}

	ctx, done := context.WithCancel(ctx)
	defer done()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	if interval > 0 {
		go func() {
			if err := mgr.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("update manager exited")
			}
		}()
	}

	srv := &http.Server{
		Addr:        conf.HTTPListenAddr,
		Handler:     NewHandler(ctx, store, client, mgr),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		tctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(tctx); err != nil {
			log.Error().Err(err).Msg("error shutting down http server")
		}
	}()

	log.Printf("starting http server on %v", conf.HTTPListenAddr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Msgf("failed to start http server: %v", err)
	}
}

func logLevel(conf Config) zerolog.Level {
	level := strings.ToLower(conf.LogLevel)
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
