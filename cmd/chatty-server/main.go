// Command chatty-server runs the chatty chat server: a fixed worker
// pool dispatching client requests received over a Unix domain stream
// socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"

	"chatty/internal/config"
	"chatty/internal/dispatch"
	"chatty/internal/engine"
	"chatty/internal/logging"
	"chatty/internal/registry"
	"chatty/internal/sendlock"
	"chatty/internal/server"
	"chatty/internal/stats"
	"chatty/internal/storage"
)

func main() {
	var (
		configPath = flag.String("f", "", "path to the chatty config file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "chatty-server: -f <configfile> is required")
		os.Exit(1)
	}

	cfg, err := config.ParseFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatty-server: %v\n", err)
		os.Exit(1)
	}

	logLevel := "info"
	if *debug {
		logLevel = "debug"
	}
	logger := logging.New(logging.Options{Level: logLevel, Format: logging.FormatJSON})

	logger.Info().
		Str("unix_path", cfg.UnixPath).
		Int("max_connections", cfg.MaxConnections).
		Int("threads_in_pool", cfg.ThreadsInPool).
		Int("max_msg_size", cfg.MaxMsgSize).
		Int("max_file_size", cfg.MaxFileSize).
		Int("max_hist_msgs", cfg.MaxHistMsgs).
		Str("dir_name", cfg.DirName).
		Msg("starting chatty-server")

	reg := registry.New(cfg.MaxHistMsgs)
	st := stats.New()
	store, err := storage.New(cfg.DirName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize file storage")
	}
	locks := sendlock.NewLocks()
	conns := engine.NewConns()

	eng := engine.New(reg, st, store, locks, conns, engine.Config{
		MaxMsgSize:  cfg.MaxMsgSize,
		MaxFileSize: cfg.MaxFileSize,
	}, logger)

	guard := server.NewAdmissionGuard(cfg.MaxConnections, logger)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(st.Registry(), promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		defer metricsSrv.Close()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving /metrics")
	}

	os.Remove(cfg.UnixPath) // drop a stale socket from an unclean prior exit

	d, err := dispatch.New(cfg.UnixPath, eng, guard, cfg.ThreadsInPool, cfg.MaxConnections, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start listening")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGUSR1)
	signal.Ignore(syscall.SIGPIPE)

	for {
		sig := <-sigCh
		if sig == syscall.SIGUSR1 {
			if err := st.Dump(cfg.StatFileName); err != nil {
				logger.Error().Err(err).Msg("failed to dump stats")
			} else {
				logger.Info().Str("path", cfg.StatFileName).Msg("stats dumped")
			}
			continue
		}
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		break
	}

	cancel()
	<-done
	logger.Info().Msg("chatty-server stopped")
}
