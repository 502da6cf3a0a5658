package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"i4.energy/across/smscore/geoloc"
	"i4.energy/across/smscore/internal/config"
	"i4.energy/across/smscore/internal/logging"
	"i4.energy/across/smscore/pdu/warthog618"
	"i4.energy/across/smscore/session"
	"i4.energy/across/smscore/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the daemon's YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("failed to open modem session", "error", err)
		os.Exit(1)
	}

	logger.Infow("modem session ready", "port", cfg.Serial.Port)

	server := &Server{Session: sess, Logger: logger.With("component", "server")}
	httpServer := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: server.Router(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Infow("received shutdown signal", "signal", sig)
	cancel()

	logger.Infow("closing modem session")
	if err := sess.Close(); err != nil {
		logger.Errorw("failed to close modem session", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Infow("closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("failed to gracefully shut down HTTP server", "error", err)
		os.Exit(1)
	}
}

// openSession dials the configured serial port and opens a session,
// retrying with exponential backoff until it succeeds or ctx is
// cancelled — a modem that is mid-boot or momentarily busy on another
// process's AT session should not crash the daemon.
func openSession(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*session.Session, error) {
	codec := warthog618.New()
	dialer := transport.SerialDialer{
		PortName: cfg.Serial.Port,
		BaudRate: cfg.Serial.BaudRate,
	}

	opts := []session.Option{session.WithLogger(logger)}
	if cfg.Geolocation.Enabled {
		geo := geoloc.New(cfg.Geolocation.Token, geoloc.Region(cfg.Geolocation.Region))
		opts = append(opts, session.WithGeolocation(geo))
	}

	b := &backoff.Backoff{Min: time.Second, Max: 5 * time.Minute}
	for {
		sess, err := session.Open(ctx, dialer, codec, opts...)
		if err == nil {
			return sess, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		delay := b.Duration()
		logger.Warnw("modem dial failed, retrying", "error", err, "retry_in", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
