package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shakeparty/server/events"
	"github.com/shakeparty/server/game"
	"github.com/shakeparty/server/logging"
	"github.com/shakeparty/server/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := flag.String("port", envOr("PORT", "3001"), "HTTP listen port")
	logLevel := flag.String("loglevel", envOr("LOG_LEVEL", "info"), "Log level (trace..critical)")
	settingsPath := flag.String("settings", envOr("SETTINGS_FILE", "data/settings.json"), "Settings snapshot file")
	tlsDir := flag.String("tlsdir", envOr("TLS_DIR", "certs"), "Directory holding cert.pem and key.pem")
	flag.Parse()

	devMode := envOr("APP_ENV", "development") != "production"

	logDir := ""
	if envOr("LOG_TO_FILE", "") == "true" {
		logDir = envOr("LOG_DIR", "logs")
	}
	backend, err := logging.NewBackend(logging.Options{Level: *logLevel, LogDir: logDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()
	log := backend.Logger("MAIN")

	bus := events.NewBus(backend.Logger("BUS"))
	roles := game.NewRoleRegistry()
	modes := game.NewModeRegistry()
	engine := game.NewEngine(game.EngineConfig{
		Bus:     bus,
		Log:     backend.Logger("GAME"),
		Roles:   roles,
		Effects: game.NewEffectRegistry(),
		Modes:   modes,
		Teams:   game.NewTeamManager(),
		Bases:   game.NewBaseManager(bus, backend.Logger("BASE")),
	})
	// Every log line carries game time from here on.
	backend.SetTimeSource(engine)

	conns := server.NewConnectionManager(backend.Logger("CONN"))
	settings := server.NewSettingsStore(*settingsPath, modes.List(), roles.Themes(), backend.Logger("CONF"))

	var allowedOrigins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	gw := server.NewServer(server.Config{
		DevMode:        devMode,
		AllowedOrigins: allowedOrigins,
	}, engine, conns, settings, bus, backend.Logger("WS"))
	gw.SetLogRing(backend.Ring())
	go gw.Run()

	conns.StartHeartbeat(func(playerID string) {
		log.Debugf("session sweep removed player %s", playerID)
		gw.NotifyPlayerExpired(playerID)
	})

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      gw.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	certFile := filepath.Join(*tlsDir, "cert.pem")
	keyFile := filepath.Join(*tlsDir, "key.pem")
	useTLS := fileExists(certFile) && fileExists(keyFile)
	if useTLS {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			log.Infof("serving HTTPS on :%s (dev mode: %v)", *port, devMode)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Warnf("no TLS certs in %s, serving plain HTTP; device motion needs HTTPS on real phones", *tlsDir)
			log.Infof("serving HTTP on :%s (dev mode: %v)", *port, devMode)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Criticalf("server failed: %v", err)
		backend.Close()
		os.Exit(1)
	case sig := <-sigCh:
		log.Infof("shutting down (signal: %v)", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gw.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	log.Infof("server stopped")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
