package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-identity-server/audit"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/internal/storage/sqlite"
	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/server"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	if err := os.MkdirAll(c.GetDataFolder(), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	store, err := sqlite.Open(filepath.Join(c.GetDataFolder(), "identity.db"))
	if err != nil {
		return fmt.Errorf("sqlite.Open: %w", err)
	}
	defer store.Close()

	if err := store.SeedRoles(rbac.DefaultRoles()); err != nil {
		return fmt.Errorf("store.SeedRoles: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	auditor := audit.Tee(audit.NewLogRecorder(logger), store.Audit())

	handler, err := server.New(c, server.Repos{
		Users:    store,
		Clients:  store.Clients(),
		Sessions: store.Sessions(),
		Codes:    store.Codes(),
	}, auditor)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
