// Command devicebridged is the engine daemon: it wires adb, config,
// audit, engine and api together and serves the Gin HTTP/WebSocket
// boundary, grounded on the teacher's main.go (setupLogging, the
// scan-then-start-streaming bring-up sequence) generalized from a single
// streaming service to the full engine.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"devicebridge/adb"
	"devicebridge/api"
	"devicebridge/audit"
	"devicebridge/config"
	"devicebridge/engine"
	"devicebridge/requirements"
)

// setupLogging creates a timestamped log file under log/ and writes to
// both it and stdout, exactly as the teacher's main.go does.
func setupLogging() (*os.File, error) {
	logDir := "log"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, timestamp+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("logging to: %s", logPath)
	return logFile, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Printf("warning: failed to set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("starting devicebridged...")

	cfg := config.Load()
	client := adb.NewClient()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Printf("warning: database unavailable, audit log disabled: %v", err)
		db = nil
	} else {
		defer db.Close()
	}
	auditLog := audit.New(db)
	checker := requirements.NewChecker(client)

	eng := engine.New(client, cfg, auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	wsHub := api.NewWebSocketHub()
	go wsHub.Run()
	go func() {
		for ev := range eng.Events() {
			wsHub.DispatchEvent(ev)
		}
	}()

	router := gin.Default()
	api.SetupRoutes(router, eng, checker, wsHub)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("server starting on http://localhost%s", cfg.HTTPAddr)
		log.Printf("websocket endpoint on ws://localhost%s/ws", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Initial device scan so the snapshot is populated before the first
	// client request, the same bring-up order as the teacher's main.go.
	go func() {
		log.Println("scanning devices...")
		devices, err := eng.ScanDevices(ctx)
		if err != nil {
			log.Printf("warning: initial device scan failed: %v", err)
			return
		}
		log.Printf("found %d device(s)", len(devices))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	eng.Shutdown(shutdownCtx)
	log.Println("shutdown complete")
}
