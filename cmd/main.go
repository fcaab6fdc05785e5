package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/wesm/issue-overseer/internal/logging"
)

func main() {
	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("Received signal: %v", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.WithError(log.WithField("package", "main"), err).Error("Command failed")
		os.Exit(1)
	}
}
