package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanqian/points-dashboard/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		exit("failed to wire points dashboard", err)
	}

	if err := app.Run(ctx); err != nil {
		exit("points dashboard stopped with error", err)
	}
}

// exit reports through the app's JSON logger.
func exit(msg string, err error) {
	logger.New().Error(msg, "error", err)
	os.Exit(1)
}
