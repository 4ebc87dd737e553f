package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/dineops-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	if err := application.Start(ctx); err != nil {
		application.Log.Error("start failed", "error", err)
		_ = application.Shutdown(context.Background())
		os.Exit(1)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()

	exitCode := 0
	select {
	case <-ctx.Done():
		application.Log.Info("Shutdown signal received")
	case err := <-runErr:
		if err != nil {
			application.Log.Error("server failed", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), application.Cfg.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("shutdown: %v\n", err)
		exitCode = 1
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
