package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/materialgen-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}

	a.Start(ctx)
	if err := a.Run(ctx); err != nil {
		a.Log.Error("Server stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("Server exiting")
	a.Close()
}
