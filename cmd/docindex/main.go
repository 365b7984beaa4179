package main

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/hsn0918/docindex/internal/app"
	"github.com/hsn0918/docindex/pkg/logger"
)

func main() {
	application := fx.New(
		app.Module,
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := application.Start(startCtx); err != nil {
		logger.Get().Sugar().Errorf("startup failed: %v", err)
		os.Exit(1)
	}

	<-application.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()

	if err := application.Stop(stopCtx); err != nil {
		logger.Get().Sugar().Errorf("shutdown failed: %v", err)
		os.Exit(1)
	}
}
