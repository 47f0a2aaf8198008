package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"go-link-shortener/cli"
)

// newLogger builds a development logger for ENV=dev and a production logger otherwise.
func newLogger(env string) (*zap.Logger, error) {
	if env == "" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	logger, err := newLogger(os.Getenv("ENV"))
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cli.NewRootCommand(logger).ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
