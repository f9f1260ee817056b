// Command cli is a terminal front-end for the finance API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so command output stays pipeable.
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(logger.ParseLevel(cfg.LogLevel))

	root := newRootCmd(&app{apiURL: cfg.APIURL, token: cfg.APIToken, log: log})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
