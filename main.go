package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"tetrisengine/client"
	"tetrisengine/tetris"

	"github.com/eiannone/keyboard"
)

const (
	hideCursor = "\033[2J\033[?25l" // also clear screen
	showCursor = "\033[24;0H\n\r\033[?25h"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "address of the session server used for online games")
	name := flag.String("name", os.Getenv("USER"), "player name shown in the header")
	logFile := flag.String("log-file", "tetris.log", "file the client logs to")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	speed := flag.Duration("speed", tetris.DefaultInitialSpeed, "drop period at level 1")
	factor := flag.Float64("factor", tetris.DefaultSpeedFactor, "drop period multiplier per level")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("unable to open log file: %v", err)
	}
	defer f.Close() //nolint: errcheck
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))

	c, err := client.New(logger, &client.Options{
		Address:      *addr,
		Name:         *name,
		InitialSpeed: *speed,
		SpeedFactor:  *factor,
	})
	if err != nil {
		log.Fatalf("unable to start client: %v", err)
	}
	defer func() {
		if err := keyboard.Close(); err != nil {
			logger.Error("unable to close keyboard", slog.String("error", err.Error()))
		}
	}()

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)
	logger.Info("client started", slog.String("addr", *addr))
	c.Start()
	logger.Info("client finished")
}
