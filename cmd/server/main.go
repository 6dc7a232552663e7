package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"tetrisengine/pb"
	"tetrisengine/server"
	"tetrisengine/tetris"

	"google.golang.org/grpc"
)

func main() {
	port := flag.Int("port", 9000, "port the session server listens on")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	speed := flag.Duration("speed", tetris.DefaultInitialSpeed, "drop period at level 1")
	factor := flag.Float64("factor", tetris.DefaultSpeedFactor, "drop period multiplier per level")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	srv := server.New(&server.Options{
		InitialSpeed: *speed,
		SpeedFactor:  *factor,
		Logger:       logger,
	})
	s := grpc.NewServer()
	pb.RegisterSessionsServer(s, srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		srv.Shutdown()
		s.GracefulStop()
	}()

	logger.Info("starting server", slog.String("addr", lis.Addr().String()))
	if err := s.Serve(lis); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
