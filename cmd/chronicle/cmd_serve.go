package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyard/chronicle/internal/api"
)

func (a *app) cmdServe(args []string) int {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := flags.Int("port", 8080, "HTTP listen port")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	hub := api.NewHub()
	defer hub.Close()

	srv := &api.Server{DB: a.db, Hub: hub, Port: *port}
	srv.Start()
	slog.Info("serving", "port", *port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	fmt.Fprintln(os.Stderr, "shutting down")
	return 0
}
