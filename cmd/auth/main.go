package main

import (
	"context"
	"fmt"
	"os"

	"github.com/squadboard/backend/internal/common/bootstrap"
	srv "github.com/squadboard/backend/internal/common/server"
)

func main() {
	app, err := bootstrap.NewAuthApp(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth service: %v\n", err)
		os.Exit(1)
	}

	server := srv.NewServer(srv.DefaultServerConfig(app.Config.HTTPPort), app.Handler)

	if err := srv.StartWithGracefulShutdown(server, app.Log, "auth", app.Hooks); err != nil {
		app.Log.Fatalf("auth service stopped: %v", err)
	}
}
