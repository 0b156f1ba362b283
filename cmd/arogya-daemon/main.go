package main

import (
	"context"
	log "log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cli "github.com/spf13/pflag"

	"arogya/internal/app"
	"arogya/internal/config"
	"arogya/internal/ipc"
	"arogya/internal/logging"
	"arogya/internal/router"
	"arogya/internal/server"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	noHTTP := cli.Bool("no-http", false, "Serve only the control socket")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.Log.Level)

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Error("Failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	log.Info("Boot up - successful")

	a.Welcome(ctx)

	ln, err := ipc.StartServer(ctx, cfg.Server.Socket, func(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
		return handleControl(ctx, a, msg)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer ln.Close()
	log.Info("Control socket ready", "path", cfg.Server.Socket)

	if *noHTTP {
		<-ctx.Done()
		return
	}

	srv := server.New(a, server.Options{
		Addr:      cfg.Server.Addr,
		UploadDir: cfg.Server.UploadDir,
		AudioDir:  filepath.Dir(cfg.Output.Path),
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error("HTTP server stopped", "err", err)
		os.Exit(1)
	}
}

func handleControl(ctx context.Context, a *app.App, msg ipc.ControlMessage) ipc.Reply {
	switch msg.Cmd {
	case ipc.CmdPing:
		return ipc.Reply{Response: "pong"}

	case ipc.CmdConsult:
		resp := a.Consult(ctx, router.Input{Text: msg.Text, AudioPath: msg.Audio, ImagePath: msg.Image})
		reply := ipc.Reply{Query: resp.Query, Response: resp.Text, Audio: resp.AudioPath}
		if resp.Err != nil {
			reply.Error = resp.Err.Error()
		}
		return reply

	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{Error: "unknown command: " + msg.Cmd}
	}
}
