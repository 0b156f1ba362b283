package main

import (
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/spf13/pflag"

	"arogya/internal/config"
	"arogya/internal/ipc"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	socket := cli.StringP("socket", "s", "", "Daemon control socket (default: server.socket)")
	text := cli.StringP("text", "t", "", "Describe your symptoms")
	audio := cli.StringP("audio", "a", "", "Audio file with your spoken description")
	image := cli.StringP("image", "i", "", "Image of the affected area")
	ping := cli.Bool("ping", false, "Check that the daemon is running")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	msg := ipc.ControlMessage{Cmd: ipc.CmdConsult, Text: *text, Audio: abs(*audio), Image: abs(*image)}
	if *ping {
		msg = ipc.ControlMessage{Cmd: ipc.CmdPing}
	}

	reply, err := ipc.SendCommand(socketPath(*socket, cfg), msg)
	if err != nil {
		fmt.Println("arogya-daemon not running:", err)
		os.Exit(1)
	}

	if *ping {
		fmt.Println(reply.Response)
		return
	}

	fmt.Println("Query:   ", reply.Query)
	fmt.Println("Response:", reply.Response)
	if reply.Audio != "" {
		fmt.Println("Audio:   ", reply.Audio)
	}
	if reply.Error != "" {
		os.Exit(2)
	}
}

// socketPath prefers the --socket flag, then the socket the daemon was
// configured with.
func socketPath(flag string, cfg *config.Config) string {
	switch {
	case flag != "":
		return flag
	case cfg.Server.Socket != "":
		return cfg.Server.Socket
	default:
		return ipc.DefaultSocketPath
	}
}

// abs resolves paths against our working directory since the daemon runs
// elsewhere.
func abs(path string) string {
	if path == "" {
		return ""
	}
	if p, err := filepath.Abs(path); err == nil {
		return p
	}
	return path
}
