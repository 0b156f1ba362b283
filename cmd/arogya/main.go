package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"path/filepath"

	cli "github.com/spf13/pflag"

	"arogya/internal/app"
	"arogya/internal/config"
	"arogya/internal/logging"
	"arogya/internal/mic"
	"arogya/internal/router"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	text := cli.StringP("text", "t", "", "Describe your symptoms")
	audio := cli.StringP("audio", "a", "", "Audio file with your spoken description")
	image := cli.StringP("image", "i", "", "Image of the affected area")
	useMic := cli.BoolP("mic", "m", false, "Record the description from the microphone")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Error("Failed to start", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	in := router.Input{Text: *text, AudioPath: *audio, ImagePath: *image}

	if *useMic && in.AudioPath == "" {
		path, err := record()
		if err != nil {
			log.Error("Failed to record", "err", err)
			os.Exit(1)
		}
		defer os.Remove(path)
		in.AudioPath = path
	}

	resp := a.Consult(ctx, in)

	fmt.Println("Query:   ", resp.Query)
	fmt.Println("Response:", resp.Text)
	if resp.HasAudio() {
		fmt.Println("Audio:   ", resp.AudioPath)
	}

	if resp.Failed() {
		os.Exit(2)
	}
}

func record() (string, error) {
	rec := mic.NewRecorder()
	if err := rec.Init(); err != nil {
		return "", fmt.Errorf("init audio: %w", err)
	}
	defer rec.Close()

	path := filepath.Join(os.TempDir(), fmt.Sprintf("arogya-mic-%d.wav", os.Getpid()))

	log.Info("Listening... speak now")
	if err := rec.RecordToFile(path); err != nil {
		return "", err
	}
	log.Info("Recorded", "path", path)

	return path, nil
}
