package transcribe

import (
	"context"

	"arogya/pkg/stt"
)

// Whisper runs a local whisper.cpp model.
type Whisper struct {
	model *stt.Model
}

func NewWhisper(modelPath string) (*Whisper, error) {
	m, err := stt.Load(modelPath)
	if err != nil {
		return nil, err
	}
	return &Whisper{model: m}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Recognize(ctx context.Context, wavPath, language string) (string, error) {
	res, err := w.model.File(ctx, wavPath, stt.Options{Language: language})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (w *Whisper) Close() error { return w.model.Close() }
