package transcribe

import (
	"context"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v3"
)

// Remote sends audio to an OpenAI-compatible transcription endpoint
// (Groq's whisper-large-v3 by default).
type Remote struct {
	api   openai.Client
	model string
}

func NewRemote(api openai.Client, model string) *Remote {
	return &Remote{api: api, model: model}
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Recognize(ctx context.Context, wavPath, language string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(r.model),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := r.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	return resp.Text, nil
}
