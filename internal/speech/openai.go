package speech

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"
)

// OpenAIEngine calls an OpenAI-compatible /audio/speech endpoint.
type OpenAIEngine struct {
	api   openai.Client
	model string
	voice string
}

func NewOpenAIEngine(api openai.Client, model, voice string) *OpenAIEngine {
	return &OpenAIEngine{api: api, model: model, voice: voice}
}

func (e *OpenAIEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := e.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(e.model),
		Voice:          openai.AudioSpeechNewParamsVoice(e.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}

	return audio, nil
}
