package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// Google uses Cloud Speech-to-Text with Application Default Credentials.
type Google struct {
	client *speech.Client
}

func NewGoogle(ctx context.Context) (*Google, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Name() string { return "google" }

// Recognize sends the whole file in one request. The sample rate is taken
// from the WAV header.
func (g *Google) Recognize(ctx context.Context, wavPath, language string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_LINEAR16,
			LanguageCode: language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}

	return strings.Join(parts, " "), nil
}

func (g *Google) Close() error { return g.client.Close() }
