package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arogya/internal/config"
	"arogya/internal/llm"
	"arogya/internal/playback"
	"arogya/internal/router"
)

func testConfig() *config.Config {
	return &config.Config{
		API:           config.APIConfig{BaseURL: "http://127.0.0.1:1/", Key: "k"},
		TTS:           config.TTSConfig{BaseURL: "http://127.0.0.1:1/", APIKey: "k", Model: "tts-1", Voice: "alloy"},
		Models:        config.ModelsConfig{Vision: "v", Text: "t", Transcription: "whisper-large-v3"},
		Transcription: config.TranscriptionConfig{Backend: config.BackendRemote, Language: "en"},
		Output:        config.OutputConfig{Path: "output/response.mp3"},
		Welcome:       config.WelcomeConfig{Path: "does-not-exist.mp3"},
	}
}

type slowProcessor struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *slowProcessor) Process(_ context.Context, in router.Input) router.Response {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return router.Response{Query: in.Text, Text: "answer", Channel: router.ChannelText}
}

func TestBuild_RemoteBackend(t *testing.T) {
	a, err := Build(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.router)
	assert.Empty(t, a.closers)
}

func TestBuild_MissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.API.Key = ""

	_, err := Build(context.Background(), cfg)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestConsult_Serialized(t *testing.T) {
	p := &slowProcessor{}
	a := New(testConfig(), p, playback.Disabled())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := a.Consult(context.Background(), router.Input{Text: "cough"})
			assert.Equal(t, "cough", resp.Query)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.maxSeen.Load())
}

func TestNewPlayer_Disabled(t *testing.T) {
	out := NewPlayer(config.PlaybackConfig{Enabled: false}).Play(context.Background(), "x.mp3")
	assert.Equal(t, playback.StatusUnavailable, out.Status)
	assert.ErrorIs(t, out.Err, playback.ErrPlaybackDisabled)
}

func TestWelcome_MissingFile(t *testing.T) {
	a := New(testConfig(), &slowProcessor{}, NewPlayer(config.PlaybackConfig{Enabled: true}))
	assert.Equal(t, playback.StatusUnavailable, a.Welcome(context.Background()).Status)
}
