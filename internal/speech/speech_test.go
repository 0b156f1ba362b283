package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arogya/internal/llm"
	"arogya/internal/playback"
)

type fakeEngine struct {
	audio []byte
	err   error
	panic bool
	text  string
}

func (f *fakeEngine) Synthesize(_ context.Context, text string) ([]byte, error) {
	if f.panic {
		panic("engine blew up")
	}
	f.text = text
	return f.audio, f.err
}

type fakePlayer struct {
	played []string
	out    playback.Outcome
}

func (f *fakePlayer) Play(_ context.Context, path string) playback.Outcome {
	f.played = append(f.played, path)
	return f.out
}

func TestMP3Path(t *testing.T) {
	cases := map[string]string{
		"output/response.mp3": "output/response.mp3",
		"output/response.MP3": "output/response.MP3",
		"output/response.wav": "output/response.mp3",
		"output/response":     "output/response.mp3",
		"a.b/reply.ogg":       "a.b/reply.mp3",
		"output/.hidden":      "output/.hidden.mp3",
		"output/.hidden.wav":  "output/.hidden.mp3",
	}
	for in, want := range cases {
		assert.Equal(t, want, MP3Path(in), in)
	}
}

func TestSynthesize_WritesMP3AndPlays(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "output", "response.wav")
	eng := &fakeEngine{audio: []byte("ID3-mp3-data")}
	pl := &fakePlayer{out: playback.Outcome{Status: playback.StatusPlayed, Player: "mpg123"}}

	path, err := New(eng, pl).Synthesize(context.Background(), "Drink plenty of water.", out)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".mp3"))
	assert.Equal(t, strings.TrimSuffix(out, ".wav")+".mp3", path)
	assert.Equal(t, "Drink plenty of water.", eng.text)
	assert.Equal(t, []string{path}, pl.played)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3-mp3-data", string(data))
}

func TestSynthesize_PlaybackFailureIsSwallowed(t *testing.T) {
	out := filepath.Join(t.TempDir(), "response.mp3")
	pl := &fakePlayer{out: playback.Outcome{Status: playback.StatusUnavailable, Err: playback.ErrNoPlayer}}

	path, err := New(&fakeEngine{audio: []byte("x")}, pl).Synthesize(context.Background(), "hi", out)
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.FileExists(t, path)
}

func TestSynthesize_NilPlayer(t *testing.T) {
	path, err := New(&fakeEngine{audio: []byte("x")}, nil).Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "r"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "r.mp3"))
}

func TestSynthesize_EngineFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "response.mp3")
	pl := &fakePlayer{}

	path, err := New(&fakeEngine{err: errors.New("quota exceeded")}, pl).Synthesize(context.Background(), "hi", out)
	require.Error(t, err)
	assert.Empty(t, path)
	assert.NoFileExists(t, out)
	assert.Empty(t, pl.played)
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	_, err := New(&fakeEngine{}, nil).Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "r.mp3"))
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestSynthesize_EnginePanicIsContained(t *testing.T) {
	path, err := New(&fakeEngine{panic: true}, nil).Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "r.mp3"))
	require.Error(t, err)
	assert.Empty(t, path)
}

func TestSynthesize_OutputDirUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	path, err := New(&fakeEngine{audio: []byte("x")}, nil).Synthesize(context.Background(), "hi", filepath.Join(blocker, "out", "r.mp3"))
	require.Error(t, err)
	assert.Empty(t, path)
}

func TestOpenAIEngine(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3\x03mp3"))
	}))
	defer srv.Close()

	api, err := llm.NewAPI(srv.URL+"/", "k", srv.Client())
	require.NoError(t, err)

	audio, err := NewOpenAIEngine(api, "tts-1", "alloy").Synthesize(context.Background(), "Get some rest.")
	require.NoError(t, err)

	assert.Equal(t, "ID3\x03mp3", string(audio))
	assert.Equal(t, "tts-1", body["model"])
	assert.Equal(t, "alloy", body["voice"])
	assert.Equal(t, "Get some rest.", body["input"])
	assert.Equal(t, "mp3", body["response_format"])
}
