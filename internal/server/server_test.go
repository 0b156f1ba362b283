package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arogya/internal/router"
)

type fakeDesk struct {
	resp router.Response

	in     router.Input
	audio  []byte // upload contents seen during the call
	image  []byte
	called int
}

func (f *fakeDesk) Consult(_ context.Context, in router.Input) router.Response {
	f.called++
	f.in = in
	if in.AudioPath != "" {
		f.audio, _ = os.ReadFile(in.AudioPath)
	}
	if in.ImagePath != "" {
		f.image, _ = os.ReadFile(in.ImagePath)
	}
	return f.resp
}

type fixture struct {
	desk     *fakeDesk
	srv      *httptest.Server
	uploads  string
	audioDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		desk:     &fakeDesk{},
		uploads:  filepath.Join(t.TempDir(), "uploads"),
		audioDir: t.TempDir(),
	}
	s := New(fx.desk, Options{UploadDir: fx.uploads, AudioDir: fx.audioDir})
	fx.srv = httptest.NewServer(s.Handler())
	t.Cleanup(fx.srv.Close)
	return fx
}

func multipartBody(t *testing.T, text string, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if text != "" {
		require.NoError(t, mw.WriteField("text", text))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (fx *fixture) postConsult(t *testing.T, body io.Reader, contentType string) (int, Reply) {
	t.Helper()
	res, err := http.Post(fx.srv.URL+"/consult", contentType, body)
	require.NoError(t, err)
	defer res.Body.Close()

	var reply Reply
	if res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&reply))
	}
	return res.StatusCode, reply
}

func TestConsult_TextOnly(t *testing.T) {
	fx := newFixture(t)
	fx.desk.resp = router.Response{Query: "fever", Text: "Stay hydrated.", AudioPath: "output/response.mp3"}

	body, ct := multipartBody(t, "fever", nil)
	code, reply := fx.postConsult(t, body, ct)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Reply{Query: "fever", Response: "Stay hydrated.", Audio: "/audio/response.mp3"}, reply)
	assert.Equal(t, router.Input{Text: "fever"}, fx.desk.in)
}

func TestConsult_FilesAreStagedAndRemoved(t *testing.T) {
	fx := newFixture(t)
	fx.desk.resp = router.Response{Query: "", Text: "Looks like a mild rash."}

	body, ct := multipartBody(t, "", map[string][2]string{
		"audio": {"voice.MP3", "ID3-audio"},
		"image": {"rash.png", "png-bytes"},
	})
	code, reply := fx.postConsult(t, body, ct)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Looks like a mild rash.", reply.Response)
	assert.Empty(t, reply.Audio)

	assert.Equal(t, ".mp3", filepath.Ext(fx.desk.in.AudioPath))
	assert.Equal(t, ".png", filepath.Ext(fx.desk.in.ImagePath))
	assert.Equal(t, "ID3-audio", string(fx.desk.audio))
	assert.Equal(t, "png-bytes", string(fx.desk.image))

	assert.NoFileExists(t, fx.desk.in.AudioPath)
	assert.NoFileExists(t, fx.desk.in.ImagePath)
}

func TestConsult_NoInput(t *testing.T) {
	fx := newFixture(t)
	fx.desk.resp = router.Response{Text: router.NoInputMessage}

	code, reply := fx.postConsult(t, strings.NewReader(""), "application/x-www-form-urlencoded")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, router.NoInputMessage, reply.Response)
	assert.Equal(t, router.Input{}, fx.desk.in)
}

func TestConsult_ErrorTriple(t *testing.T) {
	fx := newFixture(t)
	fx.desk.resp = router.Response{
		Query: router.ErrorQuery,
		Text:  "An error occurred: boom",
		Err:   errors.New("boom"),
	}

	body, ct := multipartBody(t, "headache", nil)
	code, reply := fx.postConsult(t, body, ct)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Reply{Query: "Error", Response: "An error occurred: boom", Error: "boom"}, reply)
}

func TestAudio(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fx.audioDir, "response.mp3"), []byte("ID3-reply"), 0o644))

	res, err := http.Get(fx.srv.URL + "/audio/response.mp3")
	require.NoError(t, err)
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ID3-reply", string(data))

	missing, err := http.Get(fx.srv.URL + "/audio/nothing.mp3")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	fx := newFixture(t)

	res, err := http.Get(fx.srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(fx.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestWebSocket(t *testing.T) {
	fx := newFixture(t)
	speech := filepath.Join(fx.audioDir, "response.mp3")
	require.NoError(t, os.WriteFile(speech, []byte("ID3-spoken"), 0o644))
	fx.desk.resp = router.Response{Query: "my arm hurts", Text: "Apply ice.", AudioPath: speech}

	url := "ws" + strings.TrimPrefix(fx.srv.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSRequest{Audio: []byte("RIFF-audio"), AudioExt: ".wav", Image: []byte("jpg")}))

	var reply WSReply
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, "my arm hurts", reply.Query)
	assert.Equal(t, "Apply ice.", reply.Response)
	assert.Equal(t, "ID3-spoken", string(reply.Audio))
	assert.Equal(t, "RIFF-audio", string(fx.desk.audio))
	assert.Equal(t, ".wav", filepath.Ext(fx.desk.in.AudioPath))
	assert.Equal(t, ".jpg", filepath.Ext(fx.desk.in.ImagePath))
	assert.NoFileExists(t, fx.desk.in.AudioPath)

	// a second message on the same connection is answered too
	require.NoError(t, conn.WriteJSON(WSRequest{Text: "and my leg"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 2, fx.desk.called)
	assert.Equal(t, "and my leg", fx.desk.in.Text)
}

func TestWebSocket_Origin(t *testing.T) {
	fx := newFixture(t)
	url := "ws" + strings.TrimPrefix(fx.srv.URL, "http") + "/ws"

	_, resp, err := ws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := ws.DefaultDialer.Dial(url, http.Header{"Origin": {fx.srv.URL}})
	require.NoError(t, err)
	conn.Close()
	assert.Zero(t, fx.desk.called)
}

func TestSameOrigin(t *testing.T) {
	cases := map[string]bool{
		"":                       true,
		"http://localhost:7860":  true,
		"https://LOCALHOST:7860": true,
		"http://localhost:9999":  false,
		"http://evil.example":    false,
		"::not a url":            false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://localhost:7860/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, sameOrigin(r), origin)
	}
}

func TestUploadExt(t *testing.T) {
	cases := map[string]string{
		"voice.MP3":       ".mp3",
		"photo.jpeg":      ".jpeg",
		"noext":           "",
		"weird.ex/../etc": "",
		"a.verylongext":   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, uploadExt(in), in)
	}
}
