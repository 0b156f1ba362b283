// Package server exposes consultations over HTTP and WebSocket.
//
// POST /consult takes a multipart form with an optional "text" field and
// optional "audio" and "image" files. GET /ws carries the same request as
// JSON frames with base64 payloads. Generated speech is served from
// GET /audio/{name}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arogya/internal/router"
)

const maxUpload = 25 << 20

type Consulter interface {
	Consult(ctx context.Context, in router.Input) router.Response
}

type Options struct {
	Addr      string
	UploadDir string // where incoming audio and images are staged
	AudioDir  string // directory holding generated speech
}

type Server struct {
	desk   Consulter
	opt    Options
	server *http.Server
}

// Reply is the JSON body returned by POST /consult.
type Reply struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Audio    string `json:"audio,omitempty"` // URL of the spoken reply
	Error    string `json:"error,omitempty"`
}

func New(desk Consulter, opt Options) *Server {
	return &Server{desk: desk, opt: opt}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /consult", s.handleConsult)
	mux.HandleFunc("GET /audio/{name}", s.handleAudio)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("HTTP server listening", "addr", s.opt.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) handleConsult(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	in := router.Input{Text: r.FormValue("text")}

	var err error
	if in.AudioPath, err = s.stageFormFile(r, "audio"); err != nil {
		http.Error(w, "audio upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer removeUpload(in.AudioPath)

	if in.ImagePath, err = s.stageFormFile(r, "image"); err != nil {
		http.Error(w, "image upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer removeUpload(in.ImagePath)

	resp := s.desk.Consult(r.Context(), in)

	reply := Reply{Query: resp.Query, Response: resp.Text}
	if resp.HasAudio() {
		reply.Audio = "/audio/" + filepath.Base(resp.AudioPath)
	}
	if resp.Err != nil {
		reply.Error = resp.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || name == ".." {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.opt.AudioDir, name))
}
