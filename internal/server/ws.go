package server

import (
	log "log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	ws "github.com/gorilla/websocket"

	"arogya/internal/router"
)

var upgrader = ws.Upgrader{CheckOrigin: sameOrigin}

// sameOrigin admits browser pages served by this host and clients that send
// no Origin at all (CLI tools, other services). Pages on other sites may not
// drive consultations through a visitor's browser.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// WSRequest is one consultation sent over /ws. Byte fields travel as base64.
type WSRequest struct {
	Text     string `json:"text,omitempty"`
	Audio    []byte `json:"audio,omitempty"`
	AudioExt string `json:"audio_ext,omitempty"` // e.g. ".mp3", defaults to ".wav"
	Image    []byte `json:"image,omitempty"`
	ImageExt string `json:"image_ext,omitempty"` // e.g. ".png", defaults to ".jpg"
}

type WSReply struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Audio    []byte `json:"audio,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log.Debug("WebSocket client connected", "remote", r.RemoteAddr)

	for {
		var req WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				log.Debug("WebSocket read ended", "err", err)
			}
			return
		}

		if err := conn.WriteJSON(s.consultWS(r, req)); err != nil {
			log.Warn("WebSocket write failed", "err", err)
			return
		}
	}
}

func (s *Server) consultWS(r *http.Request, req WSRequest) WSReply {
	audio, err := s.stageBytes("audio", orDefault(req.AudioExt, ".wav"), req.Audio)
	if err != nil {
		return WSReply{Error: err.Error()}
	}
	defer removeUpload(audio)

	image, err := s.stageBytes("image", orDefault(req.ImageExt, ".jpg"), req.Image)
	if err != nil {
		return WSReply{Error: err.Error()}
	}
	defer removeUpload(image)

	resp := s.desk.Consult(r.Context(), router.Input{Text: req.Text, AudioPath: audio, ImagePath: image})

	reply := WSReply{Query: resp.Query, Response: resp.Text}
	if resp.Err != nil {
		reply.Error = resp.Err.Error()
	}
	if resp.HasAudio() {
		if reply.Audio, err = os.ReadFile(resp.AudioPath); err != nil {
			log.Warn("Failed to read generated audio", "path", resp.AudioPath, "err", err)
		}
	}
	return reply
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
