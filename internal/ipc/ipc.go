package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const (
	DefaultSocketPath = "/tmp/arogya.sock"

	CmdConsult = "consult"
	CmdPing    = "ping"
)

type ControlMessage struct {
	Cmd   string `json:"cmd"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
	Image string `json:"image,omitempty"`
}

type Reply struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Audio    string `json:"audio,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Handler func(context.Context, ControlMessage) Reply

// ReadTimeout bounds how long a client may take to send its message.
var ReadTimeout = 5 * time.Second

// StartServer listens on the unix socket at path and answers each
// connection's single message with handler, which runs under ctx. Closing
// the returned listener stops the accept loop.
func StartServer(ctx context.Context, path string, handler Handler) (net.Listener, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				log.Warn("Control socket accept failed", "err", err)
				continue
			}
			go handleConn(ctx, conn, handler)
		}
	}()

	return ln, nil
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		log.Warn("Failed to set control read deadline", "err", err)
		return
	}

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Reply{Error: "bad request: " + err.Error()})
		return
	}

	reply := handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to write control reply", "err", err)
	}
}

// SendCommand delivers msg to the daemon at path and waits for its reply.
func SendCommand(path string, msg ControlMessage) (Reply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
