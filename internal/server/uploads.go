package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// stageFormFile copies the named multipart file into the upload directory
// and returns its path, or "" when the field is absent.
func (s *Server) stageFormFile(r *http.Request, field string) (string, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	return s.stage(field, uploadExt(hdr.Filename), f)
}

// stageBytes writes data into the upload directory, or returns "" when data
// is empty.
func (s *Server) stageBytes(kind, ext string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	return s.stage(kind, uploadExt("upload"+ext), bytes.NewReader(data))
}

func (s *Server) stage(kind, ext string, src io.Reader) (string, error) {
	dir := s.opt.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.CreateTemp(dir, kind+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUpload)); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	return dst.Name(), nil
}

// uploadExt keeps the client's extension so format detection still works,
// dropping anything that is not a plain short suffix.
func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to remove upload", "path", path, "err", err)
	}
}
