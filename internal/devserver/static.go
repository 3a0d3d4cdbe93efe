package devserver

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".md":    "text/markdown; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
}

func contentType(name string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>404 - Page not found</title>
</head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
    <h1>404 - Page not found</h1>
    <p>Requested file: %s</p>
    <p><a href="/">Back to home</a></p>
</body>
</html>
`

// Static serves files below root. The query string plays no part in the
// lookup and nothing outside root is ever read.
type Static struct {
	root string
	log  *slog.Logger
}

func NewStatic(root string, logger *slog.Logger) (*Static, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving static dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Static{root: abs, log: logger.With("component", "static")}, nil
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index.html"
	}

	full, ok := s.resolve(urlPath)
	if !ok {
		writeText(w, http.StatusForbidden, "Access denied.")
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, notFoundPage, html.EscapeString(r.URL.RequestURI()))
		return
	}
	if info.IsDir() {
		index := filepath.Join(full, "index.html")
		if _, err := os.Stat(index); err != nil {
			writeText(w, http.StatusNotFound, "index.html not found.")
			return
		}
		full = index
	}
	s.serveFile(w, full)
}

// resolve maps a URL path onto the filesystem, reporting false when the
// cleaned result would leave root.
func (s *Static) resolve(urlPath string) (string, bool) {
	if strings.Contains(urlPath, "\x00") {
		return "", false
	}
	joined := filepath.Join(s.root, filepath.FromSlash(urlPath))
	rel, err := filepath.Rel(s.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}

func (s *Static) serveFile(w http.ResponseWriter, name string) {
	data, err := os.ReadFile(name)
	if err != nil {
		s.log.Error("reading file", "path", name, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	h := w.Header()
	h.Set("Content-Type", contentType(name))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, msg)
}
