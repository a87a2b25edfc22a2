package icon

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mla/mla/chart-go/internal/typeid"
)

const (
	maxUploadSize = 2 << 20 // 2MB
	// MaxSide is the largest stored icon dimension; bigger uploads are scaled down.
	MaxSide = 128
)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Handler serves node icon upload and retrieval endpoints.
type Handler struct {
	dir string
}

// NewHandler creates an icon handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create icon dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /icons (multipart form with a "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 2MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		http.Error(w, "only PNG and JPEG images are supported", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	img = Fit(img, MaxSide)

	iconID := typeid.NewIconID()
	filename := iconID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create icon file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	b := img.Bounds()
	writeJSON(w, http.StatusCreated, UploadResponse{
		ID:     iconID,
		URL:    fmt.Sprintf("/icons/%s", filename),
		Width:  b.Dx(),
		Height: b.Dy(),
		Name:   header.Filename,
	})
}

// List handles GET /icons and returns the stored icon URLs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		slog.Error("list icons", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	urls := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			urls = append(urls, "/icons/"+e.Name())
		}
	}
	sort.Strings(urls)
	writeJSON(w, http.StatusOK, urls)
}

// Serve returns an http.Handler that serves stored icons with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/icons/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Icon IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an icon file from disk.
func (h *Handler) Delete(iconID string) error {
	if err := typeid.Validate(iconID, typeid.PrefixIcon); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(h.dir, iconID+".png")); err != nil {
		return fmt.Errorf("icon not found: %s", iconID)
	}
	return nil
}

// Fit scales img down so neither dimension exceeds side, keeping its aspect
// ratio. Smaller images are returned unchanged.
func Fit(img image.Image, side int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= side && h <= side {
		return img
	}
	if w >= h {
		h = h * side / w
		w = side
	} else {
		w = w * side / h
		h = side
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
