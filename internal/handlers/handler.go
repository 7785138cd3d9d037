// Package handlers implements the HTTP surface of the decode service: a
// readiness probe and a single-image decode endpoint. A shelfscan instance
// running `serve` can act as the decode sidecar for another instance.
package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/readshelf/shelfscan/internal/decode"
)

// maxImageBytes caps the decoded payload size per request.
const maxImageBytes = 16 << 20

// Decoder turns an image into barcode text; the decode selector satisfies it.
type Decoder interface {
	DecodeImage(ctx context.Context, img image.Image) (string, error)
}

type Handler struct {
	decoder Decoder
}

func New(decoder Decoder) *Handler {
	return &Handler{decoder: decoder}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

// HandleReady answers the readiness probe.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write readiness response", "err", err)
	}
}

// HandleDecode decodes one base64-encoded image and returns the barcode
// text. A frame with no readable barcode is a 404 so the client's soft-fail
// path kicks in.
func (h *Handler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	body := io.LimitReader(r.Body, maxImageBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		h.writeError(w, "Missing image", http.StatusBadRequest)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		h.writeError(w, "Invalid image encoding", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		h.writeError(w, "Unreadable image", http.StatusUnprocessableEntity)
		return
	}

	text, err := h.decoder.DecodeImage(r.Context(), img)
	if err != nil {
		if errors.Is(err, decode.ErrNoCode) || errors.Is(err, decode.ErrUnsupported) {
			h.writeError(w, "No barcode found", http.StatusNotFound)
			return
		}
		slog.Error("Decode failed", "err", err)
		h.writeError(w, "Decode failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"text": text})
}
