package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/readshelf/shelfscan/internal/decode"
)

type stubDecoder struct {
	text string
	err  error
}

func (d *stubDecoder) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	return d.text, d.err
}

func encodePNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postDecode(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleDecode(w, req)
	return w
}

func TestHandleDecode(t *testing.T) {
	h := New(&stubDecoder{text: "9780134685991"})

	body, _ := json.Marshal(map[string]string{"image": encodePNG(t)})
	w := postDecode(t, h, string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Text != "9780134685991" {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestHandleDecodeNoBarcode(t *testing.T) {
	h := New(&stubDecoder{err: decode.ErrNoCode})

	body, _ := json.Marshal(map[string]string{"image": encodePNG(t)})
	w := postDecode(t, h, string(body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleDecodeBadRequests(t *testing.T) {
	h := New(&stubDecoder{text: "irrelevant"})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "not json", http.StatusBadRequest},
		{"missing image", `{}`, http.StatusBadRequest},
		{"bad base64", `{"image": "!!!"}`, http.StatusBadRequest},
		{"not an image", `{"image": "` + base64.StdEncoding.EncodeToString([]byte("plain text")) + `"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postDecode(t, h, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleDecodeMethodNotAllowed(t *testing.T) {
	h := New(&stubDecoder{})
	req := httptest.NewRequest(http.MethodGet, "/decode", nil)
	w := httptest.NewRecorder()
	h.HandleDecode(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleReady(t *testing.T) {
	h := New(&stubDecoder{})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	h.HandleReady(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", w.Body.String())
	}
}

// The serve handler and the sidecar client speak the same protocol: a served
// decoder can be another instance's fallback backend.
func TestSidecarClientAgainstServedHandler(t *testing.T) {
	h := New(&stubDecoder{text: "9780134685991"})
	mux := http.NewServeMux()
	mux.HandleFunc("/decode", h.HandleDecode)
	mux.HandleFunc("/readyz", h.HandleReady)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	backend := decode.NewSidecarBackend(srv.URL)
	text, err := backend.DecodeImage(context.Background(), image.NewGray(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("DecodeImage returned error: %v", err)
	}
	if text != "9780134685991" {
		t.Errorf("text = %q", text)
	}
}
