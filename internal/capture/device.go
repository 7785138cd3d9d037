// Package capture owns the camera scan lifecycle: acquiring a device stream,
// binding it to a capture surface, polling live frames for a code and tearing
// everything down again. It also covers the independent still-image decode
// path with its revocable preview resource.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
)

// ErrStreamStopped is returned by ReadFrame once the stream was torn down.
var ErrStreamStopped = errors.New("stream stopped")

// Stream is an open device stream. Stop releases the underlying media tracks
// and is safe to call any number of times from any state; the tracks are
// stopped exactly once.
type Stream interface {
	ReadFrame(ctx context.Context) (image.Image, error)
	Stop()
}

// Device acquires a live video stream.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// MJPEGDevice streams frames from an MJPEG-over-HTTP camera, the usual
// interface of IP and phone webcams.
type MJPEGDevice struct {
	URL        string
	httpClient *http.Client
}

// NewMJPEGDevice returns a device for the camera at streamURL.
func NewMJPEGDevice(streamURL string) *MJPEGDevice {
	return &MJPEGDevice{
		URL:        streamURL,
		httpClient: &http.Client{},
	}
}

// Open connects to the camera and hands back its frame stream. Denial or an
// unreachable camera is a device error the session surfaces to the user.
func (d *MJPEGDevice) Open(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream is not MJPEG (content type %q)", resp.Header.Get("Content-Type"))
	}

	return &mjpegStream{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

type mjpegStream struct {
	body   io.ReadCloser
	reader *multipart.Reader

	mu       sync.Mutex
	stopOnce sync.Once
	stopped  bool
}

// ReadFrame decodes the next JPEG part of the stream. A frame that fails to
// decode is skipped, not an error; the caller just samples the next one.
func (s *mjpegStream) ReadFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrStreamStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		if s.isStopped() {
			return nil, ErrStreamStopped
		}
		return nil, fmt.Errorf("failed to read stream part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		// Truncated or corrupt frame; let the loop try the next one.
		return nil, nil
	}
	return img, nil
}

// Stop closes the HTTP body, releasing the camera. Idempotent.
func (s *mjpegStream) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.body.Close()
	})
}

func (s *mjpegStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
