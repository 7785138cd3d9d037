package covers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildChain(t *testing.T) {
	tests := []struct {
		name     string
		urls     []string
		expected []string
	}{
		{
			name:     "dedup preserves first-seen order",
			urls:     []string{"a.jpg", "b.jpg", "a.jpg", "c.jpg", "b.jpg"},
			expected: []string{"a.jpg", "b.jpg", "c.jpg"},
		},
		{
			name:     "empty entries discarded",
			urls:     []string{"", "a.jpg", "", "b.jpg"},
			expected: []string{"a.jpg", "b.jpg"},
		},
		{
			name:     "all empty",
			urls:     []string{"", ""},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildChain(tt.urls...)
			if len(got) != len(tt.expected) {
				t.Fatalf("chain = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("chain[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestResolveAdvancesOnFailure(t *testing.T) {
	probe := func(ctx context.Context, url string) error {
		if url == "good.jpg" {
			return nil
		}
		return errors.New("load failed")
	}

	r := NewResolver(probe)
	view := r.Resolve(context.Background(), []string{"bad1.jpg", "bad2.jpg", "good.jpg"})
	if !view.Visible || view.URL != "good.jpg" {
		t.Errorf("view = %+v, want good.jpg visible", view)
	}
}

func TestResolveExhaustedChainHidesCover(t *testing.T) {
	probe := func(ctx context.Context, url string) error {
		return errors.New("load failed")
	}

	r := NewResolver(probe)
	view := r.Resolve(context.Background(), []string{"bad1.jpg", "bad2.jpg"})
	if view.Visible || view.URL != "" {
		t.Errorf("view = %+v, want hidden", view)
	}
}

func TestResolveIsReentrant(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context, url string) error {
		calls++
		if url == "ok.jpg" {
			return nil
		}
		return errors.New("load failed")
	}

	r := NewResolver(probe)
	first := r.Resolve(context.Background(), []string{"bad.jpg", "ok.jpg"})
	second := r.Resolve(context.Background(), []string{"ok.jpg", "bad.jpg"})
	if !first.Visible || !second.Visible {
		t.Errorf("expected both resolutions visible: %+v %+v", first, second)
	}
	if calls != 3 {
		t.Errorf("probe called %d times, want 3", calls)
	}
}

func TestHTTPProbe(t *testing.T) {
	big := bytes.Repeat([]byte{0x42}, 4096)
	mux := http.NewServeMux()
	mux.HandleFunc("/real.jpg", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write(big); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	})
	mux.HandleFunc("/placeholder.jpg", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("tiny")); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	probe := HTTPProbe(&http.Client{Timeout: 5 * time.Second})

	if err := probe(context.Background(), server.URL+"/real.jpg"); err != nil {
		t.Errorf("real image failed probe: %v", err)
	}
	if err := probe(context.Background(), server.URL+"/placeholder.jpg"); err == nil {
		t.Error("placeholder image passed probe")
	}
	if err := probe(context.Background(), server.URL+"/missing.jpg"); err == nil {
		t.Error("missing image passed probe")
	}
}
