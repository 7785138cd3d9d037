package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readshelf/shelfscan/internal/lookup"
)

type fakeForm struct {
	title       string
	description string
}

func (f *fakeForm) SetTitle(s string)       { f.title = s }
func (f *fakeForm) SetDescription(s string) { f.description = s }

type fakeSink struct {
	files   []UploadFile
	primary string
}

func (s *fakeSink) Append(f UploadFile) string {
	s.files = append(s.files, f)
	return "file-" + string(rune('0'+len(s.files)))
}

func (s *fakeSink) MarkPrimary(id string) { s.primary = id }

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
}

func (f *fakeFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	return f.data, f.contentType, f.err
}

func TestApplyOverwritesOnlyNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		result    *lookup.Result
		wantTitle string
		wantDesc  string
	}{
		{
			name:      "both fields provided",
			result:    &lookup.Result{OK: true, Title: "Effective C++", Description: "55 ways"},
			wantTitle: "Effective C++",
			wantDesc:  "55 ways",
		},
		{
			name:      "missing description keeps user text",
			result:    &lookup.Result{OK: true, Title: "Effective C++"},
			wantTitle: "Effective C++",
			wantDesc:  "user draft",
		},
		{
			name:      "empty result keeps everything",
			result:    &lookup.Result{},
			wantTitle: "user title",
			wantDesc:  "user draft",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := &fakeForm{title: "user title", description: "user draft"}
			a := NewApplier(&fakeFetcher{})
			a.Apply(tt.result, form)
			if form.title != tt.wantTitle {
				t.Errorf("title = %q, want %q", form.title, tt.wantTitle)
			}
			if form.description != tt.wantDesc {
				t.Errorf("description = %q, want %q", form.description, tt.wantDesc)
			}
		})
	}
}

func TestAddCoverAppendsAndMarksPrimary(t *testing.T) {
	sink := &fakeSink{files: []UploadFile{{Name: "existing.jpg"}}}
	a := NewApplier(&fakeFetcher{data: []byte{1, 2, 3}, contentType: "image/png"})
	a.settle = time.Millisecond

	result := &lookup.Result{OK: true, CoverURL: "https://covers.example.com/1.jpg"}
	if err := a.AddCover(context.Background(), result, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.files) != 2 {
		t.Fatalf("got %d files, want existing selection plus cover", len(sink.files))
	}
	if sink.files[0].Name != "existing.jpg" {
		t.Error("existing selection was replaced")
	}
	added := sink.files[1]
	if added.ContentType != "image/png" || len(added.Data) != 3 {
		t.Errorf("unexpected appended file: %+v", added)
	}
	if sink.primary != "file-2" {
		t.Errorf("primary = %q, want the appended file", sink.primary)
	}
}

func TestAddCoverFetchFailureIsNonFatal(t *testing.T) {
	sink := &fakeSink{}
	a := NewApplier(&fakeFetcher{err: errors.New("upstream 502")})
	a.settle = time.Millisecond

	result := &lookup.Result{OK: true, CoverURL: "https://covers.example.com/1.jpg"}
	err := a.AddCover(context.Background(), result, sink)
	if !errors.Is(err, ErrCoverNotAdded) {
		t.Fatalf("expected ErrCoverNotAdded, got %v", err)
	}
	if len(sink.files) != 0 {
		t.Error("no file may be appended on fetch failure")
	}
	if sink.primary != "" {
		t.Error("primary must not change on fetch failure")
	}
}

func TestAddCoverWithoutURL(t *testing.T) {
	a := NewApplier(&fakeFetcher{data: []byte{1}})
	if err := a.AddCover(context.Background(), &lookup.Result{OK: true}, &fakeSink{}); !errors.Is(err, ErrCoverNotAdded) {
		t.Fatalf("expected ErrCoverNotAdded, got %v", err)
	}
}
