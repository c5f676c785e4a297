package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.wav")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribePostsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			file.Close()
			if header.Filename != "session.wav" {
				t.Errorf("filename = %s", header.Filename)
			}
		}
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format = %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  patient spoke about progress  "})
	}))
	defer server.Close()

	text, err := New(server.URL).Transcribe(context.Background(), writeAudioFile(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "patient spoke about progress" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Transcribe(context.Background(), writeAudioFile(t))
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	if _, err := New("http://localhost:0").Transcribe(context.Background(), "/nonexistent.wav"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
