package mavi

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openinterx/mavi-go/pkg/api"
)

func TestUploadVideo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("request = %s %s, want POST /upload", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("callBackUri"); got != "https://example.test/hook" {
			t.Errorf("callBackUri = %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form field %q missing: %v", "file", err)
		}
		defer file.Close()

		if header.Filename != "race.mp4" {
			t.Errorf("filename = %q, want race.mp4", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); got != "video/mp4" {
			t.Errorf("part content type = %q, want video/mp4", got)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "fake video bytes" {
			t.Errorf("file content = %q", content)
		}

		writeEnvelope(w, map[string]any{
			"videoNo":     "mavi_video_9",
			"videoName":   "race.mp4",
			"videoStatus": "UNPARSE",
			"uploadTime":  1700000000000,
		})
	})

	v, err := c.UploadVideo(context.Background(), "race.mp4",
		strings.NewReader("fake video bytes"),
		&UploadOptions{CallbackURI: "https://example.test/hook"})
	if err != nil {
		t.Fatalf("UploadVideo() failed: %v", err)
	}
	if v.VideoNo != "mavi_video_9" || v.VideoStatus != "UNPARSE" {
		t.Errorf("video = %+v", v)
	}
}

func TestUploadVideo_Validation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid upload reached the backend")
	})

	if _, err := c.UploadVideo(context.Background(), "", strings.NewReader("x"), nil); err == nil {
		t.Error("UploadVideo() without a name succeeded")
	}
	if _, err := c.UploadVideo(context.Background(), "a.mp4", nil, nil); err == nil {
		t.Error("UploadVideo() without content succeeded")
	}
}

func TestUploadVideoFile_Missing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("missing file upload reached the backend")
	})

	path := filepath.Join(t.TempDir(), "does-not-exist.mp4")
	_, err := c.UploadVideoFile(context.Background(), path, nil)
	apiErr, ok := err.(*api.APIError)
	if !ok || apiErr.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("err = %v, want invalid_request", err)
	}
}
