package mavi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/openinterx/mavi-go/pkg/api"
)

// uploadContentType is the part content type the backend expects for
// video uploads.
const uploadContentType = "video/mp4"

// UploadVideo stores a video on the Mavi platform under the given name
// and returns its record. The optional callback URI in opts must be
// publicly reachable; processing results are POSTed to it once the
// video finishes parsing.
func (c *Client) UploadVideo(ctx context.Context, name string, video io.Reader, opts *UploadOptions) (*Video, error) {
	if name == "" {
		return nil, api.NewInvalidRequestError("videoName", "video name is required")
	}
	if video == nil {
		return nil, api.NewInvalidRequestError("file", "video content is required")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := createVideoPart(writer, name)
	if err != nil {
		return nil, api.NewServerError("failed to build upload form: " + err.Error())
	}
	if _, err := io.Copy(part, video); err != nil {
		return nil, api.NewServerError("failed to read video content: " + err.Error())
	}
	if err := writer.Close(); err != nil {
		return nil, api.NewServerError("failed to finish upload form: " + err.Error())
	}

	var query url.Values
	if opts != nil && opts.CallbackURI != "" {
		query = url.Values{"callBackUri": {opts.CallbackURI}}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "upload", query, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewServerError("failed to read upload response: " + err.Error())
	}

	var v Video
	if err := decodeEnvelope(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UploadVideoFile uploads a video from the local filesystem, using the
// file's base name as the stored video name.
func (c *Client) UploadVideoFile(ctx context.Context, path string, opts *UploadOptions) (*Video, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, api.NewInvalidRequestError("file", fmt.Sprintf("video file not found: %s", path))
	}
	defer f.Close()

	return c.UploadVideo(ctx, filepath.Base(path), f, opts)
}

// createVideoPart creates the "file" form part with a video content
// type. multipart.Writer.CreateFormFile would force
// application/octet-stream, which the backend rejects.
func createVideoPart(w *multipart.Writer, name string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", uploadContentType)
	return w.CreatePart(h)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
