package mavi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openinterx/mavi-go/pkg/api"
	"github.com/openinterx/mavi-go/pkg/debug"
)

// DefaultBaseURL is the production Mavi backend address.
const DefaultBaseURL = "https://mavi-backend.openinterx.com/api/serve/video"

// defaultTimeout applies to buffered requests when Config.Timeout is zero.
// Streaming requests are not subject to it; their lifetime is controlled
// by the caller's context.
const defaultTimeout = 60 * time.Second

// metadataWindow is the default searchDB time window ending at now.
const metadataWindow = 7 * 24 * time.Hour

// Config holds client construction parameters.
type Config struct {
	// APIKey is sent verbatim in the Authorization header. Required.
	APIKey string
	// BaseURL overrides DefaultBaseURL, e.g. to point at a mock backend.
	BaseURL string
	// Timeout bounds buffered requests. Defaults to 60s.
	Timeout time.Duration
	// Transport optionally replaces the underlying HTTP transport,
	// e.g. with an instrumented round tripper from pkg/observability.
	Transport http.RoundTripper
}

// Client performs HTTP requests against the Mavi video API.
//
// A Client is safe for concurrent use by multiple goroutines. Each
// streaming chat call owns an independent connection and decode buffer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// now is replaceable in tests for deterministic search defaults.
	now func() time.Time
}

// New creates a Client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, api.NewInvalidRequestError("api_key", "API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Normalize: remove trailing slash from base URL.
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		now:     time.Now,
	}, nil
}

// SearchMetadata lists videos in the Mavi database matching the given
// time window, status, and page. Zero fields in req fall back to fresh
// per-call defaults; a nil req searches the last week of parsed videos.
func (c *Client) SearchMetadata(ctx context.Context, req *SearchMetadataRequest) ([]Video, error) {
	// Fill defaults on a local copy so the caller's request is never
	// mutated and no default state is shared across calls.
	var r SearchMetadataRequest
	if req != nil {
		r = *req
	}
	if r.EndTime == 0 {
		r.EndTime = c.now().UnixMilli()
	}
	if r.StartTime == 0 {
		r.StartTime = c.now().Add(-metadataWindow).UnixMilli()
	}
	if r.VideoStatus == "" {
		r.VideoStatus = VideoStatusParse
	}
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PageSize == 0 {
		r.PageSize = 10
	}

	query := url.Values{
		"startTime":   {strconv.FormatInt(r.StartTime, 10)},
		"endTime":     {strconv.FormatInt(r.EndTime, 10)},
		"videoStatus": {string(r.VideoStatus)},
		"page":        {strconv.Itoa(r.Page)},
		"pageSize":    {strconv.Itoa(r.PageSize)},
	}

	var data searchDBData
	if err := c.doJSON(ctx, http.MethodGet, "searchDB", query, nil, &data); err != nil {
		return nil, err
	}
	return data.VideoData, nil
}

// SearchAI searches all videos with a natural-language query and
// returns matches ranked by relevance.
func (c *Client) SearchAI(ctx context.Context, query string) ([]Video, error) {
	if query == "" {
		return nil, api.NewInvalidRequestError("searchValue", "search query is required")
	}

	payload := map[string]string{"searchValue": query}
	var data searchAIData
	if err := c.doJSON(ctx, http.MethodPost, "searchAI", nil, payload, &data); err != nil {
		return nil, err
	}
	return data.Videos, nil
}

// SearchClips retrieves the most relevant fragments within the given
// videos, sorted by relevance. An empty videoNos searches all videos.
func (c *Client) SearchClips(ctx context.Context, query string, videoNos []string) ([]Clip, error) {
	if query == "" {
		return nil, api.NewInvalidRequestError("searchValue", "search query is required")
	}
	if videoNos == nil {
		videoNos = []string{}
	}

	payload := map[string]any{
		"videoNos":    videoNos,
		"searchValue": query,
	}
	var data searchFragmentData
	if err := c.doJSON(ctx, http.MethodPost, "searchVideoFragment", nil, payload, &data); err != nil {
		return nil, err
	}
	return data.Videos, nil
}

// Chat asks the assistant about one or more videos and returns the
// complete answer text. For incremental delivery use ChatStream.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	payload, err := buildChatPayload(req, false)
	if err != nil {
		return "", err
	}

	var data chatData
	if err := c.doJSON(ctx, http.MethodPost, "chat", nil, payload, &data); err != nil {
		return "", err
	}
	return data.Msg, nil
}

// Transcribe submits a transcription task for a video and returns the
// task number to poll with Transcription.
func (c *Client) Transcribe(ctx context.Context, videoNo string, typ TranscriptionType) (string, error) {
	if videoNo == "" {
		return "", api.NewInvalidRequestError("videoNo", "video ID is required")
	}
	if typ == "" {
		typ = TranscriptionAudio
	}

	payload := transcribePayload{VideoNo: videoNo, Type: string(typ)}
	var data transcribeData
	if err := c.doJSON(ctx, http.MethodPost, "subTranscription", nil, payload, &data); err != nil {
		return "", err
	}
	return data.TaskNo, nil
}

// Transcription fetches the state and segments of a transcription task.
func (c *Client) Transcription(ctx context.Context, taskNo string) (*Transcription, error) {
	if taskNo == "" {
		return nil, api.NewInvalidRequestError("taskNo", "task number is required")
	}

	query := url.Values{"taskNo": {taskNo}}
	var data Transcription
	if err := c.doJSON(ctx, http.MethodGet, "getTranscription", query, nil, &data); err != nil {
		return nil, err
	}
	if data.TaskNo == "" {
		data.TaskNo = taskNo
	}
	return &data, nil
}

// DeleteVideos removes the given videos from the Mavi platform.
func (c *Client) DeleteVideos(ctx context.Context, videoNos []string) error {
	if len(videoNos) == 0 {
		return api.NewInvalidRequestError("videoNos", "at least one video ID is required")
	}

	// The delete endpoint takes a bare JSON array as its body.
	return c.doJSON(ctx, http.MethodDelete, "delete", nil, videoNos, nil)
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// buildChatPayload validates a ChatRequest and produces its wire form.
// History is copied into a fresh slice so no request shares state.
func buildChatPayload(req *ChatRequest, stream bool) (*chatPayload, error) {
	if req == nil || req.Message == "" {
		return nil, api.NewInvalidRequestError("message", "chat message is required")
	}
	if len(req.VideoNos) == 0 {
		return nil, api.NewInvalidRequestError("videoNos", "at least one video ID is required")
	}

	history := make([]ChatMessage, len(req.History))
	copy(history, req.History)

	return &chatPayload{
		VideoNos: req.VideoNos,
		Message:  req.Message,
		History:  history,
		Stream:   stream,
	}, nil
}

// newRequest builds an HTTP request for the given endpoint with the
// Authorization header set. The Mavi API expects the raw API key, not
// a Bearer token.
func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	req.Header.Set("Authorization", c.apiKey)
	return req, nil
}

// doJSON performs one buffered request: marshal payload, send, map
// HTTP-level failures, then unwrap the response envelope into out.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	debug.Log("client", "request", "method", method, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapHTTPError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.NewServerError(fmt.Sprintf("failed to read response: %s", err.Error()))
	}
	if debug.TraceIsEnabled("client") {
		debug.Raw("client", string(raw))
	}

	return decodeEnvelope(raw, out)
}

// decodeEnvelope applies the shared envelope rule in single-shot
// framing: strip an optional data: prefix, parse one envelope, check
// the status code, and unmarshal the payload into out when non-nil.
// It is the buffered counterpart of the incremental stream decoder.
func decodeEnvelope(raw []byte, out any) error {
	raw = stripDataPrefix(raw)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}
	if apiErr := env.err(); apiErr != nil {
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return api.NewServerError(fmt.Sprintf("failed to parse response payload: %s", err.Error()))
		}
	}
	return nil
}
