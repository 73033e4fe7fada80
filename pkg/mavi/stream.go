package mavi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/openinterx/mavi-go/pkg/api"
	"github.com/openinterx/mavi-go/pkg/debug"
	"github.com/openinterx/mavi-go/pkg/observability"
)

// ChatEventType distinguishes the events produced by a chat stream.
type ChatEventType int

const (
	// ChatEventDelta carries one fragment of assistant text.
	ChatEventDelta ChatEventType = iota
	// ChatEventError is terminal: the stream stops after producing it.
	ChatEventError
)

// String names the event type for logs and metrics.
func (t ChatEventType) String() string {
	if t == ChatEventError {
		return "error"
	}
	return "delta"
}

// ChatEvent is one element of a streaming chat response: either a text
// fragment or a terminal error.
type ChatEvent struct {
	Type  ChatEventType
	Delta string
	Err   *api.APIError
}

// ChatStream asks the assistant about one or more videos and delivers
// the answer incrementally. The returned channel receives ChatEvent
// values in arrival order and is closed when the stream completes,
// errors, or ctx is cancelled.
//
// The underlying connection is released on every exit path: normal
// exhaustion, an error envelope from the backend, a transport failure,
// or the consumer cancelling ctx and walking away.
//
// The HTTP client timeout is not applied because a stream can
// legitimately outlast any fixed timeout. Lifecycle control relies on
// context cancellation instead.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (<-chan ChatEvent, error) {
	payload, err := buildChatPayload(req, true)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NewServerError("failed to marshal request: " + err.Error())
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "chat", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// Use a client without timeout for streaming. The context controls
	// the request lifetime instead.
	streamClient := &http.Client{
		Transport: c.httpClient.Transport,
	}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}

	// Check for error status codes before starting the stream.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := mapHTTPError(resp)
		resp.Body.Close()
		return nil, apiErr
	}

	ch := make(chan ChatEvent, 16)

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		decodeChatStream(ctx, resp.Body, ch)
	}()

	return ch, nil
}

// decodeChatStream reads raw chunks from body, feeds them through a
// streamDecoder, and sends the resulting events on ch. The channel is
// NOT closed by this function; the caller is responsible for closing
// it and for closing body.
//
// Each complete envelope is emitted before the next chunk is read, so
// the first fragment reaches the consumer as soon as it is parseable
// rather than when the response completes.
func decodeChatStream(ctx context.Context, body io.Reader, ch chan<- ChatEvent) {
	dec := newStreamDecoder()
	chunk := make([]byte, 4096)

	for {
		if ctx.Err() != nil {
			return
		}

		n, readErr := body.Read(chunk)
		if n > 0 {
			dec.Feed(chunk[:n])
			for {
				env, ok := dec.Next()
				if !ok {
					break
				}
				if apiErr := env.err(); apiErr != nil {
					// Terminal application error: surface it and stop
					// consuming. The deferred close in ChatStream drops
					// the connection immediately rather than draining it.
					send(ctx, ch, ChatEvent{Type: ChatEventError, Err: apiErr})
					return
				}
				delta := env.chatText()
				debug.Trace("streaming", "decoded envelope", "delta_len", len(delta))
				if !send(ctx, ch, ChatEvent{Type: ChatEventDelta, Delta: delta}) {
					return
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				if dec.Pending() {
					send(ctx, ch, ChatEvent{
						Type: ChatEventError,
						Err:  api.NewIncompleteStreamError("stream ended with incomplete message"),
					})
				}
				return
			}
			// Context cancellation is not an error from our perspective.
			if ctx.Err() != nil {
				return
			}
			send(ctx, ch, ChatEvent{
				Type: ChatEventError,
				Err:  api.NewServerError("stream read error: " + readErr.Error()),
			})
			return
		}
	}
}

// send delivers one event unless the context is cancelled first. It
// reports whether the event was handed off.
func send(ctx context.Context, ch chan<- ChatEvent, ev ChatEvent) bool {
	select {
	case ch <- ev:
		observability.StreamEventsTotal.WithLabelValues(ev.Type.String()).Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// streamDecoder assembles arbitrarily fragmented raw bytes into
// complete Mavi envelopes. The wire format is zero or more occurrences
// of an optional "data:" prefix, whitespace, and one JSON envelope,
// back to back with no other delimiter.
//
// A decoder belongs to exactly one streaming call and is not
// restartable.
type streamDecoder struct {
	// buf accumulates valid UTF-8 text not yet parsed into envelopes.
	buf []byte
	// tail holds back bytes that may be the prefix of a multibyte rune
	// split across chunk boundaries. They are prepended to the next
	// chunk before validation.
	tail []byte
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{}
}

// Feed ingests one raw chunk. An incomplete trailing rune is held back
// for the next chunk; a chunk carrying definitively invalid UTF-8 is
// dropped without touching the buffered remainder of earlier chunks.
func (d *streamDecoder) Feed(chunk []byte) {
	data := chunk
	if len(d.tail) > 0 {
		data = append(d.tail, chunk...)
		d.tail = nil
	}

	if n := incompleteTailLen(data); n > 0 {
		d.tail = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}

	if !utf8.Valid(data) {
		// The held-back bytes came from this same malformed fragment;
		// keeping them would poison every following chunk.
		d.tail = nil
		debug.Log("streaming", "dropping malformed fragment", "bytes", len(data))
		return
	}

	d.buf = append(d.buf, data...)
}

// Next attempts to parse one complete envelope from the front of the
// buffer. ok is false when the buffered bytes do not yet form a
// complete JSON value; the unparsed remainder is preserved verbatim
// for the next chunk.
func (d *streamDecoder) Next() (env envelope, ok bool) {
	d.buf = stripDataPrefix(d.buf)
	if len(d.buf) == 0 {
		return envelope{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(d.buf))
	if err := dec.Decode(&env); err != nil {
		// Incomplete trailing JSON is a first-class outcome, not an
		// error: leave the buffer untouched and wait for more bytes.
		return envelope{}, false
	}

	d.buf = d.buf[dec.InputOffset():]
	return env, true
}

// Pending reports whether undecoded content remains buffered. Used at
// end of stream to distinguish clean exhaustion from truncation.
func (d *streamDecoder) Pending() bool {
	return len(bytes.TrimSpace(d.buf)) > 0 || len(d.tail) > 0
}

// streamPrefix is the framing convention of the Mavi chat endpoint.
var streamPrefix = []byte("data:")

// stripDataPrefix removes leading whitespace and at most one "data:"
// prefix from the buffer head. A JSON value never starts with 'd', so
// the prefix cannot be confused with envelope content.
func stripDataPrefix(buf []byte) []byte {
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	if rest, ok := bytes.CutPrefix(trimmed, streamPrefix); ok {
		return bytes.TrimLeft(rest, " \t\r\n")
	}
	return trimmed
}

// incompleteTailLen returns the number of trailing bytes forming a
// truncated multibyte UTF-8 sequence that later bytes could complete,
// or 0 when the data ends on a rune boundary or with bytes that are
// invalid regardless of what follows.
func incompleteTailLen(p []byte) int {
	for i := 1; i <= utf8.UTFMax && i <= len(p); i++ {
		b := p[len(p)-i]
		if b < utf8.RuneSelf {
			return 0
		}
		if b&0xC0 == 0xC0 {
			// Start byte: truncated if the sequence wants more bytes
			// than are present.
			if seqLen(b) > i {
				return i
			}
			return 0
		}
		// 10xxxxxx continuation byte: keep walking back.
	}
	return 0
}

// seqLen returns the total length encoded by a UTF-8 start byte, or 1
// for an invalid start byte so that validation rejects it.
func seqLen(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
