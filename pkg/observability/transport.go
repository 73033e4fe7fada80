package observability

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"time"
)

// Transport is an http.RoundTripper that records request metrics. Wire
// it into the client via mavi.Config.Transport.
//
// It captures:
//   - mavi_requests_total (counter): per request with endpoint and status class labels
//   - mavi_request_duration_seconds (histogram): request duration by endpoint
//   - mavi_network_errors_total (counter): requests that never got a response
//   - mavi_streaming_connections_active (gauge): held while a chat stream body is open
type Transport struct {
	// Base is the underlying round tripper. nil means http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	endpoint := path.Base(req.URL.Path)
	start := time.Now()

	resp, err := base.RoundTrip(req)
	if err != nil {
		NetworkErrorsTotal.WithLabelValues(endpoint).Inc()
		return nil, err
	}

	RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	RequestsTotal.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

	// A chat stream holds its connection until the body is closed; track
	// it with the gauge for the body's lifetime.
	if req.Header.Get("Accept") == "text/event-stream" && resp.Body != nil {
		StreamingConnections.Inc()
		resp.Body = &gaugedBody{ReadCloser: resp.Body}
	}

	return resp, nil
}

// statusClass builds a status label like "2xx", "4xx", "5xx".
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// gaugedBody decrements the streaming gauge exactly once when the
// response body is closed.
type gaugedBody struct {
	io.ReadCloser
	closed bool
}

func (b *gaugedBody) Close() error {
	if !b.closed {
		b.closed = true
		StreamingConnections.Dec()
	}
	return b.ReadCloser.Close()
}
