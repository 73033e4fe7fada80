package integration

import (
	"context"
	"testing"

	"github.com/openinterx/mavi-go/pkg/api"
	"github.com/openinterx/mavi-go/pkg/mavi"
)

// TestAuthenticationError verifies that a 401 from the backend maps to
// an authentication error.
func TestAuthenticationError(t *testing.T) {
	client, err := mavi.New(mavi.Config{
		APIKey:  "wrong-key",
		BaseURL: testEnv.Backend.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	_, err = client.SearchAI(context.Background(), "anything")
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T (%v)", err, err)
	}
	if apiErr.Type != api.ErrorTypeAuthentication {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeAuthentication)
	}
}

// TestEnvelopeErrorSurfaced verifies that an HTTP 200 response whose
// envelope carries a non-success code is surfaced as an API error.
func TestEnvelopeErrorSurfaced(t *testing.T) {
	_, err := testEnv.Client.SearchAI(context.Background(), "trigger-error")
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T (%v)", err, err)
	}
	if apiErr.Type != api.ErrorTypeAPI {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeAPI)
	}
	if apiErr.Code != "5002" {
		t.Errorf("error code = %q, want 5002", apiErr.Code)
	}
}

// TestConnectionError verifies that an unreachable backend maps to a
// server error rather than a raw transport error.
func TestConnectionError(t *testing.T) {
	client, err := mavi.New(mavi.Config{
		APIKey: testAPIKey,
		// Port 1 is essentially never listening.
		BaseURL: "http://127.0.0.1:1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	_, err = client.SearchAI(context.Background(), "anything")
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T (%v)", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
}
