// Package mavi provides a client for the Mavi video-understanding API.
// It handles request serialization, envelope parsing, incremental chat
// stream decoding, and error mapping.
//
// All responses from the backend share one envelope shape: a status
// code, a human-readable message, and an operation-specific payload.
// The client unwraps the envelope and surfaces non-success codes as
// *api.APIError values.
package mavi
