// Package api defines the error taxonomy shared by the Mavi client
// and commands. Every failure surfaced to a caller is an *APIError
// carrying a type, an optional Mavi status code, and a message.
package api
