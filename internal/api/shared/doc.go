// Package shared holds the request and response plumbing used by every
// handler: the JSON envelope, error responses carrying a trace ID, body
// decoding and struct validation.
package shared
