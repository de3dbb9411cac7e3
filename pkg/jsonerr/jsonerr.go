// Package jsonerr renders HTTP errors as a small JSON envelope instead of
// the plain text http.Error writes.
package jsonerr

import (
	"encoding/json"
	"net/http"
)

// Response is the error envelope.
type Response struct {
	// Code is a short, stable, machine-matchable string.
	Code string `json:"code"`
	// Message is for people.
	Message string `json:"message"`
	// Additional must be json serializable or expect errors.
	Additional any `json:"additional,omitempty"`
}

// Error works like http.Error but writes the Response as the body. Like
// http.Error, the handler still needs a naked return after calling it.
func Error(w http.ResponseWriter, r *Response, httpcode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpcode)
	b, _ := json.Marshal(r)
	w.Write(b)
}
