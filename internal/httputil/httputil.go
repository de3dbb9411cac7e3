// Package httputil holds HTTP helpers shared by the packages that talk to
// NVD.
package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// CheckResponse reports an error if the response's status code is not one of
// the provided codes. The error includes the start of the server's body,
// which is where NVD puts its rate limit and rejection messages.
func CheckResponse(res *http.Response, want ...int) error {
	if slices.Contains(want, res.StatusCode) {
		return nil
	}
	lr := io.LimitedReader{R: res.Body, N: 256}
	body, _ := io.ReadAll(&lr)
	return fmt.Errorf("unexpected status code: %s (body starts: %q)", res.Status, bytes.TrimSpace(body))
}
