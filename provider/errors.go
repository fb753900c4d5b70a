package provider

import (
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-success HTTP response from a provider. It carries the
// provider's status code and raw body text so callers can map 401/429/etc.
// to readable messages.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}

// newAPIError drains the response body into an APIError. The caller keeps
// ownership of the body and must still close it.
func newAPIError(providerName string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return &APIError{
		Provider: providerName,
		Status:   resp.StatusCode,
		Body:     string(body),
	}
}
