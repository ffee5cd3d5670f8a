package source

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/quantfold/harvest/pkg/errors"
)

// CheckStatus classifies a non-200 provider response into the error
// taxonomy: 429 is retryable throttling, 5xx is a retryable outage,
// anything else means the request itself was rejected.
func CheckStatus(resp *http.Response, provider string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Newf(errors.ErrorTypeRateLimited, "%s throttled the request", provider).
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode >= 500:
		return errors.Newf(errors.ErrorTypeSourceUnavailable, "%s returned a server error", provider).
			WithDetail("status", resp.StatusCode)
	default:
		return errors.Newf(errors.ErrorTypeValidation, "%s rejected the request with status %d", provider, resp.StatusCode)
	}
}

// ReadBody drains and closes the response body
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "reading response body")
	}
	return body, nil
}

// DecodeJSON drains the response body and unmarshals it, reporting an
// undecodable payload as malformed rather than as an outage.
func DecodeJSON(resp *http.Response, provider string, v interface{}) error {
	body, err := ReadBody(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeMalformedResponse, provider+" returned an undecodable payload")
	}
	return nil
}
