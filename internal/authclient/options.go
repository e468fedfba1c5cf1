package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RequestOption customizes a request. Options are applied again for a
// replay, so they must not depend on having run before.
type RequestOption func(*requestSpec)

type requestSpec struct {
	header      http.Header
	query       url.Values
	body        []byte
	contentType string
	err         error
}

// WithJSON sends v as a JSON body.
func WithJSON(v any) RequestOption {
	return func(s *requestSpec) {
		b, err := json.Marshal(v)
		if err != nil {
			s.err = fmt.Errorf("marshal request body: %w", err)
			return
		}
		s.body = b
		s.contentType = "application/json"
	}
}

// WithBody sends raw bytes with the given content type.
func WithBody(contentType string, body []byte) RequestOption {
	return func(s *requestSpec) {
		s.body = body
		s.contentType = contentType
	}
}

func WithHeader(key, value string) RequestOption {
	return func(s *requestSpec) { s.header.Add(key, value) }
}

func WithQuery(key, value string) RequestOption {
	return func(s *requestSpec) { s.query.Add(key, value) }
}
