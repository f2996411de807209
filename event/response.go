package event

import "encoding/json"

// Response is an outbound result. The set of implementations is closed:
// *ProxyResponse and *HTTPResponse.
type Response interface {
	// Status returns the HTTP status code carried by the response.
	Status() int

	response()
}

// ProxyResponse answers both 1.0 and ALB events. Exactly one of headers and
// multiValueHeaders is serialized, selected by MultiValue.
type ProxyResponse struct {
	StatusCode        int                 `json:"statusCode"`
	Headers           map[string]string   `json:"headers,omitempty"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	IsBase64Encoded   bool                `json:"isBase64Encoded"`
	Body              string              `json:"body"`

	MultiValue bool `json:"-"`
}

// Status implements Response.
func (r *ProxyResponse) Status() int { return r.StatusCode }

func (*ProxyResponse) response() {}

// MarshalJSON emits the header map selected by MultiValue, as an empty object
// when there are no headers.
func (r ProxyResponse) MarshalJSON() ([]byte, error) {
	if r.MultiValue {
		headers := r.MultiValueHeaders
		if headers == nil {
			headers = map[string][]string{}
		}
		return json.Marshal(struct {
			StatusCode        int                 `json:"statusCode"`
			MultiValueHeaders map[string][]string `json:"multiValueHeaders"`
			IsBase64Encoded   bool                `json:"isBase64Encoded"`
			Body              string              `json:"body"`
		}{r.StatusCode, headers, r.IsBase64Encoded, r.Body})
	}

	headers := r.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal(struct {
		StatusCode      int               `json:"statusCode"`
		Headers         map[string]string `json:"headers"`
		IsBase64Encoded bool              `json:"isBase64Encoded"`
		Body            string            `json:"body"`
	}{r.StatusCode, headers, r.IsBase64Encoded, r.Body})
}

// HTTPResponse answers 2.0 events. Header names are lower case and
// Set-Cookie values travel in Cookies.
type HTTPResponse struct {
	StatusCode      int               `json:"statusCode"`
	Cookies         []string          `json:"cookies"`
	Headers         map[string]string `json:"headers"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
	Body            string            `json:"body"`
}

// Status implements Response.
func (r *HTTPResponse) Status() int { return r.StatusCode }

func (*HTTPResponse) response() {}

// MarshalJSON emits cookies and headers as empty collections rather than null.
func (r HTTPResponse) MarshalJSON() ([]byte, error) {
	type plain HTTPResponse
	if r.Cookies == nil {
		r.Cookies = []string{}
	}
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	return json.Marshal(plain(r))
}
