// Package response collects what an application produces for one invocation
// and serializes it into the gateway response matching the inbound event.
package response

import (
	"bytes"
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/a69/apig.go/app"
	"github.com/a69/apig.go/event"
)

var defaultNonBinaryContentTypePrefixes = []string{
	"text/",
	"application/json",
	"application/problem+json",
	"application/vnd.api+json",
}

// DefaultNonBinaryContentTypePrefixes returns the content type prefixes
// whose bodies are sent as text when binary support is on.
func DefaultNonBinaryContentTypePrefixes() []string {
	return append([]string(nil), defaultNonBinaryContentTypePrefixes...)
}

// StatusError is returned by StartResponse for a status line without a
// leading integer code.
type StatusError struct {
	Status string
}

func (e *StatusError) Error() string {
	return "malformed status line " + strconv.Quote(e.Status)
}

// Collector accumulates the status, headers and body of one response. It
// is not safe for concurrent use and must not be reused.
type Collector struct {
	binarySupport bool
	prefixes      []string

	started bool
	status  int
	headers []app.Header
	body    bytes.Buffer
	err     error
}

// New returns a Collector. When binarySupport is true, bodies whose
// Content-Type matches none of nonBinaryPrefixes are base64 encoded. A nil
// nonBinaryPrefixes selects DefaultNonBinaryContentTypePrefixes.
func New(binarySupport bool, nonBinaryPrefixes []string) *Collector {
	if nonBinaryPrefixes == nil {
		nonBinaryPrefixes = defaultNonBinaryContentTypePrefixes
	}
	return &Collector{
		binarySupport: binarySupport,
		prefixes:      nonBinaryPrefixes,
		status:        500,
	}
}

// StartResponse implements app.StartResponse.
func (c *Collector) StartResponse(status string, headers []app.Header, excInfo error) (app.WriteFunc, error) {
	if excInfo != nil {
		c.err = excInfo
		return nil, excInfo
	}

	code, err := parseStatus(status)
	if err != nil {
		c.err = err
		return nil, err
	}
	c.started = true
	c.status = code
	c.headers = append(c.headers, headers...)
	return c.body.Write, nil
}

func parseStatus(status string) (int, error) {
	fields := strings.Fields(status)
	if len(fields) == 0 {
		return 0, &StatusError{Status: status}
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, &StatusError{Status: status}
	}
	return code, nil
}

// Consume appends every chunk of body to the response, then closes body if
// it is an io.Closer. The body is closed even if iteration fails; a close
// error is only returned when iteration succeeded.
func (c *Collector) Consume(body app.Body) (err error) {
	if body == nil {
		return nil
	}
	if closer, ok := body.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close response body")
			}
		}()
	}

	for {
		chunk, nextErr := body.Next()
		if len(chunk) > 0 {
			c.body.Write(chunk)
		}
		if nextErr == io.EOF {
			return nil
		}
		if nextErr != nil {
			return nextErr
		}
	}
}

// Started reports whether StartResponse has accepted a status.
func (c *Collector) Started() bool { return c.started }

// Status returns the numeric status code, 500 until a status is accepted.
func (c *Collector) Status() int { return c.status }

// Headers returns the accumulated headers in the order they were given.
func (c *Collector) Headers() []app.Header { return c.headers }

// Err returns the error the application aborted the response with, or the
// StatusError of a malformed status line, if any.
func (c *Collector) Err() error { return c.err }

// ShouldSendBinary reports whether the body must be base64 encoded.
//
// Without binary support it never is. Otherwise any Content-Encoding makes
// the body binary, and so does a Content-Type, or the lack of one, that
// matches none of the non-binary prefixes.
func (c *Collector) ShouldSendBinary() bool {
	if !c.binarySupport {
		return false
	}
	if c.header("Content-Encoding") != "" {
		return true
	}
	contentType := c.header("Content-Type")
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(contentType, prefix) {
			return false
		}
	}
	return true
}

// header returns the last value of the named header, matched
// case-insensitively.
func (c *Collector) header(name string) string {
	for i := len(c.headers) - 1; i >= 0; i-- {
		if strings.EqualFold(c.headers[i].Name, name) {
			return c.headers[i].Value
		}
	}
	return ""
}

// ProxyResponse serializes the response for a 1.0 or load balancer event.
// With multiValue, headers are grouped by name keeping every value;
// otherwise the last value of a repeated name wins.
func (c *Collector) ProxyResponse(multiValue bool) *event.ProxyResponse {
	resp := &event.ProxyResponse{
		StatusCode: c.status,
		MultiValue: multiValue,
	}
	if multiValue {
		resp.MultiValueHeaders = make(map[string][]string, len(c.headers))
		for _, h := range c.headers {
			resp.MultiValueHeaders[h.Name] = append(resp.MultiValueHeaders[h.Name], h.Value)
		}
	} else {
		resp.Headers = make(map[string]string, len(c.headers))
		for _, h := range c.headers {
			resp.Headers[h.Name] = h.Value
		}
	}
	resp.Body, resp.IsBase64Encoded = c.encodeBody()
	return resp
}

// HTTPResponse serializes the response for a 2.0 event. Header names are
// lowercased and Set-Cookie headers move to the cookies list.
func (c *Collector) HTTPResponse() *event.HTTPResponse {
	resp := &event.HTTPResponse{
		StatusCode: c.status,
		Cookies:    []string{},
		Headers:    make(map[string]string, len(c.headers)),
	}
	for _, h := range c.headers {
		name := strings.ToLower(h.Name)
		if name == "set-cookie" {
			resp.Cookies = append(resp.Cookies, h.Value)
			continue
		}
		resp.Headers[name] = h.Value
	}
	resp.Body, resp.IsBase64Encoded = c.encodeBody()
	return resp
}

func (c *Collector) encodeBody() (string, bool) {
	if c.ShouldSendBinary() {
		return base64.StdEncoding.EncodeToString(c.body.Bytes()), true
	}
	return strings.ToValidUTF8(c.body.String(), string(utf8.RuneError)), false
}
