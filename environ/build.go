package environ

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/a69/apig.go/event"
)

const (
	defaultRemoteAddr = "127.0.0.1"
	defaultProtocol   = "HTTP/1.1"
	defaultScheme     = "http"
)

// Build synthesizes the Environ for an event. ctx is the invocation context;
// it is exposed to the application through Environ.Context.
func Build(ctx context.Context, req event.Request) (Environ, error) {
	switch r := req.(type) {
	case *event.ProxyRequest:
		return FromProxy(ctx, r, true)
	case *event.ALBRequest:
		return FromProxy(ctx, &r.ProxyRequest, false)
	case *event.HTTPRequest:
		return FromHTTP(ctx, r)
	default:
		return nil, fmt.Errorf("unsupported event type %T", req)
	}
}

// FromProxy builds the Environ of a 1.0 or ALB event. API Gateway hands over
// decoded query parameters, which must be percent-encoded again
// (encodeQuery); the load balancer hands them over still encoded.
func FromProxy(ctx context.Context, r *event.ProxyRequest, encodeQuery bool) (Environ, error) {
	body, err := decodeBody(r.Body, r.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	env := newEnviron(ctx, body, r.Raw())
	env[KeyRequestMethod] = r.HTTPMethod
	env[KeyPathInfo] = unquoteLatin1(r.Path)
	env[KeyRemoteAddr] = defaultRemoteAddr
	env[KeyServerProtocol] = defaultProtocol
	env[KeyMultiValueHeaders] = r.HasMultiValueHeaders

	escape := escapeQuery
	if !encodeQuery {
		escape = escapeRawQuery
	}
	if r.HasMultiValueQuery {
		env[KeyQueryString] = joinQuery(r.MultiValueQueryStringParameters, escape)
	} else {
		env[KeyQueryString] = joinQuery(promote(r.QueryStringParameters), escape)
	}

	headers := r.MultiValueHeaders
	if !r.HasMultiValueHeaders {
		headers = promote(r.Headers)
	}
	for _, name := range sortedKeys(headers) {
		values := headers[name]
		key := HeaderKey(name)
		if len(values) > 0 {
			last := values[len(values)-1]
			switch key {
			case "HTTP_CONTENT_TYPE":
				env[KeyContentType] = last
			case "HTTP_HOST":
				env[KeyServerName] = last
			case "HTTP_X_FORWARDED_FOR":
				env[KeyRemoteAddr] = firstToken(last)
			case "HTTP_X_FORWARDED_PROTO":
				env[KeyURLScheme] = last
			case "HTTP_X_FORWARDED_PORT":
				env[KeyServerPort] = last
			}
		}
		env[key] = strings.Join(values, ",")
	}

	if r.RequestContext != nil {
		env[KeyRequestContext] = r.RequestContext
	}
	return env, nil
}

// FromHTTP builds the Environ of a 2.0 event. Repeated headers arrive joined
// with commas; where a single value is needed the last one is used.
func FromHTTP(ctx context.Context, r *event.HTTPRequest) (Environ, error) {
	body, err := decodeBody(r.Body, r.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	desc := r.RequestContext.HTTP
	protocol := desc.Protocol
	if protocol == "" {
		protocol = defaultProtocol
	}

	env := newEnviron(ctx, body, r.Raw())
	env[KeyRequestMethod] = desc.Method
	env[KeyPathInfo] = unquoteLatin1(r.RawPath)
	env[KeyQueryString] = r.RawQueryString
	env[KeyRemoteAddr] = desc.SourceIP
	env[KeyServerProtocol] = protocol
	env[KeyMultiValueHeaders] = false

	// The gateway moves Cookie headers into the cookies list. Any Cookie
	// header left over is merged back in.
	cookies := slices.Clone(r.Cookies)
	for _, name := range sortedKeys(r.Headers) {
		value := r.Headers[name]
		key := HeaderKey(name)
		switch key {
		case "HTTP_CONTENT_TYPE":
			env[KeyContentType] = lastSegment(value)
		case "HTTP_HOST":
			env[KeyServerName] = lastSegment(value)
		case "HTTP_X_FORWARDED_PROTO":
			env[KeyURLScheme] = lastSegment(value)
		case "HTTP_X_FORWARDED_PORT":
			env[KeyServerPort] = lastSegment(value)
		case "HTTP_COOKIE":
			cookies = append(cookies, value)
			continue
		}
		env[key] = value
	}
	env["HTTP_COOKIE"] = strings.Join(slices.DeleteFunc(cookies, isEmpty), ";")

	if rc := r.RawRequestContext(); rc != nil {
		env[KeyRequestContext] = rc
	}
	return env, nil
}

func newEnviron(ctx context.Context, body []byte, raw map[string]any) Environ {
	return Environ{
		KeyScriptName:    "",
		KeyServerName:    "",
		KeyServerPort:    "",
		KeyContentLength: strconv.Itoa(len(body)),
		KeyInput:         bytes.NewReader(body),
		KeyURLScheme:     defaultScheme,
		KeyErrors:        os.Stderr,
		KeyFullEvent:     raw,
		KeyContext:       ctx,
	}
}

func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if !isBase64 {
		return []byte(body), nil
	}
	b, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 body")
	}
	return b, nil
}

func promote(m map[string]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = []string{v}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// firstToken trims the proxies appended to an X-Forwarded-For chain.
func firstToken(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

func lastSegment(s string) string {
	return strings.TrimSpace(s[strings.LastIndexByte(s, ',')+1:])
}

func isEmpty(s string) bool { return s == "" }
