package environ

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Request reconstructs the net/http request described by env, the way
// net/http/cgi does for a CGI environment. The request context carries env,
// see FromContext.
func Request(env Environ) (*http.Request, error) {
	major, minor, ok := http.ParseHTTPVersion(env.Protocol())
	if !ok {
		major, minor = 1, 1
	}

	r := &http.Request{
		Method:     env.Method(),
		Proto:      "HTTP/" + strconv.Itoa(major) + "." + strconv.Itoa(minor),
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     http.Header{},
		RemoteAddr: env.RemoteAddr(),
		Body:       http.NoBody,
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	for key, v := range env {
		s, isString := v.(string)
		if !isString || !strings.HasPrefix(key, HeaderPrefix) {
			continue
		}
		if key == "HTTP_HOST" || (key == "HTTP_COOKIE" && s == "") {
			continue
		}
		name := http.CanonicalHeaderKey(strings.ReplaceAll(key[len(HeaderPrefix):], "_", "-"))
		r.Header.Add(name, s)
	}
	if ct := env.ContentType(); ct != "" && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", ct)
	}

	r.Host = env.String("HTTP_HOST")
	if r.Host == "" {
		r.Host = env.ServerName()
	}

	if cl := env.ContentLength(); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, errors.Errorf("invalid %s %q", KeyContentLength, cl)
		}
		r.ContentLength = n
	}
	if in := env.Input(); in != nil && r.ContentLength > 0 {
		r.Body = io.NopCloser(in)
	}

	scheme := env.Scheme()
	if scheme == "" {
		scheme = defaultScheme
	}
	if scheme == "https" {
		r.TLS = &tls.ConnectionState{HandshakeComplete: true}
	}

	r.URL = &url.URL{
		Path:     env.String(KeyScriptName) + encodeLatin1(env.PathInfo()),
		RawQuery: env.QueryString(),
	}
	r.RequestURI = r.URL.RequestURI()
	if r.Host != "" {
		r.URL.Scheme = scheme
		r.URL.Host = r.Host
	}

	return r.WithContext(NewContext(env.Context(), env)), nil
}
