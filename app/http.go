package app

import (
	"bytes"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/a69/apig.go/environ"
)

// HTTPHandler adapts a net/http handler to the App interface. The handler
// sees the request rebuilt by environ.Request; the Environ itself is
// available through environ.FromContext(r.Context()).
//
// The response is buffered. As in net/http, the status and headers are
// fixed on the first call to WriteHeader or Write, and a missing
// Content-Type is sniffed from the body unless Content-Encoding is set.
func HTTPHandler(h http.Handler) App {
	return httpApp{h: h}
}

type httpApp struct {
	h http.Handler
}

func (a httpApp) Serve(env environ.Environ, start StartResponse) (Body, error) {
	r, err := environ.Request(env)
	if err != nil {
		return nil, err
	}

	w := &responseWriter{header: http.Header{}}
	a.h.ServeHTTP(w, r)
	w.WriteHeader(http.StatusOK)

	if _, err := start(statusLine(w.status), w.headers(), nil); err != nil {
		return nil, err
	}
	if r.Method == http.MethodHead || !bodyAllowed(w.status) {
		return Chunks(), nil
	}
	return Chunks(w.body.Bytes()), nil
}

type responseWriter struct {
	header      http.Header
	snapshot    http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.snapshot = w.header.Clone()
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	if w.body.Len() == 0 && len(p) > 0 {
		w.sniff(p)
	}
	return w.body.Write(p)
}

// Flush is a no-op; the body is delivered once the handler returns.
func (w *responseWriter) Flush() {}

func (w *responseWriter) sniff(p []byte) {
	if _, ok := w.snapshot["Content-Type"]; ok {
		return
	}
	if w.snapshot.Get("Content-Encoding") != "" || !bodyAllowed(w.status) {
		return
	}
	w.snapshot.Set("Content-Type", http.DetectContentType(p))
}

func (w *responseWriter) headers() []Header {
	var out []Header
	for _, name := range slices.Sorted(maps.Keys(w.snapshot)) {
		for _, v := range w.snapshot[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

func statusLine(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
