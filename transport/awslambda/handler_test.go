package awslambda_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/go-cmp/cmp"

	"github.com/a69/apig.go/app"
	"github.com/a69/apig.go/environ"
	"github.com/a69/apig.go/event"
	"github.com/a69/apig.go/response"
	"github.com/a69/apig.go/transport"
	"github.com/a69/apig.go/transport/awslambda"
)

const (
	v1Payload = `{
		"version": "1.0",
		"httpMethod": "GET",
		"path": "/",
		"multiValueQueryStringParameters": null,
		"multiValueHeaders": {"Host": ["example.com"]},
		"requestContext": {},
		"body": "",
		"isBase64Encoded": false
	}`

	v1SinglePayload = `{
		"httpMethod": "GET",
		"path": "/",
		"queryStringParameters": null,
		"headers": {"Host": "example.com"},
		"body": null
	}`

	albPayload = `{
		"requestContext": {"elb": {"targetGroupArn": "arn:aws:elasticloadbalancing:us-east-1:123:targetgroup/x/y"}},
		"httpMethod": "GET",
		"path": "/",
		"queryStringParameters": {},
		"multiValueHeaders": {"user-agent": ["ELB-HealthChecker/2.0"]},
		"body": "",
		"isBase64Encoded": false
	}`

	v2Payload = `{
		"version": "2.0",
		"routeKey": "$default",
		"rawPath": "/",
		"rawQueryString": "a=1",
		"cookies": ["c=1"],
		"headers": {"host": "example.com"},
		"requestContext": {
			"http": {"method": "GET", "path": "/", "protocol": "HTTP/1.1", "sourceIp": "1.2.3.4", "userAgent": "test"}
		},
		"body": "",
		"isBase64Encoded": false
	}`
)

// hello answers with the given content type and chunks.
func hello(contentType string, chunks ...string) app.App {
	return app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		var headers []app.Header
		if contentType != "" {
			headers = append(headers, app.Header{Name: "Content-Type", Value: contentType})
		}
		if _, err := start("200 OK", headers, nil); err != nil {
			return nil, err
		}
		var body [][]byte
		for _, c := range chunks {
			body = append(body, []byte(c))
		}
		return app.Chunks(body...), nil
	})
}

func invoke(t *testing.T, h *awslambda.Handler, payload string) map[string]any {
	t.Helper()
	resp, err := h.Invoke(context.Background(), []byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(resp, &m); err != nil {
		t.Fatalf("%s: %v", resp, err)
	}
	return m
}

func TestInvokeV1(t *testing.T) {
	h := awslambda.NewHandler(hello("text/plain", "Hi", "", " there!", ""))
	want := map[string]any{
		"statusCode":        float64(200),
		"multiValueHeaders": map[string]any{"Content-Type": []any{"text/plain"}},
		"isBase64Encoded":   false,
		"body":              "Hi there!",
	}
	if diff := cmp.Diff(want, invoke(t, h, v1Payload)); diff != "" {
		t.Errorf("response mismatch (-want +have):\n%s", diff)
	}
}

func TestInvokeV1SingleValueHeaders(t *testing.T) {
	h := awslambda.NewHandler(hello("text/plain", "ok"))
	want := map[string]any{
		"statusCode":      float64(200),
		"headers":         map[string]any{"Content-Type": "text/plain"},
		"isBase64Encoded": false,
		"body":            "ok",
	}
	if diff := cmp.Diff(want, invoke(t, h, v1SinglePayload)); diff != "" {
		t.Errorf("response mismatch (-want +have):\n%s", diff)
	}
}

func TestInvokeBinarySupport(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("payload"))
	for _, tc := range []struct {
		name        string
		payload     string
		options     []awslambda.HandlerOption
		contentType string
		wantBinary  bool
	}{
		{"v1 default", v1Payload, nil, "", false},
		{"v1 on no content type", v1Payload, []awslambda.HandlerOption{awslambda.BinarySupport(true)}, "", true},
		{"v1 on text", v1Payload, []awslambda.HandlerOption{awslambda.BinarySupport(true)}, "text/plain", false},
		{"v1 on image", v1Payload, []awslambda.HandlerOption{awslambda.BinarySupport(true)}, "image/png", true},
		{"alb default", albPayload, nil, "image/png", true},
		{"alb default text", albPayload, nil, "text/html", false},
		{"alb off", albPayload, []awslambda.HandlerOption{awslambda.BinarySupport(false)}, "image/png", false},
		{"v2 default", v2Payload, nil, "image/png", true},
		{"v2 forced on", v2Payload, []awslambda.HandlerOption{awslambda.BinarySupport(false)}, "image/png", true},
		{
			"custom prefixes",
			v1Payload,
			[]awslambda.HandlerOption{awslambda.BinarySupport(true), awslambda.NonBinaryContentTypePrefixes("image/")},
			"image/png",
			false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := awslambda.NewHandler(hello(tc.contentType, "payload"), tc.options...)
			m := invoke(t, h, tc.payload)
			if want, have := tc.wantBinary, m["isBase64Encoded"]; want != have {
				t.Fatalf("isBase64Encoded: want %v, have %v", want, have)
			}
			wantBody := "payload"
			if tc.wantBinary {
				wantBody = encoded
			}
			if want, have := wantBody, m["body"]; want != have {
				t.Errorf("body: want %q, have %q", want, have)
			}
		})
	}
}

func TestInvokeV2Cookies(t *testing.T) {
	a := app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		_, err := start("201 Created", []app.Header{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Set-Cookie", Value: "a=1"},
			{Name: "X-Cookie-In", Value: env.String("HTTP_COOKIE")},
			{Name: "Set-Cookie", Value: "b=2"},
		}, nil)
		if err != nil {
			return nil, err
		}
		return app.Chunks([]byte(`{"query":"` + env.QueryString() + `"}`)), nil
	})

	want := map[string]any{
		"statusCode": float64(201),
		"cookies":    []any{"a=1", "b=2"},
		"headers": map[string]any{
			"content-type": "application/json",
			"x-cookie-in":  "c=1",
		},
		"isBase64Encoded": false,
		"body":            `{"query":"a=1"}`,
	}
	if diff := cmp.Diff(want, invoke(t, awslambda.NewHandler(a), v2Payload)); diff != "" {
		t.Errorf("response mismatch (-want +have):\n%s", diff)
	}
}

func TestInvokeALBHealthCheck(t *testing.T) {
	a := app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		rc, _ := env.RequestContext()
		elb, _ := rc["elb"].(map[string]any)
		if _, err := start("200 OK", []app.Header{{Name: "Content-Type", Value: "text/plain"}}, nil); err != nil {
			return nil, err
		}
		return app.Chunks([]byte(fmt.Sprint(elb["targetGroupArn"]))), nil
	})

	m := invoke(t, awslambda.NewHandler(a), albPayload)
	if want, have := "arn:aws:elasticloadbalancing:us-east-1:123:targetgroup/x/y", m["body"]; want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if _, ok := m["multiValueHeaders"]; !ok {
		t.Errorf("want multiValueHeaders, have %v", m)
	}
}

func TestInvokeUnknownVersion(t *testing.T) {
	var handled, finalized error
	h := awslambda.NewHandler(
		hello("text/plain"),
		awslambda.HandlerErrorHandler(transport.ErrorHandlerFunc(func(ctx context.Context, err error) { handled = err })),
		awslambda.HandlerFinalizer(func(ctx context.Context, resp []byte, err error) { finalized = err }),
	)

	resp, err := h.Invoke(context.Background(), []byte(`{"version": "3.0"}`))
	if err == nil {
		t.Fatalf("want error, have response %s", resp)
	}
	if !strings.Contains(err.Error(), "3.0") {
		t.Errorf("error %q does not name the version", err)
	}
	var versionErr *event.UnknownVersionError
	if !errors.As(err, &versionErr) {
		t.Errorf("want *event.UnknownVersionError, have %T", err)
	}
	if handled != err {
		t.Errorf("error handler: want %v, have %v", err, handled)
	}
	if finalized != err {
		t.Errorf("finalizer: want %v, have %v", err, finalized)
	}
}

func TestInvokeExcInfo(t *testing.T) {
	boom := errors.New("boom")

	for name, a := range map[string]app.App{
		"propagated": app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
			if _, err := start("500 Internal Server Error", nil, boom); err != nil {
				return nil, err
			}
			return app.Chunks(), nil
		}),
		"ignored": app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
			start("200 OK", nil, nil)
			start("500 Internal Server Error", nil, boom)
			return app.Chunks([]byte("never sent")), nil
		}),
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := awslambda.NewHandler(a).Invoke(context.Background(), []byte(v1Payload))
			if err != boom {
				t.Errorf("want %v, have %v", boom, err)
			}
			if resp != nil {
				t.Errorf("want no response, have %s", resp)
			}
		})
	}
}

func TestInvokeMalformedStatus(t *testing.T) {
	a := app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		start("OK", []app.Header{{Name: "Content-Type", Value: "text/plain"}}, nil)
		return app.Chunks([]byte("hi")), nil
	})
	resp, err := awslambda.NewHandler(a).Invoke(context.Background(), []byte(v1Payload))
	var statusErr *response.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want *response.StatusError, have %v", err)
	}
	if want, have := "OK", statusErr.Status; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if resp != nil {
		t.Errorf("want no response, have %s", resp)
	}
}

type closeTracker struct {
	closed bool
}

func (c *closeTracker) Next() ([]byte, error) { return nil, errors.New("unreachable") }

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestInvokeAppErrorClosesBody(t *testing.T) {
	boom := errors.New("boom")
	body := &closeTracker{}
	a := app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		return body, boom
	})
	if _, err := awslambda.NewHandler(a).Invoke(context.Background(), []byte(v1Payload)); err != boom {
		t.Errorf("want %v, have %v", boom, err)
	}
	if !body.closed {
		t.Error("body not closed")
	}
}

func TestInvokeNotStarted(t *testing.T) {
	var handled error
	a := app.Func(func(env environ.Environ, start app.StartResponse) (app.Body, error) {
		return app.Chunks(), nil
	})
	h := awslambda.NewHandler(a, awslambda.HandlerErrorHandler(transport.ErrorHandlerFunc(func(ctx context.Context, err error) { handled = err })))

	m := invoke(t, h, v1Payload)
	if want, have := float64(500), m["statusCode"]; want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if !errors.Is(handled, awslambda.ErrResponseNotStarted) {
		t.Errorf("want %v, have %v", awslambda.ErrResponseNotStarted, handled)
	}
}

func TestInvokeErrorEncoder(t *testing.T) {
	h := awslambda.NewHandler(
		hello("text/plain"),
		awslambda.HandlerErrorEncoder(func(ctx context.Context, err error) ([]byte, error) {
			return json.Marshal(map[string]any{"statusCode": 400, "body": err.Error()})
		}),
	)
	resp, err := h.Invoke(context.Background(), []byte(`not json`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(resp), `"statusCode":400`) {
		t.Errorf("unexpected response %s", resp)
	}
}

func TestInvokeHooks(t *testing.T) {
	type key struct{}
	var (
		afterStatus int
		finalKind   any
		finalStatus any
		finalValue  any
		requestID   any
		finalResp   []byte
	)
	h := awslambda.NewHandler(
		hello("text/plain", "ok"),
		awslambda.HandlerBefore(
			awslambda.PopulateRequestContext,
			func(ctx context.Context, payload []byte) context.Context {
				return context.WithValue(ctx, key{}, len(payload))
			},
		),
		awslambda.HandlerAfter(func(ctx context.Context, resp event.Response) context.Context {
			afterStatus = resp.Status()
			return ctx
		}),
		awslambda.HandlerFinalizer(func(ctx context.Context, resp []byte, err error) {
			finalKind = ctx.Value(awslambda.ContextKeyEventKind)
			finalStatus = ctx.Value(awslambda.ContextKeyStatusCode)
			finalValue = ctx.Value(key{})
			requestID = ctx.Value(awslambda.ContextKeyRequestID)
			finalResp = resp
		}),
	)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "abc-123"})
	resp, err := h.Invoke(ctx, []byte(v2Payload))
	if err != nil {
		t.Fatal(err)
	}

	if want, have := 200, afterStatus; want != have {
		t.Errorf("after: want %d, have %d", want, have)
	}
	if want, have := any(event.KindV2), finalKind; want != have {
		t.Errorf("kind: want %v, have %v", want, have)
	}
	if want, have := any(200), finalStatus; want != have {
		t.Errorf("status: want %v, have %v", want, have)
	}
	if want, have := any(len(v2Payload)), finalValue; want != have {
		t.Errorf("before value: want %v, have %v", want, have)
	}
	if want, have := any("abc-123"), requestID; want != have {
		t.Errorf("request id: want %v, have %v", want, have)
	}
	if diff := cmp.Diff(resp, finalResp); diff != "" {
		t.Errorf("finalizer response mismatch (-want +have):\n%s", diff)
	}
}

func TestInvokeCustomCodecs(t *testing.T) {
	h := awslambda.NewHandler(
		hello("text/plain", "ok"),
		awslambda.HandlerDecoder(func(ctx context.Context, payload []byte) (event.Request, error) {
			return event.Decode([]byte(v1SinglePayload))
		}),
		awslambda.HandlerEncoder(func(ctx context.Context, resp event.Response) ([]byte, error) {
			return []byte(fmt.Sprint(resp.Status())), nil
		}),
	)
	resp, err := h.Invoke(context.Background(), []byte(`ignored`))
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "200", string(resp); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestEndpoint(t *testing.T) {
	req, err := event.Decode([]byte(v2Payload))
	if err != nil {
		t.Fatal(err)
	}
	e := awslambda.NewHandler(hello("text/plain", "ok")).Endpoint()
	res, err := e(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	have, ok := res.(*event.HTTPResponse)
	if !ok {
		t.Fatalf("want *event.HTTPResponse, have %T", res)
	}
	if want, have := "ok", have.Body; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestServeHTTPHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.SetCookie(w, &http.Cookie{Name: "seen", Value: r.PathValue("id")})
		fmt.Fprintf(w, `{"id":%q,"remote":%q}`, r.PathValue("id"), r.RemoteAddr)
	})

	req, err := event.Decode([]byte(strings.Replace(v2Payload, `"rawPath": "/"`, `"rawPath": "/items/42"`, 1)))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := awslambda.NewHandler(app.HTTPHandler(mux)).Serve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	want := &event.HTTPResponse{
		StatusCode: 200,
		Cookies:    []string{"seen=42"},
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       `{"id":"42","remote":"1.2.3.4"}`,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +have):\n%s", diff)
	}
}
