// Package event models the JSON payloads exchanged with AWS Lambda when it is
// invoked by API Gateway (REST and HTTP APIs) or by an Application Load
// Balancer target group.
//
// Inbound payloads decode into one of three request variants. Each variant
// has a matching response shape, see response.go.
package event

// Kind identifies the payload schema of an event.
type Kind uint8

// Known payload schemas.
const (
	// KindV1 is the API Gateway REST API proxy payload, format 1.0.
	KindV1 Kind = iota + 1
	// KindALB is the Application Load Balancer target group payload.
	KindALB
	// KindV2 is the API Gateway HTTP API payload, format 2.0.
	KindV2
)

func (k Kind) String() string {
	switch k {
	case KindV1:
		return "1.0"
	case KindALB:
		return "alb"
	case KindV2:
		return "2.0"
	default:
		return "unknown"
	}
}

// Request is an inbound event. The set of implementations is closed:
// *ProxyRequest, *ALBRequest and *HTTPRequest.
type Request interface {
	// Kind reports which payload schema the event was decoded from.
	Kind() Kind
	// Raw returns the complete event as it was decoded from JSON.
	Raw() map[string]any

	request()
}

// ProxyRequest is a REST API proxy integration event (payload format 1.0).
type ProxyRequest struct {
	HTTPMethod                      string              `mapstructure:"httpMethod"`
	Path                            string              `mapstructure:"path"`
	QueryStringParameters           map[string]string   `mapstructure:"queryStringParameters"`
	MultiValueQueryStringParameters map[string][]string `mapstructure:"multiValueQueryStringParameters"`
	Headers                         map[string]string   `mapstructure:"headers"`
	MultiValueHeaders               map[string][]string `mapstructure:"multiValueHeaders"`
	Body                            string              `mapstructure:"body"`
	IsBase64Encoded                 bool                `mapstructure:"isBase64Encoded"`

	// RequestContext is the untyped requestContext object, nil when the
	// event carried none or carried null.
	RequestContext map[string]any `mapstructure:"requestContext"`

	// HasMultiValueQuery is set when the event carried the
	// multiValueQueryStringParameters key, even with a null value.
	HasMultiValueQuery bool `mapstructure:"-"`
	// HasMultiValueHeaders is set when the event carried the
	// multiValueHeaders key, even with a null value.
	HasMultiValueHeaders bool `mapstructure:"-"`
	// HasRequestContext is set when the event carried the requestContext key.
	HasRequestContext bool `mapstructure:"-"`

	raw map[string]any
}

// Kind implements Request.
func (*ProxyRequest) Kind() Kind { return KindV1 }

// Raw implements Request.
func (r *ProxyRequest) Raw() map[string]any { return r.raw }

func (*ProxyRequest) request() {}

// ALBRequest is an Application Load Balancer target group event. It shares the
// 1.0 layout, but the load balancer delivers query parameters still
// percent-encoded.
type ALBRequest struct {
	ProxyRequest
}

// Kind implements Request.
func (*ALBRequest) Kind() Kind { return KindALB }

// TargetGroupArn returns requestContext.elb.targetGroupArn, if present.
func (r *ALBRequest) TargetGroupArn() string {
	elb, _ := r.RequestContext["elb"].(map[string]any)
	arn, _ := elb["targetGroupArn"].(string)
	return arn
}

// HTTPRequest is an HTTP API event (payload format 2.0).
type HTTPRequest struct {
	Version         string             `mapstructure:"version"`
	RouteKey        string             `mapstructure:"routeKey"`
	RawPath         string             `mapstructure:"rawPath"`
	RawQueryString  string             `mapstructure:"rawQueryString"`
	Cookies         []string           `mapstructure:"cookies"`
	Headers         map[string]string  `mapstructure:"headers"`
	Body            string             `mapstructure:"body"`
	IsBase64Encoded bool               `mapstructure:"isBase64Encoded"`
	RequestContext  HTTPRequestContext `mapstructure:"requestContext"`

	raw map[string]any
}

// HTTPRequestContext is the typed part of a 2.0 requestContext.
type HTTPRequestContext struct {
	AccountID    string      `mapstructure:"accountId"`
	APIID        string      `mapstructure:"apiId"`
	DomainName   string      `mapstructure:"domainName"`
	DomainPrefix string      `mapstructure:"domainPrefix"`
	RequestID    string      `mapstructure:"requestId"`
	Stage        string      `mapstructure:"stage"`
	TimeEpoch    int64       `mapstructure:"timeEpoch"`
	HTTP         Description `mapstructure:"http"`
}

// Description describes the HTTP request carried by a 2.0 event.
type Description struct {
	Method    string `mapstructure:"method"`
	Path      string `mapstructure:"path"`
	Protocol  string `mapstructure:"protocol"`
	SourceIP  string `mapstructure:"sourceIp"`
	UserAgent string `mapstructure:"userAgent"`
}

// Kind implements Request.
func (*HTTPRequest) Kind() Kind { return KindV2 }

// Raw implements Request.
func (r *HTTPRequest) Raw() map[string]any { return r.raw }

// RawRequestContext returns the requestContext object exactly as received,
// including the parts HTTPRequestContext does not model (authorizer, etc.).
func (r *HTTPRequest) RawRequestContext() map[string]any {
	rc, _ := r.raw["requestContext"].(map[string]any)
	return rc
}

func (*HTTPRequest) request() {}
