package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DefaultVersion is assumed for events that carry no version key.
const DefaultVersion = "1.0"

var validate = validator.New()

// Decode parses a Lambda payload into the Request variant it describes.
func Decode(payload []byte) (Request, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}
	if raw == nil {
		return nil, errors.New("decode event: payload is null")
	}
	return FromMap(raw)
}

// FromMap builds the Request variant described by an already decoded event.
// The map is retained and returned by Request.Raw.
//
// An ALB event is recognised by requestContext.elb. Otherwise the version key
// selects the format, defaulting to DefaultVersion.
func FromMap(raw map[string]any) (Request, error) {
	kind, err := Sniff(raw)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindV1:
		r := &ProxyRequest{}
		if err := decodeProxy(raw, r); err != nil {
			return nil, &MalformedError{Kind: kind, Err: err}
		}
		return r, nil

	case KindALB:
		r := &ALBRequest{}
		if err := decodeProxy(raw, &r.ProxyRequest); err != nil {
			return nil, &MalformedError{Kind: kind, Err: err}
		}
		return r, nil

	default:
		r := &HTTPRequest{raw: raw}
		if err := decodeInto(raw, &httpKeys{}); err != nil {
			return nil, &MalformedError{Kind: kind, Err: err}
		}
		if err := decodeInto(raw, r); err != nil {
			return nil, &MalformedError{Kind: kind, Err: err}
		}
		return r, nil
	}
}

// Sniff reports the Kind of a decoded event without decoding it further.
func Sniff(raw map[string]any) (Kind, error) {
	if rc, ok := raw["requestContext"].(map[string]any); ok {
		if _, ok := rc["elb"]; ok {
			return KindALB, nil
		}
	}

	version := DefaultVersion
	if v, ok := raw["version"]; ok {
		s, isString := v.(string)
		if !isString {
			return 0, &UnknownVersionError{Version: fmt.Sprint(v)}
		}
		version = s
	}

	switch version {
	case "1.0":
		return KindV1, nil
	case "2.0":
		return KindV2, nil
	default:
		return 0, &UnknownVersionError{Version: version}
	}
}

// proxyKeys and httpKeys name the keys an event must carry. A present key
// may hold an empty string; a missing or null one makes the event malformed.
type proxyKeys struct {
	HTTPMethod *string `mapstructure:"httpMethod" validate:"required"`
	Path       *string `mapstructure:"path" validate:"required"`
}

type httpKeys struct {
	RawPath        *string `mapstructure:"rawPath" validate:"required"`
	RequestContext struct {
		HTTP struct {
			Method *string `mapstructure:"method" validate:"required"`
		} `mapstructure:"http"`
	} `mapstructure:"requestContext"`
}

func decodeProxy(raw map[string]any, r *ProxyRequest) error {
	if err := decodeInto(raw, &proxyKeys{}); err != nil {
		return err
	}
	r.raw = raw
	_, r.HasMultiValueQuery = raw["multiValueQueryStringParameters"]
	_, r.HasMultiValueHeaders = raw["multiValueHeaders"]
	_, r.HasRequestContext = raw["requestContext"]
	return decodeInto(raw, r)
}

func decodeInto(raw map[string]any, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return errors.Wrap(err, "decode fields")
	}
	if err := validate.Struct(v); err != nil {
		return errors.Wrap(err, "validate fields")
	}
	return nil
}
