package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/a69/apig.go/app"
	"github.com/a69/apig.go/config"
	"github.com/a69/apig.go/transport/awslambda"
)

const functionArn = "arn:aws:lambda:local:000000000000:function:apig-invoke"

type invokeOptions struct {
	upstream      string
	dir           string
	binarySupport string
	prefixes      []string
	logFormat     string
	envFile       string
	timeout       time.Duration
	compact       bool
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts invokeOptions
	cmd := &cobra.Command{
		Use:   "apig-invoke [event.json]",
		Short: "Run a gateway event through an HTTP application and print the response",
		Long: "Reads an API Gateway (1.0 or 2.0) or load balancer event from a file, or from\n" +
			"standard input, serves it with a reverse proxy or a static file server and\n" +
			"prints the gateway response as JSON.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return invoke(cmd.Context(), opts, in, stdout, stderr)
		},
	}
	cmd.Flags().StringVarP(&opts.upstream, "upstream", "u", "", "URL of the HTTP server to proxy the request to")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "directory to serve static files from")
	cmd.Flags().StringVar(&opts.binarySupport, "binary-support", "", "force binary responses on or off (true|false)")
	cmd.Flags().StringSliceVar(&opts.prefixes, "non-binary-prefix", nil, "content type prefixes sent as text (repeatable)")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "log format: logfmt, json, logrus or zap")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "file to load APIG_* variables from")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "invocation deadline")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "print the response on a single line")
	return cmd
}

func invoke(ctx context.Context, opts invokeOptions, in io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if opts.binarySupport != "" {
		b := opts.binarySupport == "true"
		if !b && opts.binarySupport != "false" {
			return errors.Errorf("--binary-support: want true or false, have %q", opts.binarySupport)
		}
		cfg.BinarySupport = &b
	}
	if opts.prefixes != nil {
		cfg.NonBinaryContentTypePrefixes = opts.prefixes
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	payload, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read event")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	requestID := uuid.NewString()
	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{
		AwsRequestID:       requestID,
		InvokedFunctionArn: functionArn,
	})

	options := append(cfg.HandlerOptions(logger),
		awslambda.HandlerBefore(awslambda.PopulateRequestContext),
		awslambda.HandlerFinalizer(func(ctx context.Context, resp []byte, err error) {
			status, _ := ctx.Value(awslambda.ContextKeyStatusCode).(int)
			level.Info(logger).Log(
				"request_id", ctx.Value(awslambda.ContextKeyRequestID),
				"format", ctx.Value(awslambda.ContextKeyEventKind),
				"status", status,
				"bytes", len(resp),
				"deadline", deadline.Format(time.RFC3339),
				"err", err,
			)
		}),
	)

	resp, err := awslambda.NewHandler(a, options...).Invoke(ctx, payload)
	if err != nil {
		return err
	}
	return writeJSON(stdout, resp, opts.compact)
}

func newApp(opts invokeOptions) (app.App, error) {
	switch {
	case opts.upstream != "" && opts.dir != "":
		return nil, errors.New("--upstream and --dir are mutually exclusive")
	case opts.upstream != "":
		u, err := url.Parse(opts.upstream)
		if err != nil {
			return nil, errors.Wrap(err, "--upstream")
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("--upstream: %q is not an absolute URL", opts.upstream)
		}
		return app.HTTPHandler(httputil.NewSingleHostReverseProxy(u)), nil
	case opts.dir != "":
		return app.HTTPHandler(http.FileServer(http.Dir(opts.dir))), nil
	default:
		return nil, errors.New("one of --upstream or --dir is required")
	}
}

func writeJSON(w io.Writer, resp []byte, compact bool) error {
	var buf bytes.Buffer
	if compact {
		buf.Write(resp)
	} else if err := json.Indent(&buf, resp, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
