// Package config loads adapter options from the process environment, the
// way a Lambda function is usually configured.
package config

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	kitlogrus "github.com/a69/apig.go/log/logrus"
	kitzap "github.com/a69/apig.go/log/zap"
	"github.com/a69/apig.go/transport"
	"github.com/a69/apig.go/transport/awslambda"
)

// EnvPrefix starts the name of every environment variable read by Load.
const EnvPrefix = "APIG"

// Log formats understood by NewLogger.
const (
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
	FormatLogrus = "logrus"
	FormatZap    = "zap"
)

// Config holds the adapter configuration.
type Config struct {
	// BinarySupport is nil when APIG_BINARY_SUPPORT is unset, leaving the
	// per event format default in place.
	BinarySupport *bool

	// NonBinaryContentTypePrefixes is nil when
	// APIG_NON_BINARY_CONTENT_TYPE_PREFIXES is unset. A value holding only
	// separators, such as ",", yields an empty list.
	NonBinaryContentTypePrefixes []string

	LogFormat string
	LogLevel  string
}

// Load reads the configuration from the environment. The given .env files
// are loaded first, without overriding variables already set; missing files
// are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("LOG_FORMAT", FormatLogfmt)
	v.SetDefault("LOG_LEVEL", "info")

	c := &Config{
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if s := v.GetString("BINARY_SUPPORT"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Wrapf(err, "%s_BINARY_SUPPORT", EnvPrefix)
		}
		c.BinarySupport = &b
	}

	if s := v.GetString("NON_BINARY_CONTENT_TYPE_PREFIXES"); s != "" {
		c.NonBinaryContentTypePrefixes = []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.NonBinaryContentTypePrefixes = append(c.NonBinaryContentTypePrefixes, p)
			}
		}
	}

	return c, nil
}

// HandlerOptions returns the awslambda options described by c. Errors the
// handler does not return to the runtime are logged to logger.
func (c *Config) HandlerOptions(logger log.Logger) []awslambda.HandlerOption {
	options := []awslambda.HandlerOption{
		awslambda.HandlerErrorHandler(transport.NewLogErrorHandler(level.Error(logger))),
	}
	if c.BinarySupport != nil {
		options = append(options, awslambda.BinarySupport(*c.BinarySupport))
	}
	if c.NonBinaryContentTypePrefixes != nil {
		options = append(options, awslambda.NonBinaryContentTypePrefixes(c.NonBinaryContentTypePrefixes...))
	}
	return options
}

// Logger returns a logger writing to w in the configured format, filtered
// to the configured level.
func (c *Config) Logger(w io.Writer) (log.Logger, error) {
	logger, err := NewLogger(c.LogFormat, w)
	if err != nil {
		return nil, err
	}
	allow, err := levelOption(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return level.NewFilter(logger, allow), nil
}

// NewLogger returns a go-kit logger writing to w in the given format.
func NewLogger(format string, w io.Writer) (log.Logger, error) {
	var logger log.Logger
	switch format {
	case FormatLogfmt, "":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case FormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	case FormatLogrus:
		l := logrus.New()
		l.Out = w
		l.Level = logrus.DebugLevel
		l.Formatter = &logrus.JSONFormatter{}
		return kitlogrus.NewLogger(l), nil
	case FormatZap:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zap.DebugLevel,
		)
		return kitzap.NewZapSugarLogger(zap.New(core), zapcore.InfoLevel), nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}

func levelOption(s string) (level.Option, error) {
	switch s {
	case "debug":
		return level.AllowDebug(), nil
	case "info", "":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	case "none":
		return level.AllowNone(), nil
	default:
		return nil, errors.Errorf("unknown log level %q", s)
	}
}
