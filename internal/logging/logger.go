// Package logging builds the logr logger bake hands to every pipeline stage.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// New returns a zap-backed logger at level writing to w, or stderr when w is nil.
// Resolver and executor details are logged at V(1) and only show up at debug.
func New(level string, w io.Writer) (logr.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	opts := crzap.Options{DestWriter: w}
	var zapLevel zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		opts.Development = true
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return logr.Logger{}, fmt.Errorf("unknown log level %q (expected debug, info, warn, or error)", level)
	}
	atomic := zap.NewAtomicLevelAt(zapLevel)
	opts.Level = &atomic
	return crzap.New(crzap.UseFlagOptions(&opts)).WithName("bake"), nil
}
