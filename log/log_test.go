package log_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"trpc.group/trpc-go/tasio/log"
)

func TestLog(t *testing.T) {
	old := log.Default
	defer func() { log.Default = old }()

	l := &countLogger{}
	log.Default = l
	log.Debug("test")
	log.Debugf("test %d", 1)
	log.Info("test")
	log.Infof("test %d", 1)
	log.Warn("test")
	log.Warnf("test %d", 1)
	log.Error("test")
	log.Errorf("test %d", 1)
	assert.Equal(t, 8, l.n)
}

func TestSetLevel(t *testing.T) {
	log.SetLevel(zapcore.DebugLevel)
	log.Debugf("debug is visible now")
	log.SetLevel(zapcore.InfoLevel)
}

type countLogger struct{ n int }

func (l *countLogger) Debug(args ...any)                 { l.n++ }
func (l *countLogger) Debugf(format string, args ...any) { l.n++ }
func (l *countLogger) Info(args ...any)                  { l.n++ }
func (l *countLogger) Infof(format string, args ...any)  { l.n++ }
func (l *countLogger) Warn(args ...any)                  { l.n++ }
func (l *countLogger) Warnf(format string, args ...any)  { l.n++ }
func (l *countLogger) Error(args ...any)                 { l.n++ }
func (l *countLogger) Errorf(format string, args ...any) { l.n++ }
