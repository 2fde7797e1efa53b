package stackdepot

import "github.com/cihub/seelog"

// Logger is the destination for statistics reports. The interface is
// deliberately seelog-shaped so that any seelog.LoggerInterface satisfies
// it directly, but any implementation with a printf-style Infof works.
//
// The cache only logs outside of its internal locks and never more than
// once per save, so implementations do not need to be reentrant with
// respect to the cache.
type Logger interface {
	Infof(format string, params ...interface{})
}

// defaultLogger returns the process-wide seelog logger. Hosts that route
// their diagnostics elsewhere pass their own Logger through Options.
func defaultLogger() Logger {
	return seelog.Default
}

// nopLogger discards everything. Used by tests that are not about logging.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
