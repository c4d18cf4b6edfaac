package ldap

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu     sync.RWMutex
	pkgLogger logrus.FieldLogger = defaultLogger()
)

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLogger replaces the package-wide logger the connection pump uses for
// its diagnostics (responses for unknown or cancelled message ids,
// messages dropped at a full subscriber, unsolicited disconnection
// notices). It is safe to call
// concurrently with an active Client, though in-flight log calls may still
// use the previous logger.
func SetLogger(l logrus.FieldLogger) {
	logMu.Lock()
	defer logMu.Unlock()
	pkgLogger = l
}

func logger() logrus.FieldLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return pkgLogger
}
