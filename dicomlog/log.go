// Package dicomlog provides leveled logging for warnings the dicomflow
// parser and transforms emit without aborting the stream (spec §7):
// unexpected elements inside fragments, missing FMI transfer syntax,
// oversize transfer syntax UIDs, and nonzero delimitation lengths.
package dicomlog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Level controls verbosity. The larger the value, the more verbose.
// Setting it to -1 disables logging completely.
var level = int32(0)

// SetLevel sets the log verbosity. Thread safe.
func SetLevel(l int) {
	atomic.StoreInt32(&level, int32(l))
}

// Level returns the current log verbosity. Thread safe.
func Level() int {
	return int(atomic.LoadInt32(&level))
}

// Warnf logs a warning if the current level is >= 0.
func Warnf(format string, args ...interface{}) {
	if Level() >= 0 {
		logrus.Warnf(format, args...)
	}
}

// Vprintf logs at verbosity l: "if level >= l { log.Printf(...) }".
func Vprintf(l int, format string, args ...interface{}) {
	if Level() >= l {
		logrus.Printf(format, args...)
	}
}
