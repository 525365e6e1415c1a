// Package util has the package-level logging switch that signal and
// keyframe code uses when it has no instance to log through.
package util

import (
	"log"
	"os"
)

// Logging turns Logf on.  It starts out on when MORPHS_LOG is set to
// anything other than "" or "0".
var Logging = os.Getenv("MORPHS_LOG") != "" && os.Getenv("MORPHS_LOG") != "0"

// Logger is where Logf writes.
var Logger = log.New(os.Stderr, "morphs ", log.LstdFlags)

// Logf writes to Logger if Logging is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	Logger.Printf(format, args...)
}
