package gatekeeper

import (
	"fmt"
	"log"
)

func logWarning(format string, v ...interface{}) {
	log.Printf(fmt.Sprintf("gatekeeper: warning: %s", format), v...)
}

// LogWarning is called by this library when a handler misbehaves (faults,
// panics or yields without a deadline). The connection is unaffected; the
// faulty handler counts as having declined.
//
// The default implementation uses [log.Print] to output the warning.
// You can re-assign LogWarning to something more suitable for your
// application. But do not assign nil to it.
var LogWarning = logWarning
