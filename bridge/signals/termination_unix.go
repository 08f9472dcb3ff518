//go:build unix

package signals

import (
	"os"
	"syscall"
)

// Termination is the default set of signals that trigger cleanup.
var Termination = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2}
