//go:build !unix

package signals

import "os"

// Termination is the default set of signals that trigger cleanup.
var Termination = []os.Signal{os.Interrupt}
