package health

import "errors"

// ErrCheckTimeout is reported for a check that did not finish before the timeout.
var ErrCheckTimeout = errors.New("health: check timeout")

// NotReadyMessage is served while the readiness gate is closed.
const NotReadyMessage = "Server is not ready yet"
