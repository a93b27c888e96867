// Package controller holds the stateful flows that sit between a user
// interface and the backend client: run submission, saved graphs, dataset
// management, the analysis monitor and the session that ties them to a
// pipeline document.
//
// Every controller is safe for concurrent use. Network calls are made
// without holding a controller's lock; results that arrive after the user
// has moved on (a newer selection, a cleared view) are discarded and
// reported as ErrSuperseded.
package controller

import (
	stderrors "errors"
)

// ErrSuperseded is returned when a response arrived after its target was
// replaced, so it was not applied
var ErrSuperseded = stderrors.New("response superseded by a newer selection")
