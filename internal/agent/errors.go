package agent

import "errors"

// ErrSessionBusy is returned by Start when a session is already Running or
// Stopping, per spec.md §4.F's single-session-at-a-time enforcement.
var ErrSessionBusy = errors.New("a scan session is already active")

// ErrConfigurationInvalid is returned by Start when validation fails
// (required sections missing, no roots, etc).
var ErrConfigurationInvalid = errors.New("configuration invalid")

// ErrNoActiveSession is returned by Stop/Status when no session exists.
var ErrNoActiveSession = errors.New("no active scan session")
