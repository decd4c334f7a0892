package model

import "errors"

// ErrWatchDirNotFound is returned by the monitor when the configured watch
// directory does not exist at start time.
var ErrWatchDirNotFound = errors.New("watch directory not found")
