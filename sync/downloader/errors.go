package downloader

import "errors"

// errInvalid signals a validation failure in a downloaded batch — the
// caller (sync.Dispatcher) must disable the originating peer (spec.md §4.2).
var errInvalid = errors.New("downloader: invalid batch")

// errUseless signals a response that carried nothing useful. The caller
// counts it in Stats.UselessResponses; the peer is not deactivated and
// stays eligible for the next request.
var errUseless = errors.New("downloader: useless response")

// IsInvalid / IsUseless let the caller classify an error returned by
// Import* without depending on the package's unexported sentinels directly.
func IsInvalid(err error) bool { return errors.Is(err, errInvalid) }
func IsUseless(err error) bool { return errors.Is(err, errUseless) }
