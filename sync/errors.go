package sync

import "errors"

// protocolError marks an error that should cause the peer to be disabled
// for this session (spec.md §7: "Protocol violation"). Handlers test for
// this with errors.As instead of a type switch at every call site.
type protocolError struct {
	msg string
}

func (e *protocolError) Error() string { return e.msg }
func (e *protocolError) Disabling() bool { return true }

func newProtocolError(msg string) error {
	return &protocolError{msg: msg}
}

// uselessError marks a peer as useless for the current round only
// (spec.md §4.2, §7) rather than disabled outright.
type uselessError struct {
	msg string
}

func (e *uselessError) Error() string { return e.msg }
func (e *uselessError) Useless() bool { return true }

func newUselessError(msg string) error {
	return &uselessError{msg: msg}
}

// disabler is implemented by errors that should hard-disable the
// originating peer.
type disabler interface {
	Disabling() bool
}

// uselessMarker is implemented by errors that should only deactivate the
// peer for the current sync round.
type uselessMarker interface {
	Useless() bool
}

// IsDisabling reports whether err should cause the peer to be disabled.
func IsDisabling(err error) bool {
	var d disabler
	if errors.As(err, &d) {
		return d.Disabling()
	}
	return false
}

// IsUseless reports whether err should cause the peer to be deactivated
// for the current round only.
func IsUseless(err error) bool {
	var u uselessMarker
	if errors.As(err, &u) {
		return u.Useless()
	}
	return false
}

var (
	errPeerNotRegistered  = errors.New("sync: peer not registered")
	errUnexpectedResponse = errors.New("sync: response did not match outstanding request")
	errMalformedPacket    = errors.New("sync: malformed packet")
	errNoPeers            = errors.New("sync: no peers available")

	errBadGenesis         = newProtocolError("sync: genesis hash mismatch")
	errBadNetwork         = newProtocolError("sync: network id mismatch")
	errUnsupportedVersion = newProtocolError("sync: unsupported protocol version")
	errForkMismatch       = newProtocolError("sync: fork header mismatch")
	errBadManifest        = newProtocolError("sync: unsupported snapshot manifest version")
	errInvalidHeaders     = newProtocolError("sync: invalid header batch")
	errInvalidBody        = newProtocolError("sync: invalid body")
	errInvalidChunk       = newProtocolError("sync: invalid snapshot chunk")
	errStaleNewBlock      = newProtocolError("sync: new block too far behind our last imported block")

	errUselessHeaders = newUselessError("sync: useless header response")
)
