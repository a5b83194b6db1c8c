package types

// ProtocolVersion selects the protocol rules in force for an invocation.
// The version is fixed for the lifetime of one invocation; behaviour that
// changed across upgrades (currently only the data-id composition) must
// dispatch on it so historical invocations stay byte-for-byte reproducible.
type ProtocolVersion uint32

const (
	// DataIDAnchorsVersion is the first protocol version whose data-id
	// composition folds the block anchors into the digest. Versions below
	// it derive ids from the action hash and counter alone.
	DataIDAnchorsVersion ProtocolVersion = 42

	// CurrentProtocolVersion is the latest protocol version understood by
	// this build.
	CurrentProtocolVersion ProtocolVersion = 47
)
