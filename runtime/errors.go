package runtime

// FaultKind classifies a host-side failure for diagnostics. The kind never
// crosses into the sandbox; it exists for logging and metrics only.
type FaultKind uint8

const (
	// FaultStorage covers inconsistent trie state: unparsable physical
	// keys, failed low-level reads, stored data violating the key schema.
	// Possible evidence of corruption or tampering.
	FaultStorage FaultKind = iota + 1
	// FaultValidator covers failures of the epoch information provider.
	FaultValidator
)

func (k FaultKind) String() string {
	switch k {
	case FaultStorage:
		return "storage"
	case FaultValidator:
		return "validator"
	default:
		return "unknown"
	}
}

// opaqueMessage is the only failure text sandboxed code ever observes.
const opaqueMessage = "contract host operation failed"

// HostError is the single failure type returned across the sandbox boundary.
// Its message is fixed regardless of cause and it deliberately has no Unwrap
// method, so neither string matching nor errors.Is/As lets contract code
// branch on internal failure shape. The original cause stays reachable
// host-side through Kind and Internal.
type HostError struct {
	kind  FaultKind
	cause error
}

func newHostError(kind FaultKind, cause error) *HostError {
	return &HostError{kind: kind, cause: cause}
}

// Error implements error with a fixed opaque message.
func (e *HostError) Error() string { return opaqueMessage }

// Kind reports the internal failure class. Host-side diagnostics only; the
// sandbox never sees this value.
func (e *HostError) Kind() FaultKind { return e.kind }

// Internal returns the wrapped cause. Host-side diagnostics only; it must
// not be surfaced to contract code.
func (e *HostError) Internal() error { return e.cause }
