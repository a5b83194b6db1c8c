package state

import "errors"

var (
	// ErrInconsistentState marks data returned by the backing trie that
	// violates the physical key schema. It is treated as evidence of
	// corruption or tampering, never as a recoverable condition.
	ErrInconsistentState = errors.New("state: inconsistent trie state")

	// ErrStaleValueRef is returned when a value reference is dereferenced
	// after its view has been mutated. References borrow storage owned by
	// the view and must be consumed before the next mutating operation.
	ErrStaleValueRef = errors.New("state: value reference outlived its view generation")

	// ErrIteratorInvalidated is returned by a prefix iterator whose view was
	// mutated while the iteration was open. Callers that need to mutate the
	// keys they iterate must collect first and mutate afterwards.
	ErrIteratorInvalidated = errors.New("state: view mutated during prefix iteration")
)
