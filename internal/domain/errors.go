package domain

import "errors"

var (
	// ErrValidation signals malformed input: unknown enum, out-of-range rating, disallowed tag.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized signals that the caller is not a party to the resource or not its recorder.
	ErrUnauthorized = errors.New("not authorized")
	// ErrConflict signals a duplicate resource (e.g. a second outcome for one introduction).
	ErrConflict = errors.New("conflict")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrTransientDependency signals a timeout or unavailable backing store on a path
	// that cannot degrade silently.
	ErrTransientDependency = errors.New("dependency unavailable")
	// ErrFeedbackRejected signals that the learning system refused an event; retrying won't help.
	ErrFeedbackRejected = errors.New("feedback rejected")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals that the token budget rejected an embedding call.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)

// KeyPrefix namespaces every key this service writes to the shared store.
const KeyPrefix = "matchloop:"
