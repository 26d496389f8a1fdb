package schemas

import "errors"

// Sentinel errors forming the pipeline's caller-visible taxonomy. Provider
// and validation failures inside the enhancement pipeline are recovered
// locally and never reach a report caller.
var (
	// ErrNotFound indicates the referenced scan does not exist.
	ErrNotFound = errors.New("scan not found")

	// ErrForbidden indicates the caller does not own the referenced scan.
	ErrForbidden = errors.New("access to scan denied")

	// ErrNotReady indicates a report was requested before the scan reached a
	// report-eligible terminal state.
	ErrNotReady = errors.New("scan is not in a report-eligible state")

	// ErrIllegalTransition indicates a lifecycle transition outside the
	// defined state graph, or a transition attempted from a terminal state.
	ErrIllegalTransition = errors.New("illegal scan status transition")

	// ErrProviderUnavailable indicates no enhancement provider is configured
	// or the configured provider cannot be reached.
	ErrProviderUnavailable = errors.New("enhancement provider unavailable")

	// ErrProviderFailed indicates the provider accepted the request but
	// failed to produce a usable completion.
	ErrProviderFailed = errors.New("enhancement provider request failed")

	// ErrValidationRejected indicates generated text failed its sanity
	// bounds and was discarded.
	ErrValidationRejected = errors.New("generated enhancement rejected by validation")

	// ErrGenerationFailed indicates artifact synthesis itself failed. It is
	// surfaced to the caller and not retried.
	ErrGenerationFailed = errors.New("report artifact generation failed")

	// ErrPollTimeout indicates the tracking session exhausted its attempt
	// budget before the engine reported a terminal status. The external job
	// is not cancelled; its eventual result is simply never observed.
	ErrPollTimeout = errors.New("scan status polling timed out")
)
