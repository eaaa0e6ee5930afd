package pipeline

// Outcome classifies how a pipeline run ended. Every stage maps its failure
// onto exactly one category, so callers can branch exhaustively instead of
// intercepting exceptions at the top.
type Outcome int

const (
	// OutcomeSuccess: the note reached the CRM.
	OutcomeSuccess Outcome = iota
	// OutcomeSkipped: nothing to do (filtered, deduped, or message gone).
	OutcomeSkipped
	// OutcomeUserError: the user must fix something (e.g. channel name).
	OutcomeUserError
	// OutcomePermissionError: a platform lookup was rejected, likely a
	// missing scope.
	OutcomePermissionError
	// OutcomeTransientError: an upstream call failed; re-adding the
	// reaction retries.
	OutcomeTransientError
	// OutcomeInternalError: a programming error, caught and logged.
	OutcomeInternalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUserError:
		return "user_error"
	case OutcomePermissionError:
		return "permission_error"
	case OutcomeTransientError:
		return "transient_error"
	case OutcomeInternalError:
		return "internal_error"
	}
	return "unknown"
}

// Result is the terminal state of one pipeline run.
type Result struct {
	Outcome Outcome
	// Reason is set for skipped runs.
	Reason string
	// Err is set for every error outcome.
	Err error
}
