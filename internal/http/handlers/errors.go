package handlers

// Error codes of the ErrorResponse envelope. Clients branch on these, so
// they never change once published.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeNotACommand  = "not_a_command"
	ErrCodeReportFailed = "report_failed"
	ErrCodeUpdateFailed = "update_failed"
)
