package httputil

// Machine-readable error codes returned alongside human-readable messages.
// Clients branch on these for field-specific messaging.
const (
	CodeMissingEmail       = "MISSING_EMAIL"
	CodeMissingPassword    = "MISSING_PASSWORD"
	CodeMissingName        = "MISSING_NAME"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"

	CodeMissingSessionToken = "MISSING_SESSION_TOKEN"
	CodeMissingAuthHeader   = "MISSING_AUTH_HEADER"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeInvalidSession      = "INVALID_SESSION"
	CodeExpiredSession      = "EXPIRED_SESSION"
	CodeSessionUpdateFailed = "SESSION_UPDATE_FAILED"

	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"

	CodePollNotFound    = "POLL_NOT_FOUND"
	CodePollClosed      = "POLL_CLOSED"
	CodeAlreadyVoted    = "ALREADY_VOTED"
	CodeInvalidChoice   = "INVALID_CHOICE"
	CodeMissingQuestion = "MISSING_QUESTION"
	CodeNotPollOwner    = "NOT_POLL_OWNER"
	CodeInvalidWeights  = "INVALID_WEIGHTS"
)
