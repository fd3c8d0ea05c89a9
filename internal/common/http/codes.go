package http

const (
	CodeUnknown          = "UNKNOWN"
	CodeInternal         = "INTERNAL_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeNotFound         = "NOT_FOUND"
	CodeRequestTooLarge  = "REQUEST_TOO_LARGE"
)
