package api

import "fmt"

// Numeric error codes the server reports in ErrorResponse.ErrorCode that
// callers branch on.
const (
	ErrorCodeInvalidFile      = 1006
	ErrorCodeMalformedScores  = 1007
	ErrorCodeNodeNotFound     = 2001
	ErrorCodeAssetNotImported = 2201
)

// APIError is the decoded ErrorResponse of a failed request.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
	// RequestID is the server's X-Request-Id for the failed request.
	RequestID string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("ugcmigrate api: status %d", e.Status)
	default:
		return "ugcmigrate api: request failed"
	}
}

// NeedsAdmin reports whether the request was refused for lack of a valid
// admin token.
func (e *APIError) NeedsAdmin() bool {
	return e != nil && (e.Code == "unauthorized" || e.Code == "forbidden")
}

// NotImported reports whether an asset import produced no node.
func (e *APIError) NotImported() bool {
	return e != nil && (e.ErrorCode == ErrorCodeAssetNotImported || e.Code == "not_imported")
}

// RejectedScores reports whether a score upload was refused before or
// while parsing its JSON document.
func (e *APIError) RejectedScores() bool {
	return e != nil && (e.ErrorCode == ErrorCodeMalformedScores || e.ErrorCode == ErrorCodeInvalidFile)
}

// FromOtherService reports whether the response did not carry the
// ugcmigrate error envelope at all.
func (e *APIError) FromOtherService() bool {
	return e != nil && e.Code == "" && e.ErrorCode == 0
}
