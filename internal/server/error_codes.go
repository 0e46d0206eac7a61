package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeMissingRequired = 1004
	ErrCodeInvalidPath     = 1005
	ErrCodeInvalidFile     = 1006
	ErrCodeMalformedScores = 1007

	// Domain state (2xxx)
	ErrCodeNodeNotFound     = 2001
	ErrCodeNotFolder        = 2002
	ErrCodeNodeExists       = 2101
	ErrCodeConflict         = 2102
	ErrCodeAssetNotImported = 2201

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeImportFailed = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeNodeNotFound
	case 409:
		return ErrCodeConflict
	case 422:
		return ErrCodeAssetNotImported
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
