package apperr

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeAlreadyFriends     Code = "ALREADY_FRIENDS"
	CodeRequestPending     Code = "REQUEST_PENDING"
	CodeAttemptsExhausted  Code = "ATTEMPTS_EXHAUSTED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNotPending         Code = "NOT_PENDING"
	CodeNotFriends         Code = "NOT_FRIENDS"
	CodeEmptyParticipants  Code = "EMPTY_PARTICIPANTS"
	CodeStoreUnavailable   Code = "STORE_UNAVAILABLE"
	CodeUniquenessConflict Code = "UNIQUENESS_CONFLICT"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInternal           Code = "INTERNAL"
)
