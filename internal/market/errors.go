package market

import "fmt"

type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeNotListed         ErrorCode = "NOT_LISTED"
	CodeSelfPurchase      ErrorCode = "SELF_PURCHASE"
	CodeNoTeam            ErrorCode = "NO_TEAM"
	CodeRosterFull        ErrorCode = "ROSTER_FULL"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeStorageFailure    ErrorCode = "STORAGE_FAILURE"
)

// Error is a business-rule rejection carrying a stable code and a
// human message. Rejections never partially apply their effect.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Retryable reports whether the caller may usefully retry: true only
// for losing a purchase race or an infrastructure fault.
func (e *Error) Retryable() bool {
	return e.Code == CodeConflict || e.Code == CodeStorageFailure
}

var (
	ErrPlayerNotFound     = &Error{Code: CodeNotFound, Message: "player not found"}
	ErrNotYourPlayer      = &Error{Code: CodeForbidden, Message: "you can only manage your own players"}
	ErrSquadTooSmall      = &Error{Code: CodeInvalidState, Message: "team must keep more than 15 players outside the transfer market"}
	ErrNotListed          = &Error{Code: CodeNotListed, Message: "player is not available for transfer"}
	ErrSelfPurchase       = &Error{Code: CodeSelfPurchase, Message: "cannot buy your own player"}
	ErrNoTeam             = &Error{Code: CodeNoTeam, Message: "buyer has no team yet"}
	ErrRosterFull         = &Error{Code: CodeRosterFull, Message: "team cannot have more than 25 players"}
	ErrInsufficientFunds  = &Error{Code: CodeInsufficientFunds, Message: "insufficient budget"}
	ErrPurchaseInFlight   = &Error{Code: CodeConflict, Message: "player purchase already in progress"}
	ErrTransferConflict   = &Error{Code: CodeConflict, Message: "transfer lost a concurrent update, try again"}
	ErrInvalidAskingPrice = &Error{Code: CodeInvalidState, Message: "asking price must be a positive integer"}
)
