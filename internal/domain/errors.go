package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDb            = errors.New("database error")
	ErrNotEnoughInfo = errors.New("not enough information provided")
	ErrInvalidInput  = errors.New("invalid input")

	ErrChartOfAccountNotFound = errors.New("chart of account not found")
	ErrLedgerNotFound         = errors.New("ledger not found")
	ErrLedgerAccountNotFound  = errors.New("ledger account not found")
	ErrPostingNotFound        = errors.New("posting not found")
	ErrStatementNotFound      = errors.New("statement not found")

	ErrChartOfAccountMismatch = errors.New("chart of account mismatch")
	ErrLedgerMismatch         = errors.New("ledger account does not belong to ledger")
	ErrNoCategory             = errors.New("no category defined for account")
	ErrDuplicateName          = errors.New("name already used in this context")

	ErrDoubleEntry        = errors.New("double entry error: debits do not equal credits")
	ErrInvalidPostingLine = errors.New("invalid posting line")
	ErrBaselineTime       = errors.New("posting time is before last closing")
	ErrPostingTimeMissing = errors.New("posting time is missing")

	ErrStatementAlreadyClosed = errors.New("statement is already closed")
	ErrPeriodClosed           = errors.New("account period is already closed")
	ErrStatementStale         = errors.New("statement no longer matches the account's posting lines")

	ErrHashMismatch = errors.New("hash mismatch")
)

// ValidationError reports which field broke a domain rule.
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Err, e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// DbError wraps a storage failure so that errors.Is(err, ErrDb) holds while
// the cause remains inspectable.
func DbError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDb) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrDb, op, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrChartOfAccountNotFound) ||
		errors.Is(err, ErrLedgerNotFound) ||
		errors.Is(err, ErrLedgerAccountNotFound) ||
		errors.Is(err, ErrPostingNotFound) ||
		errors.Is(err, ErrStatementNotFound)
}

// IsValidation reports domain-rule violations detected before any write.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrChartOfAccountMismatch) ||
		errors.Is(err, ErrLedgerMismatch) ||
		errors.Is(err, ErrNoCategory) ||
		errors.Is(err, ErrDoubleEntry) ||
		errors.Is(err, ErrInvalidPostingLine) ||
		errors.Is(err, ErrBaselineTime) ||
		errors.Is(err, ErrPostingTimeMissing)
}

// IsConflict reports state conflicts such as re-closing a statement.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStatementAlreadyClosed) ||
		errors.Is(err, ErrPeriodClosed) ||
		errors.Is(err, ErrStatementStale) ||
		errors.Is(err, ErrDuplicateName)
}
