package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type ContainerType string

const (
	ContainerTypeChartOfAccount ContainerType = "CHART_OF_ACCOUNT"
	ContainerTypeLedger         ContainerType = "LEDGER"
	ContainerTypeLedgerAccount  ContainerType = "LEDGER_ACCOUNT"
)

func (c ContainerType) Valid() bool {
	switch c {
	case ContainerTypeChartOfAccount, ContainerTypeLedger, ContainerTypeLedgerAccount:
		return true
	}
	return false
}

var languagePattern = regexp.MustCompile(`^[a-z]{2}$`)

// Named attaches a display name and descriptions to a chart of accounts,
// ledger or ledger account. Context scopes name uniqueness.
type Named struct {
	ID            uuid.UUID     `json:"id"`
	Container     uuid.UUID     `json:"container"`
	Context       uuid.UUID     `json:"context"`
	Name          string        `json:"name"`
	Language      string        `json:"language"`
	Created       time.Time     `json:"created"`
	UserDetails   Digest        `json:"user_details"`
	ShortDesc     *string       `json:"short_desc,omitempty"`
	LongDesc      *string       `json:"long_desc,omitempty"`
	ContainerType ContainerType `json:"container_type"`
}

func (n Named) Validate() error {
	switch {
	case n.Name == "":
		return ValidationError{Err: ErrInvalidInput, Field: "name", Message: "is required"}
	case len(n.Name) > 255:
		return ValidationError{Err: ErrInvalidInput, Field: "name", Message: "exceeds 255 characters"}
	case !languagePattern.MatchString(n.Language):
		return ValidationError{Err: ErrInvalidInput, Field: "language", Message: "must be a two letter lower-case code"}
	case n.ShortDesc != nil && len(*n.ShortDesc) > 1024:
		return ValidationError{Err: ErrInvalidInput, Field: "short_desc", Message: "exceeds 1024 characters"}
	case n.LongDesc != nil && len(*n.LongDesc) > 2048:
		return ValidationError{Err: ErrInvalidInput, Field: "long_desc", Message: "exceeds 2048 characters"}
	case !n.ContainerType.Valid():
		return ValidationError{Err: ErrInvalidInput, Field: "container_type", Message: "is unknown"}
	}
	return nil
}
