package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PostingType string

const (
	PostingTypeBusinessTx       PostingType = "BUSINESS_TX"
	PostingTypeAdjustmentTx     PostingType = "ADJUSTMENT_TX"
	PostingTypeBalanceStmt      PostingType = "BALANCE_STMT"
	PostingTypePnLStmt          PostingType = "PNL_STMT"
	PostingTypeBalanceSheetStmt PostingType = "BALANCE_SHEET_STMT"
	PostingTypeLedgerClosing    PostingType = "LEDGER_CLOSING"
)

func (t PostingType) Valid() bool {
	switch t {
	case PostingTypeBusinessTx, PostingTypeAdjustmentTx, PostingTypeBalanceStmt,
		PostingTypePnLStmt, PostingTypeBalanceSheetStmt, PostingTypeLedgerClosing:
		return true
	}
	return false
}

type PostingStatus string

const (
	PostingStatusDeferred  PostingStatus = "DEFERRED"
	PostingStatusPosted    PostingStatus = "POSTED"
	PostingStatusProposed  PostingStatus = "PROPOSED"
	PostingStatusSimulated PostingStatus = "SIMULATED"
	PostingStatusTax       PostingStatus = "TAX"
	PostingStatusUnposted  PostingStatus = "UNPOSTED"
	PostingStatusCancelled PostingStatus = "CANCELLED"
	PostingStatusOther     PostingStatus = "OTHER"
)

func (s PostingStatus) Valid() bool {
	switch s {
	case PostingStatusDeferred, PostingStatusPosted, PostingStatusProposed, PostingStatusSimulated,
		PostingStatusTax, PostingStatusUnposted, PostingStatusCancelled, PostingStatusOther:
		return true
	}
	return false
}

// HashRecord links a posting into its ledger's hash chain.
type HashRecord struct {
	AntecedentID   *uuid.UUID `json:"antecedent_id,omitempty"`
	AntecedentHash Digest     `json:"antecedent_hash,omitempty"`
	Hash           Digest     `json:"hash,omitempty"`
}

// Posting is one balanced, append-only financial event. User, operation and
// source references are digests so no raw identifiers are stored.
type Posting struct {
	ID               uuid.UUID     `json:"id"`
	RecordUser       Digest        `json:"record_user"`
	RecordTime       time.Time     `json:"record_time"`
	OperationID      Digest        `json:"operation_id"`
	OperationTime    time.Time     `json:"operation_time"`
	OperationType    Digest        `json:"operation_type"`
	OperationDetails Digest        `json:"operation_details,omitempty"`
	OperationSource  Digest        `json:"operation_source,omitempty"`
	PostingTime      time.Time     `json:"posting_time"`
	Type             PostingType   `json:"posting_type"`
	Status           PostingStatus `json:"posting_status"`
	LedgerID         uuid.UUID     `json:"ledger_id"`
	ValueTime        *time.Time    `json:"value_time,omitempty"`
	Lines            []PostingLine `json:"lines"`
	DiscardedID      *uuid.UUID    `json:"discarded_id,omitempty"`
	DiscardedTime    *time.Time    `json:"discarded_time,omitempty"`
	DiscardingID     *uuid.UUID    `json:"discarding_id,omitempty"`
	HashRecord
}

// PostingLine is one leg of a posting. Operation and posting attributes are
// copied from the parent posting for querying.
type PostingLine struct {
	ID               uuid.UUID       `json:"id"`
	PostingID        uuid.UUID       `json:"posting_id"`
	AccountID        uuid.UUID       `json:"account_id"`
	DebitAmount      decimal.Decimal `json:"debit_amount"`
	CreditAmount     decimal.Decimal `json:"credit_amount"`
	Details          Digest          `json:"details,omitempty"`
	SrcAccount       Digest          `json:"src_account,omitempty"`
	BaseLine         *uuid.UUID      `json:"base_line,omitempty"`
	SubOprSrcID      Digest          `json:"sub_opr_src_id,omitempty"`
	RecordTime       time.Time       `json:"record_time"`
	OperationID      Digest          `json:"operation_id"`
	OperationSource  Digest          `json:"operation_source,omitempty"`
	PostingTime      time.Time       `json:"posting_time"`
	PostingType      PostingType     `json:"posting_type"`
	PostingStatus    PostingStatus   `json:"posting_status"`
	Hash             Digest          `json:"hash,omitempty"`
	AdditionalInfo   *string         `json:"additional_information,omitempty"`
	DiscardedTime    *time.Time      `json:"discarded_time,omitempty"`
}

// Validate checks that the line carries exactly one non-negative amount.
func (l PostingLine) Validate() error {
	if l.AccountID == uuid.Nil {
		return ValidationError{Err: ErrInvalidPostingLine, Field: "account_id", Message: "is required"}
	}
	if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
		return ValidationError{Err: ErrInvalidPostingLine, Field: "amount", Message: "must not be negative"}
	}
	if l.DebitAmount.IsZero() == l.CreditAmount.IsZero() {
		return ValidationError{Err: ErrInvalidPostingLine, Field: "amount", Message: "exactly one of debit or credit must be non-zero"}
	}
	if l.AdditionalInfo != nil && len(*l.AdditionalInfo) > 1024 {
		return ValidationError{Err: ErrInvalidPostingLine, Field: "additional_information", Message: "exceeds 1024 characters"}
	}
	return nil
}

// Totals sums debit and credit amounts over all lines.
func (p *Posting) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range p.Lines {
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
	}
	return debit, credit
}

// Balanced reports whether debits equal credits exactly.
func (p *Posting) Balanced() bool {
	debit, credit := p.Totals()
	return debit.Equal(credit)
}

// Discarded reports whether a later posting superseded this one.
func (p *Posting) Discarded() bool {
	return p.DiscardingID != nil
}

// ChainBreak describes one posting whose stored chain data does not verify.
type ChainBreak struct {
	PostingID uuid.UUID `json:"posting_id"`
	Reason    string    `json:"reason"`
}

type ChainReport struct {
	LedgerID uuid.UUID    `json:"ledger_id"`
	Checked  int          `json:"checked"`
	Broken   []ChainBreak `json:"broken,omitempty"`
}

func (r *ChainReport) Intact() bool {
	return len(r.Broken) == 0
}

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// PageRequest selects a window of an ordered listing.
type PageRequest struct {
	Limit  int
	Offset int
}

// Normalize fills the default size and caps it at MaxPageSize.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Limit < 0 {
		return p, ValidationError{Err: ErrInvalidInput, Field: "limit", Message: "must not be negative"}
	}
	if p.Offset < 0 {
		return p, ValidationError{Err: ErrInvalidInput, Field: "offset", Message: "must not be negative"}
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p, nil
}

type PostingLinePage struct {
	Lines  []PostingLine `json:"lines"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
