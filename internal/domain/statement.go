package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StmtStatus string

const (
	StmtStatusSimulated StmtStatus = "SIMULATED"
	StmtStatusClosed    StmtStatus = "CLOSED"
)

// PostingTrace records that a posting line was folded into a statement.
type PostingTrace struct {
	ID           uuid.UUID       `json:"id"`
	TgtPstID     uuid.UUID       `json:"tgt_pst_id"`
	SrcPstTime   time.Time       `json:"src_pst_time"`
	SrcPstID     uuid.UUID       `json:"src_pst_id"`
	SrcOprID     Digest          `json:"src_opr_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	SrcPstHash   Digest          `json:"src_pst_hash,omitempty"`
}

// AccountStmt is the state of one ledger account at PostingTime. Simulated
// statements may be recomputed at will; Closed ones are backed by a posting.
type AccountStmt struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	YoungestPst *PostingTrace   `json:"youngest_pst,omitempty"`
	LatestPst   *PostingTrace   `json:"latest_pst,omitempty"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	PostingID   *uuid.UUID      `json:"posting_id,omitempty"`
	Posting     *Posting        `json:"posting,omitempty"`
	PostingTime time.Time       `json:"pst_time"`
	Status      StmtStatus      `json:"stmt_status"`
	SeqNbr      int32           `json:"stmt_seq_nbr"`
	BaselineID  *uuid.UUID      `json:"baseline_id,omitempty"`
}

func (s *AccountStmt) DebitBalance() decimal.Decimal {
	return s.TotalDebit.Sub(s.TotalCredit)
}

func (s *AccountStmt) CreditBalance() decimal.Decimal {
	return s.TotalCredit.Sub(s.TotalDebit)
}

// Balance returns the balance on the account's own balance side.
func (s *AccountStmt) Balance(side BalanceSide) decimal.Decimal {
	if side == BalanceSideCredit {
		return s.CreditBalance()
	}
	return s.DebitBalance()
}

func (s *AccountStmt) Closed() bool {
	return s.Status == StmtStatusClosed
}

// YoungestPstID and LatestPstID return the trace ids for storage.
func (s *AccountStmt) YoungestPstID() *uuid.UUID {
	if s.YoungestPst == nil {
		return nil
	}
	return &s.YoungestPst.ID
}

func (s *AccountStmt) LatestPstID() *uuid.UUID {
	if s.LatestPst == nil {
		return nil
	}
	return &s.LatestPst.ID
}
