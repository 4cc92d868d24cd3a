package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountCategory string

const (
	AccountCategoryRevenue             AccountCategory = "REVENUE"
	AccountCategoryExpense             AccountCategory = "EXPENSE"
	AccountCategoryAsset               AccountCategory = "ASSET"
	AccountCategoryLiability           AccountCategory = "LIABILITY"
	AccountCategoryEquity              AccountCategory = "EQUITY"
	AccountCategoryNonOperating        AccountCategory = "NON_OPERATING"
	AccountCategoryNonOperatingRevenue AccountCategory = "NON_OPERATING_REVENUE"
	AccountCategoryNonOperatingExpense AccountCategory = "NON_OPERATING_EXPENSE"
)

type BalanceSide string

const (
	BalanceSideDebit       BalanceSide = "DR"
	BalanceSideCredit      BalanceSide = "CR"
	BalanceSideDebitCredit BalanceSide = "DRCR" // mixed accounts only
)

var categoryInfo = map[AccountCategory]struct {
	desc string
	side BalanceSide
}{
	AccountCategoryRevenue:             {"Revenue", BalanceSideCredit},
	AccountCategoryExpense:             {"Expense", BalanceSideDebit},
	AccountCategoryAsset:               {"Asset", BalanceSideDebit},
	AccountCategoryLiability:           {"Liability", BalanceSideCredit},
	AccountCategoryEquity:              {"Equity", BalanceSideCredit},
	AccountCategoryNonOperating:        {"Non-Operating Income or Expenses", BalanceSideDebitCredit},
	AccountCategoryNonOperatingRevenue: {"Non-Operating Revenue", BalanceSideCredit},
	AccountCategoryNonOperatingExpense: {"Non-Operating Expenses", BalanceSideDebit},
}

func (c AccountCategory) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Description returns the human readable category name.
func (c AccountCategory) Description() string {
	return categoryInfo[c].desc
}

// DefaultBalanceSide is the side that increases an account of this category
// when nothing more specific is known.
func (c AccountCategory) DefaultBalanceSide() BalanceSide {
	return categoryInfo[c].side
}

func (s BalanceSide) Valid() bool {
	switch s {
	case BalanceSideDebit, BalanceSideCredit, BalanceSideDebitCredit:
		return true
	}
	return false
}

type ChartOfAccount struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	UserDetails Digest    `json:"user_details"`
}

type Ledger struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	ChartOfAccountID uuid.UUID `json:"chart_of_account_id"`
	Created          time.Time `json:"created"`
	UserDetails      Digest    `json:"user_details"`
}

// LedgerAccount is a resolved account. Category and BalanceSide always hold
// real values; the parent is referenced by id and loaded on demand.
type LedgerAccount struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	LedgerID         uuid.UUID       `json:"ledger_id"`
	ChartOfAccountID uuid.UUID       `json:"chart_of_account_id"`
	ParentID         *uuid.UUID      `json:"parent_id,omitempty"`
	BalanceSide      BalanceSide     `json:"balance_side"`
	Category         AccountCategory `json:"category"`
	Created          time.Time       `json:"created"`
	UserDetails      Digest          `json:"user_details"`
}

// NewLedgerAccount is the creation input for a ledger account. A nil Category
// or BalanceSide is resolved from the parent or the category defaults.
type NewLedgerAccount struct {
	Name             string           `json:"name"`
	LedgerID         uuid.UUID        `json:"ledger_id"`
	ChartOfAccountID uuid.UUID        `json:"chart_of_account_id"`
	ParentID         *uuid.UUID       `json:"parent_id,omitempty"`
	Category         *AccountCategory `json:"category,omitempty"`
	BalanceSide      *BalanceSide     `json:"balance_side,omitempty"`
	Names            []Named          `json:"names,omitempty"`
}
