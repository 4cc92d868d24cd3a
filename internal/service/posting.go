package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type postingService struct {
	repos repository.Repositories
	tx    repository.Transactor
}

func NewPostingService(repos repository.Repositories, tx repository.Transactor) PostingService {
	return &postingService{repos: repos, tx: tx}
}

// NewPosting validates a posting, links it into its ledger's hash chain and
// stores it with its lines. Every rule is checked before anything is written.
func (s *postingService) NewPosting(ctx context.Context, in *domain.Posting) (*domain.Posting, error) {
	logger.EnterMethod("postingService.NewPosting", "ledgerID", in.LedgerID, "lines", len(in.Lines))

	p := clonePosting(in)
	if err := s.validate(ctx, p); err != nil {
		logger.Warn("Rejected posting", "ledgerID", in.LedgerID, "error", err)
		logger.ExitMethodWithError("postingService.NewPosting", err, "ledgerID", in.LedgerID)
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		return appendPosting(ctx, repos, p)
	})
	if err != nil {
		logger.ExitMethodWithError("postingService.NewPosting", err, "ledgerID", in.LedgerID)
		return nil, err
	}

	logger.ExitMethod("postingService.NewPosting", "postingID", p.ID, "hash", p.Hash)
	return p, nil
}

func (s *postingService) validate(ctx context.Context, p *domain.Posting) error {
	if p.PostingTime.IsZero() {
		return domain.ErrPostingTimeMissing
	}
	switch {
	case p.LedgerID == uuid.Nil:
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "ledger_id", Message: "is required"}
	case p.OperationID.IsZero():
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "operation_id", Message: "is required"}
	case p.OperationType.IsZero():
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "operation_type", Message: "is required"}
	case p.RecordUser.IsZero():
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "record_user", Message: "is required"}
	case !p.Type.Valid():
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "posting_type", Message: "is unknown"}
	case !p.Status.Valid():
		return domain.ValidationError{Err: domain.ErrInvalidInput, Field: "posting_status", Message: "is unknown"}
	}
	for _, l := range p.Lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	if !p.Balanced() {
		debit, credit := p.Totals()
		return fmt.Errorf("%w: debit %s, credit %s", domain.ErrDoubleEntry, debit, credit)
	}

	if _, err := s.repos.Ledgers.GetByID(ctx, p.LedgerID); err != nil {
		return notFound(err, domain.ErrLedgerNotFound)
	}
	checked := make(map[uuid.UUID]bool, len(p.Lines))
	for _, l := range p.Lines {
		if checked[l.AccountID] {
			continue
		}
		checked[l.AccountID] = true
		account, err := s.repos.LedgerAccounts.GetByID(ctx, l.AccountID)
		if err != nil {
			return notFound(err, domain.ErrLedgerAccountNotFound)
		}
		if account.LedgerID != p.LedgerID {
			return fmt.Errorf("%w: account %s", domain.ErrLedgerMismatch, account.ID)
		}
	}
	return nil
}

// clonePosting copies the caller's posting with normalized times and defaults
// so the input is never mutated.
func clonePosting(in *domain.Posting) *domain.Posting {
	p := *in
	p.PostingTime = domain.Timestamp(in.PostingTime)
	p.OperationTime = domain.Timestamp(in.OperationTime)
	if p.OperationTime.IsZero() {
		p.OperationTime = p.PostingTime
	}
	p.ValueTime = domain.TimestampPtr(in.ValueTime)
	if p.Type == "" {
		p.Type = domain.PostingTypeBusinessTx
	}
	if p.Status == "" {
		p.Status = domain.PostingStatusPosted
	}
	p.Lines = append([]domain.PostingLine(nil), in.Lines...)
	return &p
}

// appendPosting assigns identity and record time, supersedes the live posting
// of the same operation, links the ledger's latest posting as antecedent,
// seals and stores p. It must run inside a transaction; the ledger lock keeps
// concurrent writers from linking to the same antecedent and from posting into
// a period a statement close is committing.
func appendPosting(ctx context.Context, repos repository.Repositories, p *domain.Posting) error {
	if err := repos.Ledgers.Lock(ctx, p.LedgerID); err != nil {
		return notFound(err, domain.ErrLedgerNotFound)
	}
	if err := checkOpenPeriods(ctx, repos, p); err != nil {
		return err
	}

	predecessor, err := repos.Postings.GetLiveByOperationID(ctx, p.OperationID)
	if err != nil {
		return err
	}
	latest, err := repos.Postings.GetLatestByLedger(ctx, p.LedgerID)
	if err != nil {
		return err
	}

	now := domain.Now()
	p.ID = domain.NewID()
	p.RecordTime = now
	p.DiscardedID, p.DiscardingID, p.DiscardedTime = nil, nil, nil
	p.HashRecord = domain.HashRecord{}
	if latest != nil {
		antecedentID := latest.ID
		p.AntecedentID = &antecedentID
		p.AntecedentHash = latest.Hash
		// record times order the chain
		if !p.RecordTime.After(latest.RecordTime) {
			p.RecordTime = latest.RecordTime.Add(time.Microsecond)
		}
	}
	if predecessor != nil {
		discardedID := predecessor.ID
		p.DiscardedID = &discardedID
	}
	for i := range p.Lines {
		l := &p.Lines[i]
		l.ID = domain.NewID()
		l.PostingID = p.ID
		l.RecordTime = p.RecordTime
		l.OperationID = p.OperationID
		l.OperationSource = p.OperationSource
		l.PostingTime = p.PostingTime
		l.PostingType = p.Type
		l.PostingStatus = p.Status
		l.DiscardedTime = nil
		l.Hash = nil
	}

	if err := hashing.Seal(p); err != nil {
		return err
	}
	if err := repos.Postings.Create(ctx, p); err != nil {
		return err
	}
	if predecessor != nil {
		if err := repos.Postings.MarkDiscarded(ctx, predecessor.ID, p.ID, p.RecordTime); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.DbError("discard predecessor", fmt.Errorf("posting %s was discarded concurrently", predecessor.ID))
			}
			return err
		}
		logger.Info("Posting superseded", "postingID", predecessor.ID, "discardingID", p.ID)
	}
	return nil
}

// checkOpenPeriods rejects lines whose posting time falls at or before a
// closed statement of their account.
func checkOpenPeriods(ctx context.Context, repos repository.Repositories, p *domain.Posting) error {
	checked := make(map[uuid.UUID]bool, len(p.Lines))
	for _, l := range p.Lines {
		if checked[l.AccountID] {
			continue
		}
		checked[l.AccountID] = true
		closed, err := repos.Statements.GetFirstClosedAtOrAfter(ctx, l.AccountID, p.PostingTime)
		if err != nil {
			return err
		}
		if closed != nil {
			return fmt.Errorf("%w: account %s closed at %s", domain.ErrBaselineTime, l.AccountID, closed.PostingTime.Format(time.RFC3339))
		}
	}
	return nil
}

func (s *postingService) FindPostingByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error) {
	p, err := s.repos.Postings.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrPostingNotFound)
	}
	return p, nil
}

func (s *postingService) FindPostingsByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error) {
	return s.repos.Postings.ListByOperationID(ctx, oprID)
}

// FindPostingLines returns one page of the live lines of an account with
// from < posting time <= to, oldest first.
func (s *postingService) FindPostingLines(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) (*domain.PostingLinePage, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.LedgerAccounts.GetByID(ctx, accountID); err != nil {
		return nil, notFound(err, domain.ErrLedgerAccountNotFound)
	}
	lines, total, err := s.repos.PostingLines.ListLiveByAccountPage(ctx, accountID, domain.Timestamp(from), domain.Timestamp(to), page)
	if err != nil {
		return nil, err
	}
	return &domain.PostingLinePage{Lines: lines, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *postingService) FindPostingLineByID(ctx context.Context, accountID, lineID uuid.UUID) (*domain.PostingLine, error) {
	l, err := s.repos.PostingLines.GetByIDAndAccount(ctx, lineID, accountID)
	if err != nil {
		return nil, notFound(err, domain.ErrPostingNotFound)
	}
	return l, nil
}

// VerifyChain recomputes every posting hash of a ledger in record order and
// checks each antecedent link against the previous posting.
func (s *postingService) VerifyChain(ctx context.Context, ledgerID uuid.UUID) (*domain.ChainReport, error) {
	logger.EnterMethod("postingService.VerifyChain", "ledgerID", ledgerID)

	if _, err := s.repos.Ledgers.GetByID(ctx, ledgerID); err != nil {
		err = notFound(err, domain.ErrLedgerNotFound)
		logger.ExitMethodWithError("postingService.VerifyChain", err, "ledgerID", ledgerID)
		return nil, err
	}
	postings, err := s.repos.Postings.ListByLedger(ctx, ledgerID)
	if err != nil {
		logger.ExitMethodWithError("postingService.VerifyChain", err, "ledgerID", ledgerID)
		return nil, err
	}

	report := &domain.ChainReport{LedgerID: ledgerID}
	var prev *domain.Posting
	for i := range postings {
		p := &postings[i]
		report.Checked++
		if reason := chainLinkError(prev, p); reason != "" {
			report.Broken = append(report.Broken, domain.ChainBreak{PostingID: p.ID, Reason: reason})
		}
		if err := hashing.Verify(p); err != nil {
			report.Broken = append(report.Broken, domain.ChainBreak{PostingID: p.ID, Reason: err.Error()})
		}
		prev = p
	}

	if !report.Intact() {
		logger.Warn("Hash chain broken", "ledgerID", ledgerID, "breaks", len(report.Broken))
	}
	logger.ExitMethod("postingService.VerifyChain", "ledgerID", ledgerID, "checked", report.Checked, "intact", report.Intact())
	return report, nil
}

func chainLinkError(prev, p *domain.Posting) string {
	if prev == nil {
		if p.AntecedentID != nil || !p.AntecedentHash.IsZero() {
			return "first posting has an antecedent"
		}
		return ""
	}
	if p.AntecedentID == nil || *p.AntecedentID != prev.ID {
		return fmt.Sprintf("antecedent is not %s", prev.ID)
	}
	if !p.AntecedentHash.Equal(prev.Hash) {
		return fmt.Sprintf("antecedent hash does not match posting %s", prev.ID)
	}
	return ""
}
