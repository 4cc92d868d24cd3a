package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/service"
)

// postingRequest carries raw references; they are digested before they
// reach the ledger.
type postingRequest struct {
	OperationID      string               `json:"operation_id"`
	OperationTime    *time.Time           `json:"operation_time,omitempty"`
	OperationType    string               `json:"operation_type"`
	OperationDetails string               `json:"operation_details,omitempty"`
	OperationSource  string               `json:"operation_source,omitempty"`
	PostingTime      time.Time            `json:"posting_time"`
	PostingType      domain.PostingType   `json:"posting_type,omitempty"`
	PostingStatus    domain.PostingStatus `json:"posting_status,omitempty"`
	LedgerID         uuid.UUID            `json:"ledger_id"`
	ValueTime        *time.Time           `json:"value_time,omitempty"`
	Lines            []postingLineRequest `json:"lines"`
}

type postingLineRequest struct {
	AccountID      uuid.UUID       `json:"account_id"`
	DebitAmount    decimal.Decimal `json:"debit_amount"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	Details        string          `json:"details,omitempty"`
	SrcAccount     string          `json:"src_account,omitempty"`
	BaseLine       *uuid.UUID      `json:"base_line,omitempty"`
	SubOprSrcID    string          `json:"sub_opr_src_id,omitempty"`
	AdditionalInfo *string         `json:"additional_information,omitempty"`
}

func (req *postingRequest) toDomain(user string) *domain.Posting {
	p := &domain.Posting{
		RecordUser:       hashing.UserDetails(user),
		OperationID:      hashing.OptionalText(req.OperationID),
		OperationType:    hashing.OptionalText(req.OperationType),
		OperationDetails: hashing.OptionalText(req.OperationDetails),
		OperationSource:  hashing.OptionalText(req.OperationSource),
		PostingTime:      req.PostingTime,
		Type:             req.PostingType,
		Status:           req.PostingStatus,
		LedgerID:         req.LedgerID,
		ValueTime:        req.ValueTime,
		Lines:            make([]domain.PostingLine, len(req.Lines)),
	}
	if req.OperationTime != nil {
		p.OperationTime = *req.OperationTime
	}
	for i, l := range req.Lines {
		p.Lines[i] = domain.PostingLine{
			AccountID:      l.AccountID,
			DebitAmount:    l.DebitAmount,
			CreditAmount:   l.CreditAmount,
			Details:        hashing.OptionalText(l.Details),
			SrcAccount:     hashing.OptionalText(l.SrcAccount),
			BaseLine:       l.BaseLine,
			SubOprSrcID:    hashing.OptionalText(l.SubOprSrcID),
			AdditionalInfo: l.AdditionalInfo,
		}
	}
	return p
}

// PostingHandler serves postings, posting lines and chain verification.
type PostingHandler struct {
	postingSvc service.PostingService
}

func NewPostingHandler(postingSvc service.PostingService) *PostingHandler {
	return &PostingHandler{postingSvc: postingSvc}
}

func (h *PostingHandler) CreatePosting(w http.ResponseWriter, r *http.Request) {
	user, err := GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postingRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	posting, err := h.postingSvc.NewPosting(r.Context(), req.toDomain(user))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, posting)
}

func (h *PostingHandler) GetPosting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid posting id")
		return
	}
	posting, err := h.postingSvc.FindPostingByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posting)
}

// ListPostings finds all postings recorded for ?operation_id=, superseded
// ones included.
func (h *PostingHandler) ListPostings(w http.ResponseWriter, r *http.Request) {
	oprID := r.URL.Query().Get("operation_id")
	if oprID == "" {
		badRequest(w, "operation_id is required")
		return
	}
	postings, err := h.postingSvc.FindPostingsByOperationID(r.Context(), hashing.Text(oprID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postings)
}

func (h *PostingHandler) ListPostingLines(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		badRequest(w, "invalid to: "+err.Error())
		return
	}
	var from time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339Nano, v); err != nil {
			badRequest(w, "invalid from: "+err.Error())
			return
		}
	}
	page, err := queryPage(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	lines, err := h.postingSvc.FindPostingLines(r.Context(), accountID, from, to, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *PostingHandler) GetPostingLine(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		badRequest(w, "invalid posting line id")
		return
	}
	line, err := h.postingSvc.FindPostingLineByID(r.Context(), accountID, lineID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *PostingHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	report, err := h.postingSvc.VerifyChain(r.Context(), ledgerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
