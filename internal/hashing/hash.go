// Package hashing produces the deterministic content digests that chain
// postings together. Records are serialized to JSON through fixed-order
// content views and digested as SHA2-256 multihashes.
package hashing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/multiformats/go-multihash"

	"postings-ledger/internal/domain"
)

// Size is the length of a digest: two bytes of multihash header plus 32.
const Size = 34

// Sum digests raw bytes.
func Sum(data []byte) (domain.Digest, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotEnoughInfo, err)
	}
	return domain.Digest(mh), nil
}

// Text digests an opaque reference such as an operation id.
func Text(s string) domain.Digest {
	d, err := Sum([]byte(s))
	if err != nil {
		// sha2-256 is always registered
		panic(err)
	}
	return d
}

// OptionalText is Text for optional references; empty yields nil.
func OptionalText(s string) domain.Digest {
	if s == "" {
		return nil
	}
	return Text(s)
}

// UserDetails digests the lower-cased user name.
func UserDetails(user string) domain.Digest {
	return Text(strings.ToLower(user))
}

// Of digests the canonical JSON form of any serializable record.
func Of(item any) (domain.Digest, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotEnoughInfo, err)
	}
	return Sum(data)
}

type lineContent struct {
	ID              string  `json:"id"`
	PostingID       string  `json:"posting_id"`
	AccountID       string  `json:"account_id"`
	DebitAmount     string  `json:"debit_amount"`
	CreditAmount    string  `json:"credit_amount"`
	Details         string  `json:"details"`
	SrcAccount      string  `json:"src_account"`
	BaseLine        string  `json:"base_line"`
	SubOprSrcID     string  `json:"sub_opr_src_id"`
	RecordTime      string  `json:"record_time"`
	OperationID     string  `json:"operation_id"`
	OperationSource string  `json:"operation_source"`
	PostingTime     string  `json:"posting_time"`
	PostingType     string  `json:"posting_type"`
	PostingStatus   string  `json:"posting_status"`
	AdditionalInfo  *string `json:"additional_information"`
}

type postingContent struct {
	ID               string   `json:"id"`
	RecordUser       string   `json:"record_user"`
	RecordTime       string   `json:"record_time"`
	OperationID      string   `json:"operation_id"`
	OperationTime    string   `json:"operation_time"`
	OperationType    string   `json:"operation_type"`
	OperationDetails string   `json:"operation_details"`
	OperationSource  string   `json:"operation_source"`
	PostingTime      string   `json:"posting_time"`
	PostingType      string   `json:"posting_type"`
	PostingStatus    string   `json:"posting_status"`
	LedgerID         string   `json:"ledger_id"`
	ValueTime        string   `json:"value_time"`
	DiscardedID      string   `json:"discarded_id"`
	AntecedentID     string   `json:"antecedent_id"`
	AntecedentHash   string   `json:"antecedent_hash"`
	Lines            []string `json:"lines"`
}

// PostingLine digests a line. The stored hash and the discard stamp, which is
// set after the line is sealed, are not part of the content.
func PostingLine(l *domain.PostingLine) (domain.Digest, error) {
	return Of(lineContent{
		ID:              l.ID.String(),
		PostingID:       l.PostingID.String(),
		AccountID:       l.AccountID.String(),
		DebitAmount:     l.DebitAmount.String(),
		CreditAmount:    l.CreditAmount.String(),
		Details:         l.Details.String(),
		SrcAccount:      l.SrcAccount.String(),
		BaseLine:        uuidString(l.BaseLine),
		SubOprSrcID:     l.SubOprSrcID.String(),
		RecordTime:      timeString(l.RecordTime),
		OperationID:     l.OperationID.String(),
		OperationSource: l.OperationSource.String(),
		PostingTime:     timeString(l.PostingTime),
		PostingType:     string(l.PostingType),
		PostingStatus:   string(l.PostingStatus),
		AdditionalInfo:  l.AdditionalInfo,
	})
}

// Posting digests a posting including its antecedent link and the hashes of
// its lines, which must already be set. The supersession fields written when
// a later posting discards this one are excluded.
func Posting(p *domain.Posting) (domain.Digest, error) {
	lines := make([]string, len(p.Lines))
	for i := range p.Lines {
		if p.Lines[i].Hash.IsZero() {
			return nil, fmt.Errorf("%w: line %s has no hash", domain.ErrNotEnoughInfo, p.Lines[i].ID)
		}
		lines[i] = p.Lines[i].Hash.String()
	}
	// line order is not part of the content
	sort.Strings(lines)
	var valueTime string
	if p.ValueTime != nil {
		valueTime = timeString(*p.ValueTime)
	}
	return Of(postingContent{
		ID:               p.ID.String(),
		RecordUser:       p.RecordUser.String(),
		RecordTime:       timeString(p.RecordTime),
		OperationID:      p.OperationID.String(),
		OperationTime:    timeString(p.OperationTime),
		OperationType:    p.OperationType.String(),
		OperationDetails: p.OperationDetails.String(),
		OperationSource:  p.OperationSource.String(),
		PostingTime:      timeString(p.PostingTime),
		PostingType:      string(p.Type),
		PostingStatus:    string(p.Status),
		LedgerID:         p.LedgerID.String(),
		ValueTime:        valueTime,
		DiscardedID:      uuidString(p.DiscardedID),
		AntecedentID:     uuidString(p.AntecedentID),
		AntecedentHash:   p.AntecedentHash.String(),
		Lines:            lines,
	})
}

// Seal computes and stores the hash of every line and then of the posting.
func Seal(p *domain.Posting) error {
	for i := range p.Lines {
		h, err := PostingLine(&p.Lines[i])
		if err != nil {
			return err
		}
		p.Lines[i].Hash = h
	}
	h, err := Posting(p)
	if err != nil {
		return err
	}
	p.Hash = h
	return nil
}

// Verify recomputes the line and posting hashes and compares them with the
// stored ones.
func Verify(p *domain.Posting) error {
	for i := range p.Lines {
		h, err := PostingLine(&p.Lines[i])
		if err != nil {
			return err
		}
		if !h.Equal(p.Lines[i].Hash) {
			return fmt.Errorf("%w: line %s", domain.ErrHashMismatch, p.Lines[i].ID)
		}
	}
	h, err := Posting(p)
	if err != nil {
		return err
	}
	if !h.Equal(p.Hash) {
		return fmt.Errorf("%w: posting %s", domain.ErrHashMismatch, p.ID)
	}
	return nil
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
