package model

import (
	"time"
)

type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Format struct {
	ID          FormatID     `json:"id"`
	IsLockedIn  bool         `json:"isLockedIn,omitempty"`
	ISBN        string       `json:"isbn,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
}

// LoanRecord is an actively borrowed title. Immutable once fetched; a re-sync
// replaces the whole collection.
type LoanRecord struct {
	ID                   string    `json:"id"`
	CardID               string    `json:"cardId"`
	Title                string    `json:"title"`
	Subtitle             string    `json:"subtitle,omitempty"`
	SortTitle            string    `json:"sortTitle,omitempty"`
	FirstCreatorName     string    `json:"firstCreatorName,omitempty"`
	FirstCreatorSortName string    `json:"firstCreatorSortName,omitempty"`
	Publisher            string    `json:"publisher,omitempty"`
	Type                 MediaType `json:"type"`
	Formats              []Format  `json:"formats"`
	CheckoutDate         time.Time `json:"checkoutDate"`
	ExpireDate           time.Time `json:"expireDate"`
	IsLuckyDayCheckout   bool      `json:"isLuckyDayCheckout,omitempty"`
}

// LockedInFormat returns the format the loan is locked to, or "".
func (l LoanRecord) LockedInFormat() FormatID {
	for _, f := range l.Formats {
		if f.IsLockedIn {
			return f.ID
		}
	}
	return ""
}

func (l LoanRecord) HasFormat(id FormatID) bool {
	for _, f := range l.Formats {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ISBN extracts the ISBN for the given format tags. With no tags given, any
// format's ISBN is accepted.
func (l LoanRecord) ISBN(formatIDs ...FormatID) string {
	for _, f := range l.Formats {
		if f.ISBN == "" {
			continue
		}
		if len(formatIDs) == 0 {
			return f.ISBN
		}
		for _, id := range formatIDs {
			if f.ID == id {
				return f.ISBN
			}
		}
	}
	return ""
}

// ASIN extracts Amazon's ASIN from the loan formats, if present.
func (l LoanRecord) ASIN() string {
	for _, f := range l.Formats {
		for _, ident := range f.Identifiers {
			if ident.Type == "ASIN" && ident.Value != "" {
				return ident.Value
			}
		}
	}
	return ""
}

type HoldRecord struct {
	ID                string     `json:"id"`
	CardID            string     `json:"cardId"`
	Title             string     `json:"title"`
	FirstCreatorName  string     `json:"firstCreatorName,omitempty"`
	Type              MediaType  `json:"type"`
	IsAvailable       bool       `json:"isAvailable"`
	EstimatedWaitDays int        `json:"estimatedWaitDays,omitempty"`
	PlacedDate        time.Time  `json:"placedDate"`
	SuspensionEnd     *time.Time `json:"suspensionEnd,omitempty"`
}

type CardRecord struct {
	ID                string `json:"cardId"`
	AdvantageKey      string `json:"advantageKey"`
	CardName          string `json:"cardName,omitempty"`
	LibraryName       string `json:"libraryName,omitempty"`
	LendingPeriodDays int    `json:"lendingPeriodDays,omitempty"`
	LoanCount         int    `json:"loanCount"`
	LoanLimit         int    `json:"loanLimit"`
	HoldCount         int    `json:"holdCount"`
	HoldLimit         int    `json:"holdLimit"`
}

func (c CardRecord) CanBorrow() bool {
	return c.LoanCount < c.LoanLimit
}

func (c CardRecord) CanPlaceHold() bool {
	return c.HoldCount < c.HoldLimit
}

// Snapshot is one full sync result. The fetcher replaces it wholesale, never
// merges.
type Snapshot struct {
	Loans    []LoanRecord `json:"loans"`
	Holds    []HoldRecord `json:"holds"`
	Cards    []CardRecord `json:"cards"`
	SyncedAt time.Time    `json:"syncedAt"`
}

func (s *Snapshot) Loan(id string) (LoanRecord, bool) {
	for _, l := range s.Loans {
		if l.ID == id {
			return l, true
		}
	}
	return LoanRecord{}, false
}

type Decision string

const (
	DecisionDownload    Decision = "download"
	DecisionEmptyRecord Decision = "empty-record"
	DecisionNone        Decision = "none"
)

// ResolvedFormat is the format resolver's output: which artifact to fetch, an
// empty-record instruction, or nothing.
type ResolvedFormat struct {
	Decision Decision `json:"decision"`
	Format   FormatID `json:"format,omitempty"`
}

// BookRef is a read-only view of an existing collection record, used for
// matching only.
type BookRef struct {
	ID          int64             `json:"id" db:"id"`
	Title       string            `json:"title" db:"title"`
	AddedAt     time.Time         `json:"addedAt" db:"added_at"`
	FormatCount int               `json:"formatCount" db:"format_count"`
	Identifiers map[string]string `json:"identifiers"`
}

func (b BookRef) IsEmpty() bool { return b.FormatCount == 0 }

type BookRecord struct {
	ID        int64     `json:"id" db:"id"`
	BookUid   string    `json:"bookUid" db:"book_uid"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Publisher string    `json:"publisher" db:"publisher"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

type DownloadStatus string

const (
	DownloadStatusOK     DownloadStatus = "ok"
	DownloadStatusSkip   DownloadStatus = "skipped"
	DownloadStatusFailed DownloadStatus = "failed"
)

type DownloadRequest struct {
	LoanIDs []string `json:"loanIds" validate:"required,min=1,dive,required"`
}

// DownloadResult is the per-item outcome of a batch download. One failed item
// never aborts the batch.
type DownloadResult struct {
	LoanID  string         `json:"loanId"`
	Title   string         `json:"title,omitempty"`
	Status  DownloadStatus `json:"status"`
	Format  FormatID       `json:"format,omitempty"`
	BookID  int64          `json:"bookId,omitempty"`
	Created bool           `json:"created,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// LoanEvent is published per download outcome for the audit trail.
type LoanEvent struct {
	LoanID     string         `json:"loanId"`
	Title      string         `json:"title,omitempty"`
	Format     FormatID       `json:"format,omitempty"`
	Status     DownloadStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

type CreateHoldRequest struct {
	TitleID string `json:"titleId" validate:"required"`
	CardID  string `json:"cardId" validate:"required"`
}

type SuspendHoldRequest struct {
	Days int `json:"days" validate:"required,min=1,max=30"`
}

type SetupRequest struct {
	Code string `json:"code" validate:"required,numeric,len=8"`
}
