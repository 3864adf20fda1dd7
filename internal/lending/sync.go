package lending

import (
	"time"

	"github.com/shelfbridge/loansync-service/internal/model"
)

// Wire shapes of the chip/sync payload. Heterogeneous fields are normalized
// into model records; unknown fields are dropped.

type syncResponse struct {
	Result string     `json:"result"`
	Loans  []loanJSON `json:"loans"`
	Holds  []holdJSON `json:"holds"`
	Cards  []cardJSON `json:"cards"`
}

type typeJSON struct {
	ID string `json:"id"`
}

type loanJSON struct {
	ID                   string         `json:"id"`
	CardID               string         `json:"cardId"`
	Title                string         `json:"title"`
	Subtitle             string         `json:"subtitle"`
	SortTitle            string         `json:"sortTitle"`
	FirstCreatorName     string         `json:"firstCreatorName"`
	FirstCreatorSortName string         `json:"firstCreatorSortName"`
	Type                 typeJSON       `json:"type"`
	Formats              []model.Format `json:"formats"`
	CheckoutDate         string         `json:"checkoutDate"`
	ExpireDate           string         `json:"expireDate"`
	Publisher            nameJSON       `json:"publisher"`
	PublisherAccount     nameJSON       `json:"publisherAccount"`
	IsLuckyDayCheckout   bool           `json:"isLuckyDayCheckout"`
}

type nameJSON struct {
	Name string `json:"name"`
}

type holdJSON struct {
	ID                string   `json:"id"`
	CardID            string   `json:"cardId"`
	Title             string   `json:"title"`
	FirstCreatorName  string   `json:"firstCreatorName"`
	Type              typeJSON `json:"type"`
	IsAvailable       bool     `json:"isAvailable"`
	EstimatedWaitDays int      `json:"estimatedWaitDays"`
	PlacedDate        string   `json:"placedDate"`
	SuspensionEnd     string   `json:"suspensionEnd"`
}

type cardJSON struct {
	CardID       string   `json:"cardId"`
	AdvantageKey string   `json:"advantageKey"`
	CardName     string   `json:"cardName"`
	Library      nameJSON `json:"library"`
	Limits       struct {
		Loan int `json:"loan"`
		Hold int `json:"hold"`
	} `json:"limits"`
	Counts struct {
		Loan int `json:"loan"`
		Hold int `json:"hold"`
	} `json:"counts"`
	LendingPeriods map[string]struct {
		Preference []any `json:"preference"`
	} `json:"lendingPeriods"`
}

func (l loanJSON) toRecord() model.LoanRecord {
	publisher := l.Publisher.Name
	if publisher == "" {
		publisher = l.PublisherAccount.Name
	}
	return model.LoanRecord{
		ID:                   l.ID,
		CardID:               l.CardID,
		Title:                l.Title,
		Subtitle:             l.Subtitle,
		SortTitle:            l.SortTitle,
		FirstCreatorName:     l.FirstCreatorName,
		FirstCreatorSortName: l.FirstCreatorSortName,
		Publisher:            publisher,
		Type:                 model.MediaType(l.Type.ID),
		Formats:              l.Formats,
		CheckoutDate:         parseTime(l.CheckoutDate),
		ExpireDate:           parseTime(l.ExpireDate),
		IsLuckyDayCheckout:   l.IsLuckyDayCheckout,
	}
}

func (h holdJSON) toRecord() model.HoldRecord {
	rec := model.HoldRecord{
		ID:                h.ID,
		CardID:            h.CardID,
		Title:             h.Title,
		FirstCreatorName:  h.FirstCreatorName,
		Type:              model.MediaType(h.Type.ID),
		IsAvailable:       h.IsAvailable,
		EstimatedWaitDays: h.EstimatedWaitDays,
		PlacedDate:        parseTime(h.PlacedDate),
	}
	if h.SuspensionEnd != "" {
		if t := parseTime(h.SuspensionEnd); !t.IsZero() {
			rec.SuspensionEnd = &t
		}
	}
	return rec
}

func (c cardJSON) toRecord() model.CardRecord {
	rec := model.CardRecord{
		ID:           c.CardID,
		AdvantageKey: c.AdvantageKey,
		CardName:     c.CardName,
		LibraryName:  c.Library.Name,
		LoanCount:    c.Counts.Loan,
		LoanLimit:    c.Limits.Loan,
		HoldCount:    c.Counts.Hold,
		HoldLimit:    c.Limits.Hold,
	}
	// lending period preference comes back as [days, "days"]
	if lp, ok := c.LendingPeriods["book"]; ok && len(lp.Preference) > 0 {
		if days, ok := lp.Preference[0].(float64); ok {
			rec.LendingPeriodDays = int(days)
		}
	}
	return rec
}

func (s syncResponse) toSnapshot() *model.Snapshot {
	snap := &model.Snapshot{
		Loans:    make([]model.LoanRecord, 0, len(s.Loans)),
		Holds:    make([]model.HoldRecord, 0, len(s.Holds)),
		Cards:    make([]model.CardRecord, 0, len(s.Cards)),
		SyncedAt: time.Now(),
	}
	for _, l := range s.Loans {
		snap.Loans = append(snap.Loans, l.toRecord())
	}
	for _, h := range s.Holds {
		snap.Holds = append(snap.Holds, h.toRecord())
	}
	for _, c := range s.Cards {
		snap.Cards = append(snap.Cards, c.toRecord())
	}
	return snap
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
