// Package reconcile matches a downloaded artifact (or empty-record
// instruction) against the local collection: attach to an existing placeholder
// or create a new record.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shelfbridge/loansync-service/internal/model"
)

const (
	IdentifierService = "odid"
	IdentifierISBN    = "isbn"
	IdentifierAmazon  = "amazon"
	IdentifierASIN    = "asin"
)

type Options struct {
	// AlwaysCreateNew disables matching entirely; every download becomes a
	// fresh record.
	AlwaysCreateNew bool
}

type Action string

const (
	ActionAttach Action = "attach"
	ActionCreate Action = "create"
)

type Decision struct {
	Action Action
	// BookID is set when Action is attach.
	BookID int64
}

// ServiceIdentifier builds the lending-service identifier stored on collection
// records, scoped by the library the loan was borrowed from.
func ServiceIdentifier(loan model.LoanRecord, advantageKey string) string {
	return fmt.Sprintf("%s@%s.overdrive.com", loan.ID, advantageKey)
}

// NormalizeTitle lowercases, strips a trailing subtitle and collapses
// whitespace, for fuzzy title comparison.
func NormalizeTitle(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		title = title[:i]
	}
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Decide runs the ordered matching heuristics, first match wins:
//
//  1. exact service-identifier match on an existing record with zero attached
//     formats, unless AlwaysCreateNew;
//  2. subtitle-stripped title equality plus an intersecting ISBN/ASIN, again
//     only against empty records;
//  3. otherwise create a new record.
//
// When several records satisfy a step, the most recently added one wins.
func Decide(loan model.LoanRecord, resolved model.ResolvedFormat, odid string, candidates []model.BookRef, opts Options) Decision {
	if opts.AlwaysCreateNew {
		return Decision{Action: ActionCreate}
	}

	var matches []model.BookRef
	for _, b := range candidates {
		if b.IsEmpty() && hasServiceIdentifier(b, odid) {
			matches = append(matches, b)
		}
	}
	if ref, ok := mostRecent(matches); ok {
		return Decision{Action: ActionAttach, BookID: ref.ID}
	}

	loanTitle := NormalizeTitle(loan.Title)
	loanISBN := loan.ISBN(resolved.Format)
	if loanISBN == "" {
		loanISBN = loan.ISBN()
	}
	loanASIN := loan.ASIN()

	matches = matches[:0]
	for _, b := range candidates {
		if !b.IsEmpty() || NormalizeTitle(b.Title) != loanTitle {
			continue
		}
		if identifiersIntersect(b, loanISBN, loanASIN) {
			matches = append(matches, b)
		}
	}
	if ref, ok := mostRecent(matches); ok {
		return Decision{Action: ActionAttach, BookID: ref.ID}
	}

	return Decision{Action: ActionCreate}
}

// hasServiceIdentifier checks the stored odid field, which may hold several
// identifiers joined by "&".
func hasServiceIdentifier(b model.BookRef, odid string) bool {
	stored, ok := b.Identifiers[IdentifierService]
	if !ok || odid == "" {
		return false
	}
	for _, v := range strings.Split(stored, "&") {
		if v == odid {
			return true
		}
	}
	return false
}

func identifiersIntersect(b model.BookRef, isbn, asin string) bool {
	if isbn != "" && b.Identifiers[IdentifierISBN] == isbn {
		return true
	}
	if asin != "" && (b.Identifiers[IdentifierAmazon] == asin || b.Identifiers[IdentifierASIN] == asin) {
		return true
	}
	return false
}

// mostRecent is a policy choice, not an upstream guarantee: prefer the record
// added last, falling back to the highest id.
func mostRecent(refs []model.BookRef) (model.BookRef, bool) {
	if len(refs) == 0 {
		return model.BookRef{}, false
	}
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].AddedAt.Equal(refs[j].AddedAt) {
			return refs[i].AddedAt.After(refs[j].AddedAt)
		}
		return refs[i].ID > refs[j].ID
	})
	return refs[0], true
}
