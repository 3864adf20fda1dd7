package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/config"
	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
	"github.com/shelfbridge/loansync-service/internal/reconcile"
	"github.com/shelfbridge/loansync-service/internal/repository"
	"github.com/shelfbridge/loansync-service/internal/resolve"
)

// TokenSettingKey is where the lending-service identity token is persisted
// between runs.
const TokenSettingKey = "lending_token"

// LendingClient is the slice of the lending client the service depends on.
type LendingClient interface {
	Chip(ctx context.Context) (string, error)
	CloneByCode(ctx context.Context, code string) error
	FulfillLoan(ctx context.Context, loanID, cardID string, format model.FormatID) ([]byte, error)
	ReturnLoan(ctx context.Context, loanID, cardID string) error
	RenewLoan(ctx context.Context, loanID, cardID string, mediaType model.MediaType, days int) (model.LoanRecord, error)
	BorrowTitle(ctx context.Context, titleID, cardID string, mediaType model.MediaType, days int) (model.LoanRecord, error)
	CreateHold(ctx context.Context, titleID, cardID string) (model.HoldRecord, error)
	CancelHold(ctx context.Context, holdID, cardID string) error
	SuspendHold(ctx context.Context, holdID, cardID string, days int) (model.HoldRecord, error)
	SetToken(token string)
	Token() string
}

// Catalog is the snapshot holder the service reads loans/holds/cards from.
type Catalog interface {
	Snapshot(ctx context.Context, force bool) (*model.Snapshot, error)
	Invalidate()
}

type Service struct {
	log      *zap.Logger
	opts     config.Options
	dlDir    string
	client   LendingClient
	catalog  Catalog
	repo     repository.Repository
	enqueuer Enqueuer
}

func New(log *zap.Logger, cfg *config.Config, client LendingClient, cat Catalog, repo repository.Repository, enqueuer Enqueuer) *Service {
	return &Service{
		log:      log.Named("service"),
		opts:     cfg.Options,
		dlDir:    cfg.Sync.DownloadDir,
		client:   client,
		catalog:  cat,
		repo:     repo,
		enqueuer: enqueuer,
	}
}

// LoadToken restores a previously persisted identity token, if any.
func (s *Service) LoadToken(ctx context.Context) error {
	token, err := s.repo.GetSetting(ctx, TokenSettingKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	s.client.SetToken(token)
	return nil
}

// Setup links this instance to a user account with an 8-digit setup code and
// persists the resulting token. A bad code surfaces immediately as an auth
// error; the user has to re-enter it.
func (s *Service) Setup(ctx context.Context, code string) error {
	if _, err := s.client.Chip(ctx); err != nil {
		return err
	}
	if err := s.client.CloneByCode(ctx, code); err != nil {
		return err
	}
	if err := s.repo.SetSetting(ctx, TokenSettingKey, s.client.Token()); err != nil {
		return err
	}
	s.catalog.Invalidate()
	_, err := s.catalog.Snapshot(ctx, true)
	return err
}

func (s *Service) Sync(ctx context.Context, force bool) (*model.Snapshot, error) {
	if s.client.Token() == "" {
		return nil, errs.ErrNotConfigured
	}
	return s.catalog.Snapshot(ctx, force)
}

// Loans lists the current loans with the user's visibility filters applied.
func (s *Service) Loans(ctx context.Context) ([]model.LoanRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return nil, err
	}

	var index []model.BookRef
	if s.opts.HideBooksAlreadyInLibrary {
		if index, err = s.repo.BookIndex(ctx); err != nil {
			return nil, err
		}
	}

	loans := make([]model.LoanRecord, 0, len(snap.Loans))
	for _, loan := range snap.Loans {
		switch {
		case resolve.IsDownloadableEbook(loan):
			if s.opts.HideEbooks {
				continue
			}
		case resolve.IsDownloadableMagazine(loan):
			if s.opts.HideMagazines {
				continue
			}
		default:
			if !s.opts.IncludeNonDownloadable {
				continue
			}
		}
		if s.opts.HideBooksAlreadyInLibrary && s.inLibrary(loan, index) {
			continue
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// inLibrary mirrors the hide-books-already-in-library filter: a loan counts as
// present when its title or an identifier matches a record that already has an
// attached format. Empty placeholders do not hide the loan.
func (s *Service) inLibrary(loan model.LoanRecord, index []model.BookRef) bool {
	title := reconcile.NormalizeTitle(loan.Title)
	isbn := loan.ISBN()
	asin := loan.ASIN()
	for _, b := range index {
		if b.IsEmpty() {
			continue
		}
		if reconcile.NormalizeTitle(b.Title) == title {
			return true
		}
		if isbn != "" && b.Identifiers[reconcile.IdentifierISBN] == isbn {
			return true
		}
		if asin != "" && (b.Identifiers[reconcile.IdentifierAmazon] == asin ||
			b.Identifiers[reconcile.IdentifierASIN] == asin) {
			return true
		}
	}
	return false
}

func (s *Service) Holds(ctx context.Context) ([]model.HoldRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Holds, nil
}

func (s *Service) Cards(ctx context.Context) ([]model.CardRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Cards, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]model.BookRecord, error) {
	return s.repo.ListBooks(ctx)
}

func (s *Service) ReturnLoan(ctx context.Context, loanID string) error {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return err
	}
	loan, ok := snap.Loan(loanID)
	if !ok {
		return errors.Wrapf(errs.ErrLoanNotInSnapshot, "loan %s", loanID)
	}
	if err := s.client.ReturnLoan(ctx, loan.ID, loan.CardID); err != nil {
		return err
	}
	s.catalog.Invalidate()
	return nil
}

func (s *Service) RenewLoan(ctx context.Context, loanID string) (model.LoanRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return model.LoanRecord{}, err
	}
	loan, ok := snap.Loan(loanID)
	if !ok {
		return model.LoanRecord{}, errors.Wrapf(errs.ErrLoanNotInSnapshot, "loan %s", loanID)
	}
	days := s.lendingPeriod(snap, loan.CardID)
	renewed, err := s.client.RenewLoan(ctx, loan.ID, loan.CardID, loan.Type, days)
	if err != nil {
		return model.LoanRecord{}, err
	}
	s.catalog.Invalidate()
	return renewed, nil
}

func (s *Service) CreateHold(ctx context.Context, titleID, cardID string) (model.HoldRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return model.HoldRecord{}, err
	}
	for _, card := range snap.Cards {
		if card.ID == cardID && !card.CanPlaceHold() {
			return model.HoldRecord{}, errors.Errorf("hold limit reached on card %s", cardID)
		}
	}
	hold, err := s.client.CreateHold(ctx, titleID, cardID)
	if err != nil {
		return model.HoldRecord{}, err
	}
	s.catalog.Invalidate()
	return hold, nil
}

// CancelHold is a separate idempotent upstream call; it never cancels
// in-flight download jobs.
func (s *Service) CancelHold(ctx context.Context, holdID string) error {
	hold, err := s.findHold(ctx, holdID)
	if err != nil {
		return err
	}
	if err := s.client.CancelHold(ctx, hold.ID, hold.CardID); err != nil {
		return err
	}
	s.catalog.Invalidate()
	return nil
}

func (s *Service) SuspendHold(ctx context.Context, holdID string, days int) (model.HoldRecord, error) {
	hold, err := s.findHold(ctx, holdID)
	if err != nil {
		return model.HoldRecord{}, err
	}
	suspended, err := s.client.SuspendHold(ctx, hold.ID, hold.CardID, days)
	if err != nil {
		return model.HoldRecord{}, err
	}
	s.catalog.Invalidate()
	return suspended, nil
}

// BorrowHold converts an available hold into a loan.
func (s *Service) BorrowHold(ctx context.Context, holdID string) (model.LoanRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return model.LoanRecord{}, err
	}
	var hold *model.HoldRecord
	for i := range snap.Holds {
		if snap.Holds[i].ID == holdID {
			hold = &snap.Holds[i]
			break
		}
	}
	if hold == nil {
		return model.LoanRecord{}, errors.Wrapf(errs.ErrNotFound, "hold %s", holdID)
	}
	days := s.lendingPeriod(snap, hold.CardID)
	loan, err := s.client.BorrowTitle(ctx, hold.ID, hold.CardID, hold.Type, days)
	if err != nil {
		return model.LoanRecord{}, err
	}
	s.catalog.Invalidate()
	return loan, nil
}

func (s *Service) findHold(ctx context.Context, holdID string) (model.HoldRecord, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return model.HoldRecord{}, err
	}
	for _, hold := range snap.Holds {
		if hold.ID == holdID {
			return hold, nil
		}
	}
	return model.HoldRecord{}, errors.Wrapf(errs.ErrNotFound, "hold %s", holdID)
}

func (s *Service) lendingPeriod(snap *model.Snapshot, cardID string) int {
	for _, card := range snap.Cards {
		if card.ID == cardID {
			return card.LendingPeriodDays
		}
	}
	return 0
}

func (s *Service) advantageKey(snap *model.Snapshot, cardID string) string {
	for _, card := range snap.Cards {
		if card.ID == cardID {
			return card.AdvantageKey
		}
	}
	return ""
}
