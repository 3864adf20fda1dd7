package handler

import (
	"context"

	"github.com/shelfbridge/loansync-service/internal/model"
	"github.com/shelfbridge/loansync-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var _ LoanService = (*service.Service)(nil)

type LoanService interface {
	Setup(ctx context.Context, code string) error
	Sync(ctx context.Context, force bool) (*model.Snapshot, error)
	Loans(ctx context.Context) ([]model.LoanRecord, error)
	Holds(ctx context.Context) ([]model.HoldRecord, error)
	Cards(ctx context.Context) ([]model.CardRecord, error)
	ListBooks(ctx context.Context) ([]model.BookRecord, error)
	Download(ctx context.Context, loanIDs []string) ([]model.DownloadResult, error)
	ReturnLoan(ctx context.Context, loanID string) error
	RenewLoan(ctx context.Context, loanID string) (model.LoanRecord, error)
	BorrowHold(ctx context.Context, holdID string) (model.LoanRecord, error)
	CreateHold(ctx context.Context, titleID, cardID string) (model.HoldRecord, error)
	CancelHold(ctx context.Context, holdID string) error
	SuspendHold(ctx context.Context, holdID string, days int) (model.HoldRecord, error)
}
