package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
	"github.com/shelfbridge/loansync-service/internal/reconcile"
	"github.com/shelfbridge/loansync-service/internal/repository"
	"github.com/shelfbridge/loansync-service/internal/resolve"
	"github.com/shelfbridge/loansync-service/pkg/kafka"
)

// Download fetches the artifacts for the given loans and reconciles each one
// into the collection. Loan IDs are de-duplicated first; every requested ID
// gets exactly one result and a failed item never aborts the rest of the
// batch.
func (s *Service) Download(ctx context.Context, loanIDs []string) ([]model.DownloadResult, error) {
	snap, err := s.Sync(ctx, false)
	if err != nil {
		return nil, err
	}
	index, err := s.repo.BookIndex(ctx)
	if err != nil {
		return nil, err
	}

	ids := dedupe(loanIDs)
	results := make([]model.DownloadResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.opts.MaxConcurrentDownloads
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			res := s.downloadOne(gctx, snap, index, id)
			results[i] = res
			s.publishEvent(res)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) downloadOne(ctx context.Context, snap *model.Snapshot, index []model.BookRef, loanID string) model.DownloadResult {
	res := model.DownloadResult{LoanID: loanID}

	loan, ok := snap.Loan(loanID)
	if !ok {
		res.Status = model.DownloadStatusFailed
		res.Error = errs.ErrLoanNotInSnapshot.Error()
		return res
	}
	res.Title = loan.Title

	resolved := resolve.Resolve(loan, resolve.Options{
		PreferOpenFormats:      s.opts.PreferOpenFormats,
		IncludeNonDownloadable: s.opts.IncludeNonDownloadable,
	})
	if resolved.Decision == model.DecisionNone {
		s.log.Debug("no fetchable format", zap.String("loanID", loanID))
		res.Status = model.DownloadStatusSkip
		res.Error = errs.ErrFormatUnavailable.Error()
		return res
	}

	var format *repository.FormatSpec
	if resolved.Decision == model.DecisionDownload {
		data, err := s.client.FulfillLoan(ctx, loan.ID, loan.CardID, resolved.Format)
		if err != nil {
			s.log.Warn("fulfill loan", zap.String("loanID", loanID), zap.Error(err))
			res.Status = model.DownloadStatusFailed
			res.Error = err.Error()
			return res
		}
		path, err := s.writeArtifact(loan, resolved.Format, data)
		if err != nil {
			res.Status = model.DownloadStatusFailed
			res.Error = err.Error()
			return res
		}
		format = &repository.FormatSpec{
			Format:    resolved.Format,
			FilePath:  path,
			SizeBytes: int64(len(data)),
		}
		res.Format = resolved.Format
	}

	odid := reconcile.ServiceIdentifier(loan, s.advantageKey(snap, loan.CardID))
	decision := reconcile.Decide(loan, resolved, odid, index, reconcile.Options{
		AlwaysCreateNew: s.opts.AlwaysCreateNew,
	})

	identifiers := map[string]string{
		reconcile.IdentifierISBN:   loan.ISBN(resolved.Format),
		reconcile.IdentifierAmazon: loan.ASIN(),
	}
	if identifiers[reconcile.IdentifierISBN] == "" {
		identifiers[reconcile.IdentifierISBN] = loan.ISBN()
	}

	switch decision.Action {
	case reconcile.ActionAttach:
		err := s.repo.AttachToBook(ctx, repository.AttachParams{
			BookID:       decision.BookID,
			Format:       format,
			Author:       loan.FirstCreatorName,
			Publisher:    loan.Publisher,
			Identifiers:  identifiers,
			ServiceID:    odid,
			Tags:         s.tagsFor(loan),
			CustomValues: s.customValuesFor(loan),
			MarkUpdated:  s.opts.MarkUpdatedBooks,
		})
		if err != nil {
			res.Status = model.DownloadStatusFailed
			res.Error = err.Error()
			return res
		}
		res.BookID = decision.BookID
	case reconcile.ActionCreate:
		bookID, err := s.repo.CreateBook(ctx, repository.CreateParams{
			Title:        loan.Title,
			Author:       loan.FirstCreatorName,
			Publisher:    loan.Publisher,
			Format:       format,
			Identifiers:  identifiers,
			ServiceID:    odid,
			Tags:         s.tagsFor(loan),
			CustomValues: s.customValuesFor(loan),
		})
		if err != nil {
			res.Status = model.DownloadStatusFailed
			res.Error = err.Error()
			return res
		}
		res.BookID = bookID
		res.Created = true
	}

	res.Status = model.DownloadStatusOK
	s.log.Info("download reconciled",
		zap.String("loanID", loanID),
		zap.String("format", string(res.Format)),
		zap.Int64("bookID", res.BookID),
		zap.Bool("created", res.Created))
	return res
}

func (s *Service) writeArtifact(loan model.LoanRecord, format model.FormatID, data []byte) (string, error) {
	if err := os.MkdirAll(s.dlDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.%s", loan.ID, format.FileExtension())
	path := filepath.Join(s.dlDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) tagsFor(loan model.LoanRecord) []string {
	var raw string
	switch loan.Type {
	case model.MediaTypeEBook:
		raw = s.opts.TagEbooks
	case model.MediaTypeMagazine:
		raw = s.opts.TagMagazines
	}
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *Service) customValuesFor(loan model.LoanRecord) map[string]string {
	values := map[string]string{}
	if col := s.opts.CustColBorrowedDate; col != "" && !loan.CheckoutDate.IsZero() {
		values[col] = loan.CheckoutDate.Format(time.RFC3339)
	}
	if col := s.opts.CustColDueDate; col != "" && !loan.ExpireDate.IsZero() {
		values[col] = loan.ExpireDate.Format(time.RFC3339)
	}
	if col := s.opts.CustColLoanType; col != "" {
		values[col] = string(loan.Type)
	}
	return values
}

func (s *Service) publishEvent(res model.DownloadResult) {
	if s.enqueuer == nil {
		return
	}
	ev := model.LoanEvent{
		LoanID:     res.LoanID,
		Title:      res.Title,
		Format:     res.Format,
		Status:     res.Status,
		Error:      res.Error,
		OccurredAt: time.Now(),
	}
	if err := s.enqueuer.Enqueue(kafka.LoanEventsTopic, ev); err != nil {
		s.log.Warn("enqueue loan event", zap.String("loanID", res.LoanID), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
