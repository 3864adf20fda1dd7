// Package resolve decides which downloadable artifact to request for a loan.
// Decisions are pure functions over the loan record and the user options.
package resolve

import (
	"github.com/shelfbridge/loansync-service/internal/model"
)

type Options struct {
	// PreferOpenFormats selects DRM-free epub/pdf over acsm when both exist.
	PreferOpenFormats bool
	// IncludeNonDownloadable emits an empty-record instruction instead of
	// dropping loans with no fetchable artifact (kindle-locked, audiobooks).
	IncludeNonDownloadable bool
}

// Resolve picks the artifact type to fetch for a loan.
//
// A locked-in format always wins: once a loan is locked to kindle there is no
// downloadable artifact until the title is returned and re-borrowed. A missing
// or malformed format list is treated as "no formats available", not an error,
// so callers can still take the empty-record path.
func Resolve(loan model.LoanRecord, opts Options) model.ResolvedFormat {
	none := model.ResolvedFormat{Decision: model.DecisionNone}
	if opts.IncludeNonDownloadable {
		none = model.ResolvedFormat{Decision: model.DecisionEmptyRecord}
	}

	if len(loan.Formats) == 0 {
		return none
	}

	if locked := loan.LockedInFormat(); locked != "" {
		if locked.IsDownloadable() {
			return model.ResolvedFormat{Decision: model.DecisionDownload, Format: locked}
		}
		return none
	}

	switch loan.Type {
	case model.MediaTypeAudiobook:
		// audiobook artifacts are not fetchable through this path
		return none
	case model.MediaTypeMagazine:
		// Magazines are epub-only with no acsm path. Best-effort upstream:
		// the artifact may be missing part of the article set.
		if loan.HasFormat(model.FormatMagazineOverDrive) {
			return model.ResolvedFormat{Decision: model.DecisionDownload, Format: model.FormatMagazineOverDrive}
		}
		return none
	}

	order := []model.FormatID{
		model.FormatEBookEPubAdobe,
		model.FormatEBookPDFAdobe,
		model.FormatEBookEPubOpen,
		model.FormatEBookPDFOpen,
	}
	if opts.PreferOpenFormats {
		order = []model.FormatID{
			model.FormatEBookEPubOpen,
			model.FormatEBookPDFOpen,
			model.FormatEBookEPubAdobe,
			model.FormatEBookPDFAdobe,
		}
	}
	for _, f := range order {
		if loan.HasFormat(f) {
			return model.ResolvedFormat{Decision: model.DecisionDownload, Format: f}
		}
	}
	return none
}

// IsDownloadableEbook reports whether the loan has at least one fetchable
// ebook format.
func IsDownloadableEbook(loan model.LoanRecord) bool {
	if loan.Type != model.MediaTypeEBook {
		return false
	}
	for _, f := range loan.Formats {
		if f.ID.IsDownloadable() && f.ID != model.FormatMagazineOverDrive {
			return true
		}
	}
	return false
}

func IsDownloadableMagazine(loan model.LoanRecord) bool {
	return loan.Type == model.MediaTypeMagazine && loan.HasFormat(model.FormatMagazineOverDrive)
}
