package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
)

// MarkerTag is applied to records updated by a download when the
// mark-updated-books option is on.
const MarkerTag = "loansync-updated"

type Repository interface {
	BookIndex(ctx context.Context) ([]model.BookRef, error)
	ListBooks(ctx context.Context) ([]model.BookRecord, error)
	GetBook(ctx context.Context, bookID int64) (model.BookRecord, error)
	CreateBook(ctx context.Context, p CreateParams) (int64, error)
	AttachToBook(ctx context.Context, p AttachParams) error
	RecordEvent(ctx context.Context, ev model.LoanEvent) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FormatSpec describes one stored artifact file.
type FormatSpec struct {
	Format    model.FormatID
	FilePath  string
	SizeBytes int64
}

type CreateParams struct {
	Title     string
	Author    string
	Publisher string
	// Format is nil for an empty-record creation.
	Format       *FormatSpec
	Identifiers  map[string]string
	ServiceID    string
	Tags         []string
	CustomValues map[string]string
}

type AttachParams struct {
	BookID       int64
	Format       *FormatSpec
	Author       string
	Publisher    string
	Identifiers  map[string]string
	ServiceID    string
	Tags         []string
	CustomValues map[string]string
	MarkUpdated  bool
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName        = `books`
	bookFormatsTableName  = `book_formats`
	bookIdentsTableName   = `book_identifiers`
	bookCustomsTableName  = `book_custom_values`
	bookTagsTableName     = `book_tags`
	downloadEventsTable   = `download_events`
	settingsTableName     = `settings`
	serviceIdentifierType = `odid`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BookIndex returns the read-only matching view: title, added-at, format count
// and identifiers per record.
func (r *repository) BookIndex(ctx context.Context) ([]model.BookRef, error) {
	query, args, err := qb.Select("b.id", "b.title", "b.added_at", "count(f.id) as format_count").
		From(booksTableName + " b").
		LeftJoin(bookFormatsTableName + " f on f.book_id = b.id").
		GroupBy("b.id").
		OrderBy("b.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var refs []model.BookRef
	if err := r.db.SelectContext(ctx, &refs, query, args...); err != nil {
		return nil, errors.Wrap(err, "book index")
	}

	query, args, err = qb.Select("book_id", "ident_type", "ident_value").
		From(bookIdentsTableName).
		ToSql()
	if err != nil {
		return nil, err
	}
	var idents []struct {
		BookID     int64  `db:"book_id"`
		IdentType  string `db:"ident_type"`
		IdentValue string `db:"ident_value"`
	}
	if err := r.db.SelectContext(ctx, &idents, query, args...); err != nil {
		return nil, errors.Wrap(err, "book identifiers")
	}

	byID := make(map[int64]int, len(refs))
	for i := range refs {
		refs[i].Identifiers = map[string]string{}
		byID[refs[i].ID] = i
	}
	for _, ident := range idents {
		if i, ok := byID[ident.BookID]; ok {
			refs[i].Identifiers[ident.IdentType] = ident.IdentValue
		}
	}
	return refs, nil
}

func (r *repository) ListBooks(ctx context.Context) ([]model.BookRecord, error) {
	query, args, err := qb.Select("id", "book_uid", "title", "author", "publisher", "added_at").
		From(booksTableName).
		OrderBy("added_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var books []model.BookRecord
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) GetBook(ctx context.Context, bookID int64) (model.BookRecord, error) {
	query, args, err := qb.Select("id", "book_uid", "title", "author", "publisher", "added_at").
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.BookRecord{}, err
	}
	var book model.BookRecord
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BookRecord{}, errs.ErrNotFound
		}
		return model.BookRecord{}, err
	}
	return book, nil
}

// CreateBook inserts a record with its identifiers, tags, custom values and
// optional format in one transaction. The record is either fully created or
// not at all.
func (r *repository) CreateBook(ctx context.Context, p CreateParams) (bookID int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertBook = `
insert into books (book_uid, title, author, publisher)
values ($1, $2, $3, $4)
returning id`
	if err = tx.GetContext(ctx, &bookID, insertBook,
		uuid.NewString(), p.Title, p.Author, p.Publisher); err != nil {
		return 0, wrapPgErr(err, "create book")
	}

	if err = r.writeAssociations(ctx, tx, bookID, p.Format, p.ServiceID, p.Identifiers, p.Tags, p.CustomValues); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bookID, nil
}

// AttachToBook adds a format to an existing record. Re-attaching the same
// format is a no-op, so the operation is idempotent. Core metadata fields are
// only written when currently empty; custom values are always upserted.
func (r *repository) AttachToBook(ctx context.Context, p AttachParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const fillCore = `
update books
    set author = case when author = '' then $2 else author end,
        publisher = case when publisher = '' then $3 else publisher end
where id = $1`
	res, err := tx.ExecContext(ctx, fillCore, p.BookID, p.Author, p.Publisher)
	if err != nil {
		return wrapPgErr(err, "attach book")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errs.ErrNotFound, "book %d", p.BookID)
	}

	if err = r.writeAssociations(ctx, tx, p.BookID, p.Format, p.ServiceID, p.Identifiers, p.Tags, p.CustomValues); err != nil {
		return err
	}
	if p.MarkUpdated {
		if err = insertTag(ctx, tx, p.BookID, MarkerTag); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *repository) writeAssociations(ctx context.Context, tx *sqlx.Tx, bookID int64,
	format *FormatSpec, serviceID string, identifiers map[string]string, tags []string, customValues map[string]string) error {
	if format != nil {
		const insertFormat = `
insert into book_formats (book_id, format, file_path, size_bytes)
values ($1, $2, $3, $4)
on conflict (book_id, format) do nothing`
		if _, err := tx.ExecContext(ctx, insertFormat, bookID, format.Format, format.FilePath, format.SizeBytes); err != nil {
			return wrapPgErr(err, "insert format")
		}
	}

	// existing identifier values are authoritative, only fill gaps
	const insertIdent = `
insert into book_identifiers (book_id, ident_type, ident_value)
values ($1, $2, $3)
on conflict (book_id, ident_type) do nothing`
	for typ, value := range identifiers {
		if value == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertIdent, bookID, typ, value); err != nil {
			return wrapPgErr(err, "insert identifier")
		}
	}
	if serviceID != "" {
		// the odid slot accumulates identifiers joined by "&"
		const appendService = `
insert into book_identifiers (book_id, ident_type, ident_value)
values ($1, $2, $3)
on conflict (book_id, ident_type) do update
    set ident_value = case
        when book_identifiers.ident_value = excluded.ident_value
            or book_identifiers.ident_value like excluded.ident_value || '&%'
            or book_identifiers.ident_value like '%&' || excluded.ident_value
            or book_identifiers.ident_value like '%&' || excluded.ident_value || '&%'
        then book_identifiers.ident_value
        else book_identifiers.ident_value || '&' || excluded.ident_value
    end`
		if _, err := tx.ExecContext(ctx, appendService, bookID, serviceIdentifierType, serviceID); err != nil {
			return wrapPgErr(err, "append service identifier")
		}
	}

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if err := insertTag(ctx, tx, bookID, tag); err != nil {
			return err
		}
	}

	const upsertCustom = `
insert into book_custom_values (book_id, column_name, value)
values ($1, $2, $3)
on conflict (book_id, column_name) do update set value = excluded.value`
	for column, value := range customValues {
		if column == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertCustom, bookID, column, value); err != nil {
			return wrapPgErr(err, "upsert custom value")
		}
	}
	return nil
}

func insertTag(ctx context.Context, tx *sqlx.Tx, bookID int64, tag string) error {
	const insertTagQ = `
insert into book_tags (book_id, tag)
values ($1, $2)
on conflict (book_id, tag) do nothing`
	if _, err := tx.ExecContext(ctx, insertTagQ, bookID, tag); err != nil {
		return wrapPgErr(err, "insert tag")
	}
	return nil
}

func (r *repository) RecordEvent(ctx context.Context, ev model.LoanEvent) error {
	const q = `
insert into download_events (loan_id, title, format, status, error, occurred_at)
values ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, ev.LoanID, ev.Title, ev.Format, ev.Status, ev.Error, ev.OccurredAt)
	return err
}

func (r *repository) GetSetting(ctx context.Context, key string) (string, error) {
	query, args, err := qb.Select("value").
		From(settingsTableName).
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", err
	}
	var value string
	if err := r.db.GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *repository) SetSetting(ctx context.Context, key, value string) error {
	const q = `
insert into settings (key, value)
values ($1, $2)
on conflict (key) do update set value = excluded.value`
	_, err := r.db.ExecContext(ctx, q, key, value)
	return err
}

func wrapPgErr(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return errors.Wrap(errs.ErrConflict, msg)
	}
	return errors.Wrap(err, msg)
}
