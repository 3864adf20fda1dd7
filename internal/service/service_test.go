package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/config"
	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
	"github.com/shelfbridge/loansync-service/internal/repository"
	"github.com/shelfbridge/loansync-service/internal/service"
)

type stubClient struct {
	service.LendingClient

	mu          sync.Mutex
	token       string
	fulfillErr  map[string]error
	fulfilled   []string
	returnedIDs []string
}

func (s *stubClient) Token() string { return s.token }
func (s *stubClient) SetToken(t string) {
	s.token = t
}

func (s *stubClient) FulfillLoan(ctx context.Context, loanID, cardID string, format model.FormatID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fulfillErr[loanID]; ok {
		return nil, err
	}
	s.fulfilled = append(s.fulfilled, loanID)
	return []byte("artifact"), nil
}

func (s *stubClient) ReturnLoan(ctx context.Context, loanID, cardID string) error {
	s.returnedIDs = append(s.returnedIDs, loanID)
	return nil
}

type stubCatalog struct {
	snap        *model.Snapshot
	invalidated int
}

func (s *stubCatalog) Snapshot(ctx context.Context, force bool) (*model.Snapshot, error) {
	return s.snap, nil
}

func (s *stubCatalog) Invalidate() { s.invalidated++ }

type stubRepo struct {
	repository.Repository

	mu        sync.Mutex
	index     []model.BookRef
	nextID    int64
	created   []repository.CreateParams
	attached  []repository.AttachParams
	settings  map[string]string
	createErr map[string]error
	attachErr map[int64]error
}

func (s *stubRepo) BookIndex(ctx context.Context) ([]model.BookRef, error) {
	return s.index, nil
}

func (s *stubRepo) CreateBook(ctx context.Context, p repository.CreateParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.createErr[p.Title]; ok {
		return 0, err
	}
	s.nextID++
	s.created = append(s.created, p)
	return s.nextID, nil
}

func (s *stubRepo) AttachToBook(ctx context.Context, p repository.AttachParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.attachErr[p.BookID]; ok {
		return err
	}
	s.attached = append(s.attached, p)
	return nil
}

func (s *stubRepo) GetSetting(ctx context.Context, key string) (string, error) {
	if v, ok := s.settings[key]; ok {
		return v, nil
	}
	return "", errs.ErrNotFound
}

func (s *stubRepo) SetSetting(ctx context.Context, key, value string) error {
	if s.settings == nil {
		s.settings = map[string]string{}
	}
	s.settings[key] = value
	return nil
}

type stubEnqueuer struct {
	mu     sync.Mutex
	events []model.LoanEvent
}

func (s *stubEnqueuer) Enqueue(topic string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, v.(model.LoanEvent))
	return nil
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Loans: []model.LoanRecord{
			{
				ID:               "loan-ok",
				CardID:           "c1",
				Title:            "First Title",
				FirstCreatorName: "Ann Author",
				Type:             model.MediaTypeEBook,
				Formats: []model.Format{
					{ID: model.FormatEBookEPubOpen, ISBN: "9780000000001"},
				},
				CheckoutDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
				ExpireDate:   time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:     "loan-bad",
				CardID: "c1",
				Title:  "Second Title",
				Type:   model.MediaTypeEBook,
				Formats: []model.Format{
					{ID: model.FormatEBookEPubAdobe},
				},
			},
			{
				ID:     "loan-audio",
				CardID: "c1",
				Title:  "Audio Title",
				Type:   model.MediaTypeAudiobook,
				Formats: []model.Format{
					{ID: model.FormatAudioBookMP3},
				},
			},
		},
		Cards: []model.CardRecord{
			{ID: "c1", AdvantageKey: "lib", LendingPeriodDays: 14, LoanLimit: 10, HoldLimit: 5},
		},
		SyncedAt: time.Now(),
	}
}

func newTestService(t *testing.T, client *stubClient, cat *stubCatalog, repo *stubRepo, enq service.Enqueuer, opts config.Options) *service.Service {
	t.Helper()
	if opts.MaxConcurrentDownloads == 0 {
		opts.MaxConcurrentDownloads = 2
	}
	cfg := &config.Config{
		Options: opts,
		Sync:    config.Sync{DownloadDir: t.TempDir()},
	}
	return service.New(zap.NewExample(), cfg, client, cat, repo, enq)
}

func TestService_DownloadBatch(t *testing.T) {
	t.Parallel()
	client := &stubClient{
		token:      "tok",
		fulfillErr: map[string]error{"loan-bad": errors.New("fulfill blew up")},
	}
	cat := &stubCatalog{snap: testSnapshot()}
	repo := &stubRepo{}
	enq := &stubEnqueuer{}
	svc := newTestService(t, client, cat, repo, enq, config.Options{PreferOpenFormats: true})

	results, err := svc.Download(context.Background(),
		[]string{"loan-ok", "loan-bad", "loan-ok", "loan-missing", "loan-audio"})
	require.NoError(t, err)
	// duplicates collapse to one job each
	require.Len(t, results, 4)

	byID := map[string]model.DownloadResult{}
	for _, r := range results {
		byID[r.LoanID] = r
	}

	ok := byID["loan-ok"]
	require.Equal(t, model.DownloadStatusOK, ok.Status)
	require.Equal(t, model.FormatEBookEPubOpen, ok.Format)
	require.True(t, ok.Created)
	require.NotZero(t, ok.BookID)

	bad := byID["loan-bad"]
	require.Equal(t, model.DownloadStatusFailed, bad.Status)
	require.Contains(t, bad.Error, "fulfill blew up")

	missing := byID["loan-missing"]
	require.Equal(t, model.DownloadStatusFailed, missing.Status)

	audio := byID["loan-audio"]
	require.Equal(t, model.DownloadStatusSkip, audio.Status)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	require.Equal(t, "First Title", created.Title)
	require.Equal(t, "Ann Author", created.Author)
	require.NotNil(t, created.Format)
	require.Equal(t, "loan-ok@lib.overdrive.com", created.ServiceID)
	require.Equal(t, "9780000000001", created.Identifiers["isbn"])

	// one audit event per attempted loan
	require.Len(t, enq.events, 4)
}

func TestService_DownloadAttachesToEmptyRecord(t *testing.T) {
	t.Parallel()
	client := &stubClient{token: "tok"}
	cat := &stubCatalog{snap: testSnapshot()}
	repo := &stubRepo{
		index: []model.BookRef{
			{
				ID:          7,
				Title:       "First Title",
				FormatCount: 0,
				Identifiers: map[string]string{"odid": "loan-ok@lib.overdrive.com"},
			},
		},
	}
	svc := newTestService(t, client, cat, repo, nil, config.Options{
		PreferOpenFormats:   true,
		MarkUpdatedBooks:    true,
		TagEbooks:           "library,ebook",
		CustColBorrowedDate: "#borrowed",
		CustColDueDate:      "#due",
	})

	results, err := svc.Download(context.Background(), []string{"loan-ok"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.DownloadStatusOK, results[0].Status)
	require.EqualValues(t, 7, results[0].BookID)
	require.False(t, results[0].Created)

	require.Empty(t, repo.created)
	require.Len(t, repo.attached, 1)
	attached := repo.attached[0]
	require.EqualValues(t, 7, attached.BookID)
	require.True(t, attached.MarkUpdated)
	require.Equal(t, []string{"library", "ebook"}, attached.Tags)
	require.Equal(t, "2025-08-01T00:00:00Z", attached.CustomValues["#borrowed"])
	require.Equal(t, "2025-08-22T00:00:00Z", attached.CustomValues["#due"])
}

func TestService_DownloadStorageWriteFailure(t *testing.T) {
	t.Parallel()
	client := &stubClient{token: "tok"}
	snap := testSnapshot()
	snap.Loans = []model.LoanRecord{
		{
			ID: "loan-a", CardID: "c1", Title: "Title A", Type: model.MediaTypeEBook,
			Formats: []model.Format{{ID: model.FormatEBookEPubOpen}},
		},
		{
			ID: "loan-b", CardID: "c1", Title: "Title B", Type: model.MediaTypeEBook,
			Formats: []model.Format{{ID: model.FormatEBookEPubOpen}},
		},
		{
			ID: "loan-c", CardID: "c1", Title: "Title C", Type: model.MediaTypeEBook,
			Formats: []model.Format{{ID: model.FormatEBookEPubOpen}},
		},
	}
	cat := &stubCatalog{snap: snap}
	repo := &stubRepo{
		createErr: map[string]error{"Title B": errors.New("insert failed")},
	}
	enq := &stubEnqueuer{}
	svc := newTestService(t, client, cat, repo, enq, config.Options{PreferOpenFormats: true})

	results, err := svc.Download(context.Background(), []string{"loan-a", "loan-b", "loan-c"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]model.DownloadResult{}
	for _, r := range results {
		byID[r.LoanID] = r
	}
	require.Equal(t, model.DownloadStatusOK, byID["loan-a"].Status)
	require.Equal(t, model.DownloadStatusOK, byID["loan-c"].Status)

	failed := byID["loan-b"]
	require.Equal(t, "loan-b", failed.LoanID)
	require.Equal(t, model.DownloadStatusFailed, failed.Status)
	require.Contains(t, failed.Error, "insert failed")

	// only the two surviving loans produced records
	require.Len(t, repo.created, 2)
	require.Len(t, enq.events, 3)
}

func TestService_DownloadAgainstNonEmptyRecordCreates(t *testing.T) {
	t.Parallel()
	client := &stubClient{token: "tok"}
	cat := &stubCatalog{snap: testSnapshot()}
	repo := &stubRepo{
		// the record for this loan already carries an attached format, so
		// matching skips it and a fresh record is created
		index: []model.BookRef{
			{
				ID:          7,
				Title:       "First Title",
				FormatCount: 1,
				Identifiers: map[string]string{"odid": "loan-ok@lib.overdrive.com"},
			},
		},
	}
	svc := newTestService(t, client, cat, repo, nil, config.Options{PreferOpenFormats: true})

	results, err := svc.Download(context.Background(), []string{"loan-ok"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.DownloadStatusOK, results[0].Status)
	require.True(t, results[0].Created)
	require.NotEqualValues(t, 7, results[0].BookID)

	require.Empty(t, repo.attached)
	require.Len(t, repo.created, 1)
}

func TestService_SyncRequiresSetup(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	cat := &stubCatalog{snap: testSnapshot()}
	svc := newTestService(t, client, cat, &stubRepo{}, nil, config.Options{})

	_, err := svc.Sync(context.Background(), false)
	require.True(t, errors.Is(err, errs.ErrNotConfigured))
}

func TestService_LoadToken(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	repo := &stubRepo{settings: map[string]string{service.TokenSettingKey: "stored-token"}}
	svc := newTestService(t, client, &stubCatalog{snap: testSnapshot()}, repo, nil, config.Options{})

	require.NoError(t, svc.LoadToken(context.Background()))
	require.Equal(t, "stored-token", client.Token())

	// a missing setting is not an error, just stays unconfigured
	client2 := &stubClient{}
	svc2 := newTestService(t, client2, &stubCatalog{snap: testSnapshot()}, &stubRepo{}, nil, config.Options{})
	require.NoError(t, svc2.LoadToken(context.Background()))
	require.Empty(t, client2.Token())
}

func TestService_LoansFilters(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()
	snap.Loans = append(snap.Loans, model.LoanRecord{
		ID:     "loan-mag",
		CardID: "c1",
		Title:  "A Magazine",
		Type:   model.MediaTypeMagazine,
		Formats: []model.Format{
			{ID: model.FormatMagazineOverDrive},
		},
	})
	client := &stubClient{token: "tok"}
	cat := &stubCatalog{snap: snap}

	svc := newTestService(t, client, cat, &stubRepo{}, nil, config.Options{})
	loans, err := svc.Loans(context.Background())
	require.NoError(t, err)
	// audiobook dropped, ebooks and magazine kept
	require.Len(t, loans, 3)

	svc2 := newTestService(t, client, cat, &stubRepo{}, nil, config.Options{HideEbooks: true})
	loans, err = svc2.Loans(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, "loan-mag", loans[0].ID)

	svc3 := newTestService(t, client, cat, &stubRepo{}, nil, config.Options{HideMagazines: true, IncludeNonDownloadable: true})
	loans, err = svc3.Loans(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 3)
}

func TestService_LoansHideAlreadyInLibrary(t *testing.T) {
	t.Parallel()
	client := &stubClient{token: "tok"}
	cat := &stubCatalog{snap: testSnapshot()}
	repo := &stubRepo{
		index: []model.BookRef{
			{ID: 1, Title: "First Title", FormatCount: 1, Identifiers: map[string]string{}},
			// an empty placeholder never hides a loan
			{ID: 2, Title: "Second Title", FormatCount: 0, Identifiers: map[string]string{}},
		},
	}
	svc := newTestService(t, client, cat, repo, nil, config.Options{HideBooksAlreadyInLibrary: true})

	loans, err := svc.Loans(context.Background())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, "loan-bad", loans[0].ID)
}

func TestService_ReturnLoanInvalidatesCatalog(t *testing.T) {
	t.Parallel()
	client := &stubClient{token: "tok"}
	cat := &stubCatalog{snap: testSnapshot()}
	svc := newTestService(t, client, cat, &stubRepo{}, nil, config.Options{})

	require.NoError(t, svc.ReturnLoan(context.Background(), "loan-ok"))
	require.Equal(t, []string{"loan-ok"}, client.returnedIDs)
	require.Equal(t, 1, cat.invalidated)

	err := svc.ReturnLoan(context.Background(), "nope")
	require.True(t, errors.Is(err, errs.ErrLoanNotInSnapshot))
}
