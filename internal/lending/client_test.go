package lending_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/config"
	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/lending"
	"github.com/shelfbridge/loansync-service/internal/model"
)

func newTestClient(t *testing.T, srvURL string, retryAttempts int) *lending.Client {
	t.Helper()
	return lending.NewClient(zap.NewExample(), config.Lending{
		BaseURL:       srvURL,
		Timeout:       time.Second * 5,
		RetryAttempts: retryAttempts,
		RPS:           100,
		UserAgent:     "loansync-test",
	})
}

const syncBody = `{
	"result": "synchronized",
	"loans": [
		{
			"id": "111",
			"cardId": "c1",
			"title": "The Big Book: A Subtitle",
			"firstCreatorName": "Ann Author",
			"type": {"id": "ebook"},
			"formats": [
				{"id": "ebook-epub-adobe", "isbn": "9780000000001"},
				{"id": "ebook-epub-open", "isbn": "9780000000001"}
			],
			"checkoutDate": "2025-08-01T10:00:00Z",
			"expireDate": "2025-08-22T10:00:00Z",
			"publisherAccount": {"name": "Pub House"}
		}
	],
	"holds": [
		{
			"id": "222",
			"cardId": "c1",
			"title": "Waiting Title",
			"type": {"id": "ebook"},
			"isAvailable": false,
			"estimatedWaitDays": 14,
			"placedDate": "2025-07-15T08:00:00Z"
		}
	],
	"cards": [
		{
			"cardId": "c1",
			"advantageKey": "lib",
			"cardName": "My Card",
			"library": {"name": "City Library"},
			"limits": {"loan": 10, "hold": 8},
			"counts": {"loan": 3, "hold": 1},
			"lendingPeriods": {"book": {"preference": [14, "days"]}}
		}
	]
}`

func TestClient_SyncNormalization(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chip/sync", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(syncBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	client.SetToken("tok")

	snap, err := client.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Loans, 1)
	require.Len(t, snap.Holds, 1)
	require.Len(t, snap.Cards, 1)

	loan := snap.Loans[0]
	require.Equal(t, "111", loan.ID)
	require.Equal(t, model.MediaTypeEBook, loan.Type)
	require.Equal(t, "Pub House", loan.Publisher)
	require.Equal(t, "9780000000001", loan.ISBN(model.FormatEBookEPubOpen))
	require.Equal(t, time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC), loan.CheckoutDate)

	card := snap.Cards[0]
	require.Equal(t, "lib", card.AdvantageKey)
	require.Equal(t, "City Library", card.LibraryName)
	require.Equal(t, 14, card.LendingPeriodDays)
	require.True(t, card.CanBorrow())
	require.True(t, card.CanPlaceHold())
}

func TestClient_SyncRetriesTransient(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"result":"error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(syncBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2)
	client.SetToken("tok")

	snap, err := client.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Loans, 1)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_AuthErrorNoRetry(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"result":"error","upstream":{"userExplanation":"bad token","errorCode":"unauthorized"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	client.SetToken("expired")

	_, err := client.Sync(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrAuth))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_SyncUnexpectedResult(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"pending"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	client.SetToken("tok")

	_, err := client.Sync(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected result")
}

func TestClient_FulfillLoan(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/card/c1/loan/111/fulfill/ebook-epub-open", r.URL.Path)
		_, _ = w.Write([]byte("epub-bytes"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	client.SetToken("tok")

	data, err := client.FulfillLoan(context.Background(), "111", "c1", model.FormatEBookEPubOpen)
	require.NoError(t, err)
	require.Equal(t, []byte("epub-bytes"), data)
}

func TestClient_FulfillLoanRejectsNonDownloadable(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, "http://unused", 0)
	_, err := client.FulfillLoan(context.Background(), "111", "c1", model.FormatEBookKindle)
	require.True(t, errors.Is(err, errs.ErrFormatUnavailable))
}

func TestClient_ChipSetsToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "dewey", r.URL.Query().Get("client"))
		_, _ = w.Write([]byte(`{"chip":"x","identity":"new-token"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	identity, err := client.Chip(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-token", identity)
	require.Equal(t, "new-token", client.Token())
}

func TestClient_CloneByCodeSendsForm(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chip/clone/code", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "12345678", r.PostForm.Get("code"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	client.SetToken("tok")
	require.NoError(t, client.CloneByCode(context.Background(), "12345678"))
}
