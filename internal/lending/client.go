package lending

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shelfbridge/loansync-service/config"
	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
	cb "github.com/shelfbridge/loansync-service/pkg/circuit_breaker"
)

// Client talks to the lending service. The wire contract (endpoints, format
// tags, JSON shapes) is owned by the service and consumed as-is.
type Client struct {
	log     *zap.Logger
	client  *http.Client
	cfg     config.Lending
	limiter *rate.Limiter
	breaker cb.CircuitBreaker

	mu    sync.RWMutex
	token string
}

func NewClient(log *zap.Logger, cfg config.Lending) *Client {
	return &Client{
		log:     log.Named("lending"),
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		breaker: cb.New(10, time.Second*30, 0.5, 2),
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Chip obtains a fresh identity token from the service.
func (c *Client) Chip(ctx context.Context) (string, error) {
	var res struct {
		Chip     string `json:"chip"`
		Identity string `json:"identity"`
	}
	if err := c.send(ctx, http.MethodPost, "chip?client=dewey", nil, &res); err != nil {
		return "", err
	}
	if res.Identity == "" {
		return "", errors.New("chip: empty identity in response")
	}
	c.SetToken(res.Identity)
	return res.Identity, nil
}

// CloneByCode links the current identity token to the account that issued the
// 8-digit setup code. An invalid or expired code surfaces as an auth error.
func (c *Client) CloneByCode(ctx context.Context, code string) error {
	form := url.Values{"code": {code}}
	req, err := c.newRequest(ctx, http.MethodPost, "chip/clone/code", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = c.roundTrip(req)
	return err
}

// Sync fetches the full account state: loans, holds and cards. Transient
// failures are retried a bounded number of times.
func (c *Client) Sync(ctx context.Context) (*model.Snapshot, error) {
	var res syncResponse
	err := c.withRetry(ctx, func() error {
		return c.send(ctx, http.MethodGet, "chip/sync", nil, &res)
	})
	if err != nil {
		return nil, err
	}
	if res.Result != "synchronized" {
		return nil, errors.Errorf("sync: unexpected result %q", res.Result)
	}
	return res.toSnapshot(), nil
}

// FulfillLoan downloads the artifact for the given loan and format. Open
// epub/pdf fulfillment redirects to a CDN; redirects are followed.
func (c *Client) FulfillLoan(ctx context.Context, loanID, cardID string, format model.FormatID) ([]byte, error) {
	if !format.IsDownloadable() {
		return nil, errors.Wrapf(errs.ErrFormatUnavailable, "format %q", format)
	}
	var data []byte
	err := c.withRetry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet,
			fmt.Sprintf("card/%s/loan/%s/fulfill/%s", cardID, loanID, format), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "*/*")
		data, err = c.roundTrip(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) ReturnLoan(ctx context.Context, loanID, cardID string) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("card/%s/loan/%s", cardID, loanID), nil, nil)
}

type circulationBody struct {
	Period      int    `json:"period"`
	Units       string `json:"units"`
	LuckyDay    *int   `json:"lucky_day"`
	TitleFormat string `json:"title_format"`
}

func (c *Client) BorrowTitle(ctx context.Context, titleID, cardID string, mediaType model.MediaType, days int) (model.LoanRecord, error) {
	if days <= 0 {
		days = 21
	}
	var loan loanJSON
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("card/%s/loan/%s", cardID, titleID),
		circulationBody{Period: days, Units: "days", TitleFormat: string(mediaType)}, &loan)
	if err != nil {
		return model.LoanRecord{}, err
	}
	return loan.toRecord(), nil
}

func (c *Client) RenewLoan(ctx context.Context, loanID, cardID string, mediaType model.MediaType, days int) (model.LoanRecord, error) {
	if days <= 0 {
		days = 21
	}
	var loan loanJSON
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("card/%s/loan/%s", cardID, loanID),
		circulationBody{Period: days, Units: "days", TitleFormat: string(mediaType)}, &loan)
	if err != nil {
		return model.LoanRecord{}, err
	}
	return loan.toRecord(), nil
}

type holdBody struct {
	DaysToSuspend int    `json:"days_to_suspend"`
	EmailAddress  string `json:"email_address"`
}

func (c *Client) CreateHold(ctx context.Context, titleID, cardID string) (model.HoldRecord, error) {
	var hold holdJSON
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("card/%s/hold/%s", cardID, titleID),
		holdBody{}, &hold)
	if err != nil {
		return model.HoldRecord{}, err
	}
	return hold.toRecord(), nil
}

// CancelHold is idempotent: canceling an already-canceled hold is a no-op
// upstream.
func (c *Client) CancelHold(ctx context.Context, holdID, cardID string) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("card/%s/hold/%s", cardID, holdID), nil, nil)
}

func (c *Client) SuspendHold(ctx context.Context, holdID, cardID string, days int) (model.HoldRecord, error) {
	var hold holdJSON
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("card/%s/hold/%s", cardID, holdID),
		holdBody{DaysToSuspend: days}, &hold)
	if err != nil {
		return model.HoldRecord{}, err
	}
	return hold.toRecord(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+"/"+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b := bytes.NewBuffer(nil)
		if err := json.NewEncoder(b).Encode(body); err != nil {
			return err
		}
		rdr = b
	}
	req, err := c.newRequest(ctx, method, path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	data, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	var data []byte
	err := c.breaker.Call(func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return &errs.NetworkError{Err: err}
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return &errs.NetworkError{Err: err}
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return statusError(resp.StatusCode, data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// withRetry retries transient failures up to the configured attempts with
// exponential backoff. Auth and client errors surface immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errs.IsRetryable(err) || attempt >= c.cfg.RetryAttempts {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		if backoff > time.Second*10 {
			backoff = time.Second * 10
		}
		c.log.Warn("retrying after transient failure",
			zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	if c.cfg.RetryAttempts > 0 && errs.IsRetryable(err) {
		return errors.Wrapf(err, "after %d attempts", c.cfg.RetryAttempts+1)
	}
	return err
}
