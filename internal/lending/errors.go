package lending

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/shelfbridge/loansync-service/internal/errs"
)

// upstreamError is the error envelope the lending service returns on 4xx.
type upstreamError struct {
	Result   string `json:"result"`
	Upstream struct {
		UserExplanation string `json:"userExplanation"`
		ErrorCode       string `json:"errorCode"`
	} `json:"upstream"`
}

// statusError maps an upstream HTTP status to the service error taxonomy.
// Auth failures are never retried; transport-level failures are wrapped as
// NetworkError by the caller.
func statusError(statusCode int, body []byte) error {
	var ue upstreamError
	msg := http.StatusText(statusCode)
	if err := json.Unmarshal(body, &ue); err == nil && ue.Upstream.UserExplanation != "" {
		msg = fmt.Sprintf("%s [errorcode: %s]", ue.Upstream.UserExplanation, ue.Upstream.ErrorCode)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrap(errs.ErrAuth, msg)
	case http.StatusNotFound:
		return errors.Wrap(errs.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		return errors.Wrap(errs.ErrThrottled, msg)
	default:
		if statusCode >= 500 {
			return &errs.NetworkError{Err: errors.Errorf("upstream %d: %s", statusCode, msg)}
		}
		return errors.Errorf("upstream %d: %s", statusCode, msg)
	}
}
