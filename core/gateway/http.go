package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m3rciful/hamoonbot/core/logger"
	"github.com/m3rciful/hamoonbot/core/netutil"
	"log/slog"
)

// Options configure the HTTP adapter. Endpoint URLs come from deployment
// configuration; unset endpoints fail their operation with ErrUnavailable.
type Options struct {
	AuthToken      string
	IdentityURL    string
	OrderNumberURL string
	OrderSerialURL string
	OrdersURL      string
	ComplaintURL   string
	RepairURL      string
	RatingURL      string
	Timeout        time.Duration
	Retries        int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient implements Client against the backend REST endpoints.
type HTTPClient struct {
	opts   Options
	client *http.Client
}

// NewHTTPClient builds the production gateway adapter.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPClient{opts: opts, client: client}
}

// VerifyIdentity checks whether a national id belongs to a known customer.
func (h *HTTPClient) VerifyIdentity(ctx context.Context, nationalID string) (*Identity, error) {
	var out Identity
	err := h.call(ctx, "verify_identity", h.opts.IdentityURL,
		map[string]string{"national_id": nationalID}, "", &out)
	if err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, ErrNotFound
	}
	if out.NationalID == "" {
		out.NationalID = nationalID
	}
	return &out, nil
}

// OrderByNumber looks an order up by its reception number.
func (h *HTTPClient) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	var out Order
	err := h.call(ctx, "order_by_number", h.opts.OrderNumberURL,
		map[string]string{"number": number}, "", &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderBySerial looks an order up by the device serial.
func (h *HTTPClient) OrderBySerial(ctx context.Context, serial string) (*Order, error) {
	var out Order
	err := h.call(ctx, "order_by_serial", h.opts.OrderSerialURL,
		map[string]string{"serial": serial}, "", &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OrdersByNationalID lists every order registered under a national id.
func (h *HTTPClient) OrdersByNationalID(ctx context.Context, nationalID string) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	err := h.call(ctx, "orders_by_national_id", h.opts.OrdersURL,
		map[string]string{"national_id": nationalID}, "", &out)
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// SubmitComplaint files a complaint with an idempotency token.
func (h *HTTPClient) SubmitComplaint(ctx context.Context, c Complaint, token string) (*Receipt, error) {
	var out Receipt
	if err := h.call(ctx, "submit_complaint", h.opts.ComplaintURL, c, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRepair files a new repair request with an idempotency token.
func (h *HTTPClient) SubmitRepair(ctx context.Context, r RepairRequest, token string) (*Receipt, error) {
	var out Receipt
	if err := h.call(ctx, "submit_repair", h.opts.RepairURL, r, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRating records a service score with an idempotency token. The backend
// acknowledges with a bare success, no receipt.
func (h *HTTPClient) SubmitRating(ctx context.Context, r Rating, token string) error {
	return h.call(ctx, "submit_rating", h.opts.RatingURL, r, token, nil)
}

// call POSTs a JSON body and decodes a JSON response, retrying transient
// failures. Business negatives are mapped from status codes and never retried.
func (h *HTTPClient) call(ctx context.Context, op, url string, body any, idemToken string, out any) error {
	if url == "" {
		return fmt.Errorf("%w: %s endpoint not configured", ErrUnavailable, op)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: encode %s: %w", op, err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < h.opts.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return classify(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("gateway: build %s request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if h.opts.AuthToken != "" {
			req.Header.Set("auth-token", h.opts.AuthToken)
		}
		if idemToken != "" {
			req.Header.Set("Idempotency-Key", idemToken)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			if netutil.ShouldRetry(err) && ctx.Err() == nil {
				continue
			}
			break
		}

		retry, err := h.handleResponse(op, resp, out)
		if err == nil {
			logger.Debug(ctx, "gateway", "api.call",
				slog.String("op", op),
				slog.String("status", "ok"),
				slog.Int("attempts", attempt+1),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	err = classify(lastErr)
	logger.Warn(ctx, "gateway", "api.call",
		slog.String("op", op),
		slog.String("status", "fail"),
		slog.Duration("duration", logger.Took(start)),
		slog.String("err", err.Error()),
	)
	return err
}

// handleResponse maps a status code to a typed outcome. The bool reports
// whether the failure is retryable.
func (h *HTTPClient) handleResponse(op string, resp *http.Response, out any) (bool, error) {
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, op, err)
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return false, ErrDuplicate
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%w: %s returned %d", ErrUnavailable, op, resp.StatusCode)
	default:
		return false, fmt.Errorf("%w: %s returned %d", ErrRejected, op, resp.StatusCode)
	}
}

// classify folds transport errors into the adapter's sentinel taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return ErrUnavailable
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrRejected), errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
