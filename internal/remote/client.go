// Package remote talks to the action-dispatched HTTP endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/config"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
)

// RequestIDHeader carries a per-call id for correlating logs.
const RequestIDHeader = "X-Request-Id"

// Client implements api.API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	listingTTL time.Duration
	log        *slog.Logger
}

var _ api.API = (*Client)(nil)

// New builds a client for baseURL. Calls are bounded by timeout.
func New(baseURL string, timeout, listingTTL time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		listingTTL: listingTTL,
		log:        log,
	}
}

func NewFromConfig(cfg *config.Config, log *slog.Logger) *Client {
	return New(cfg.Remote.BaseURL, cfg.Remote.Timeout, cfg.App.ListingTTL, log)
}

// do sends one action and decodes the JSON answer into out (if non-nil).
//
// Behavior:
//   - 402 → errors.ErrServiceUnavailable.
//   - 400, 401, 403, 404, 409 → the matching local error.
//   - other non-2xx → *errors.RemoteError with the body's "error" text.
//   - transport failures are returned wrapped.
func (c *Client) do(ctx context.Context, method, action string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("action", action)
	target := c.baseURL + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", action, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", action, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote %s: %w", action, err)
	}
	defer resp.Body.Close()

	c.log.Debug("remote call", "action", action, "method", method, "status", resp.StatusCode,
		"request_id", reqID, "took", time.Since(start))

	if err := handleStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	return nil
}

func handleStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return apperr.ErrServiceUnavailable
	}
	var body api.ErrorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperr.Validation(body.Error)
	case http.StatusUnauthorized:
		return rejected(body.Error, apperr.ErrUnauthenticated)
	case http.StatusForbidden:
		return rejected(body.Error, apperr.ErrForbidden)
	case http.StatusNotFound:
		return rejected(body.Error, apperr.ErrNotFound)
	case http.StatusConflict:
		return rejected(body.Error, apperr.ErrDuplicate)
	}
	return &apperr.RemoteError{StatusCode: resp.StatusCode, Message: body.Error}
}

func rejected(msg string, sentinel error) error {
	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("remote: %s: %w", msg, sentinel)
}

// IsTransient reports whether err means the remote could not serve the
// call: a transport failure, a 402 or a 5xx. Answers the remote gave on
// purpose (4xx) and local validation are final.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, apperr.ErrServiceUnavailable):
		return true
	case apperr.IsValidation(err),
		errors.Is(err, apperr.ErrDuplicate),
		errors.Is(err, apperr.ErrUnauthenticated),
		errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, apperr.ErrNotFound):
		return false
	}
	var re *apperr.RemoteError
	if errors.As(err, &re) {
		return re.StatusCode >= 500 || re.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// noTarget turns the endpoint's 404 back into the silent no-op the local
// service returns for a mutation whose target is gone.
func noTarget(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) Register(ctx context.Context, in model.Credentials) (*model.User, error) {
	return c.authenticate(ctx, api.ActionRegister, in)
}

func (c *Client) Login(ctx context.Context, in model.Credentials) (*model.User, error) {
	return c.authenticate(ctx, api.ActionLogin, in)
}

func (c *Client) authenticate(ctx context.Context, action string, in model.Credentials) (*model.User, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	var out api.User
	if err := c.do(ctx, http.MethodPost, action, nil, in, &out); err != nil {
		return nil, err
	}
	u := out.Model()
	return &u, nil
}

func (c *Client) GetListings(ctx context.Context) ([]model.Listing, error) {
	var out []api.Listing
	if err := c.do(ctx, http.MethodGet, api.ActionListings, nil, nil, &out); err != nil {
		return nil, err
	}
	return api.Convert(out, func(l api.Listing) model.Listing { return l.Model(c.listingTTL) }), nil
}

func (c *Client) CreateListing(ctx context.Context, in model.ListingInput) (*model.Listing, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if in.GameURL != "" && in.GameName == "" {
		name, ok := model.ExtractGameName(in.GameURL)
		if !ok {
			return nil, apperr.InvalidField("gameUrl", "not a game page link")
		}
		in.GameName = name
	}
	var out api.Listing
	if err := c.do(ctx, http.MethodPost, api.ActionListing, nil, in, &out); err != nil {
		return nil, noTarget(err)
	}
	l := out.Model(c.listingTTL)
	return &l, nil
}

func (c *Client) DeleteListing(ctx context.Context, id int64) error {
	return noTarget(c.do(ctx, http.MethodDelete, api.ActionListing, idQuery("id", id), nil, nil))
}

func (c *Client) GetMessages(ctx context.Context, userID int64) ([]model.Message, error) {
	var q url.Values
	if userID != 0 {
		q = idQuery("userId", userID)
	}
	var out []api.Message
	if err := c.do(ctx, http.MethodGet, api.ActionMessages, q, nil, &out); err != nil {
		return nil, err
	}
	return api.Convert(out, api.Message.Model), nil
}

func (c *Client) SendMessage(ctx context.Context, in model.MessageInput) (*model.Message, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	var out api.Message
	if err := c.do(ctx, http.MethodPost, api.ActionMessage, nil, in, &out); err != nil {
		return nil, noTarget(err)
	}
	m := out.Model()
	return &m, nil
}

func (c *Client) DeleteMessage(ctx context.Context, id int64) error {
	return noTarget(c.do(ctx, http.MethodDelete, api.ActionMessage, idQuery("id", id), nil, nil))
}

func (c *Client) GetUsers(ctx context.Context) ([]model.User, error) {
	var out []api.User
	if err := c.do(ctx, http.MethodGet, api.ActionUsers, nil, nil, &out); err != nil {
		return nil, err
	}
	return api.Convert(out, api.User.Model), nil
}

func (c *Client) CreateReport(ctx context.Context, in model.ReportInput) (*model.Report, error) {
	in.Normalize()
	if err := model.ValidateReport(in); err != nil {
		return nil, err
	}
	var out api.Report
	if err := c.do(ctx, http.MethodPost, api.ActionReport, nil, in, &out); err != nil {
		return nil, noTarget(err)
	}
	r := out.Model()
	return &r, nil
}

func (c *Client) GetReports(ctx context.Context) ([]model.Report, error) {
	var out []api.Report
	if err := c.do(ctx, http.MethodGet, api.ActionReports, nil, nil, &out); err != nil {
		return nil, err
	}
	return api.Convert(out, api.Report.Model), nil
}

// DismissReport sends DELETE report. An already removed report is a no-op.
func (c *Client) DismissReport(ctx context.Context, actorID, reportID int64) error {
	return noTarget(c.do(ctx, http.MethodDelete, api.ActionReport, moderation(actorID, reportID), nil, nil))
}

// DeleteAccount sends DELETE user; the remote applies the cascade.
func (c *Client) DeleteAccount(ctx context.Context, actorID, userID int64) error {
	return noTarget(c.do(ctx, http.MethodDelete, api.ActionUser, moderation(actorID, userID), nil, nil))
}

func (c *Client) CreateReview(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	var out api.Review
	if err := c.do(ctx, http.MethodPost, api.ActionReview, nil, in, &out); err != nil {
		return nil, noTarget(err)
	}
	r := out.Model()
	return &r, nil
}

func (c *Client) GetReviews(ctx context.Context, userID int64) ([]model.Review, error) {
	var q url.Values
	if userID != 0 {
		q = idQuery("userId", userID)
	}
	var out []api.Review
	if err := c.do(ctx, http.MethodGet, api.ActionReviews, q, nil, &out); err != nil {
		return nil, err
	}
	return api.Convert(out, api.Review.Model), nil
}

func moderation(actorID, id int64) url.Values {
	q := idQuery("id", id)
	q.Set("actorId", strconv.FormatInt(actorID, 10))
	return q
}

func idQuery(name string, id int64) url.Values {
	return url.Values{name: []string{strconv.FormatInt(id, 10)}}
}
