package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the server reports HTTP 404.
var ErrNotFound = errors.New("not found")

// AmountRecord is a quantity of some settlement unit.
type AmountRecord struct {
	Quantity int64  `json:"quantity"`
	Unit     string `json:"unit"`
}

// StateRecord is the wire form of a ledger state. Kind selects which of the
// optional field sets must be populated: "commercial_paper", "iou", or
// "payment".
type StateRecord struct {
	Kind string `json:"kind"`

	Issuer     string        `json:"issuer,omitempty"`
	FaceValue  *AmountRecord `json:"face_value,omitempty"`
	MaturityAt *time.Time    `json:"maturity_at,omitempty"`

	Lender   string `json:"lender,omitempty"`
	Borrower string `json:"borrower,omitempty"`

	Owner  string        `json:"owner,omitempty"`
	Amount *AmountRecord `json:"amount,omitempty"`
}

// CommandRecord is the wire form of a transaction command. Signers are
// hex-encoded Ed25519 public keys.
type CommandRecord struct {
	Kind    string   `json:"kind"`
	Signers []string `json:"signers"`
}

// WindowRecord is the wire form of a transaction time window.
type WindowRecord struct {
	NotBefore *time.Time `json:"not_before,omitempty"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
}

// VerifyRequest is the payload for Verify.
type VerifyRequest struct {
	Contract string          `json:"contract"`
	Inputs   []StateRecord   `json:"inputs,omitempty"`
	Outputs  []StateRecord   `json:"outputs,omitempty"`
	Commands []CommandRecord `json:"commands"`
	Window   *WindowRecord   `json:"window,omitempty"`
}

// Verdict is the result of one transaction verification.
type Verdict struct {
	ID            string    `json:"id"`
	TxDigest      string    `json:"tx_digest"`
	Contract      string    `json:"contract"`
	Outcome       string    `json:"outcome"`
	ViolationCode string    `json:"violation_code,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Accepted reports whether the verdict accepted the transaction.
func (v *Verdict) Accepted() bool { return v.Outcome == "accepted" }

// AuditOverview holds the audit log chain length and root hash.
type AuditOverview struct {
	Entries int    `json:"entries"`
	Root    string `json:"root"`
}

// AuditEntry is a single record of the audit log chain.
type AuditEntry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	TxDigest  string    `json:"tx_digest"`
	Contract  string    `json:"contract"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	DataHash  string    `json:"data_hash"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Client is the Indenture SDK entry point.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a session token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// New creates a Client for the verifier at base.
func New(base string, opts ...Option) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Verify submits a transaction for verification and returns the verdict.
func (c *Client) Verify(ctx context.Context, req *VerifyRequest) (*Verdict, error) {
	var verdict Verdict
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/verify", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// GetVerdict fetches a stored verdict by ID.
func (c *Client) GetVerdict(ctx context.Context, id string) (*Verdict, error) {
	var verdict Verdict
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/verdicts/"+url.PathEscape(id), nil, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// GetVerdictByDigest fetches the stored verdict for a transaction digest.
func (c *Client) GetVerdictByDigest(ctx context.Context, digest string) (*Verdict, error) {
	var resp struct {
		Verdicts []*Verdict `json:"verdicts"`
	}
	path := "/api/v1/verdicts?digest=" + url.QueryEscape(digest)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Verdicts) == 0 {
		return nil, ErrNotFound
	}
	return resp.Verdicts[0], nil
}

// ListVerdicts lists verdicts newest first. outcome filters by
// "accepted"/"rejected"; empty returns all.
func (c *Client) ListVerdicts(ctx context.Context, outcome string, limit, offset int) ([]*Verdict, error) {
	q := url.Values{}
	if outcome != "" {
		q.Set("outcome", outcome)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/api/v1/verdicts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Verdicts []*Verdict `json:"verdicts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Verdicts, nil
}

// AuditOverview returns the audit log chain length and root hash.
func (c *Client) AuditOverview(ctx context.Context) (*AuditOverview, error) {
	var overview AuditOverview
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/audit", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

// AuditVerify walks the full audit chain server-side and reports integrity.
func (c *Client) AuditVerify(ctx context.Context) (bool, string, error) {
	var resp struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/audit/verify", nil, &resp); err != nil {
		return false, "", err
	}
	return resp.Valid, resp.Error, nil
}

// GetAuditEntry fetches a single audit log entry by index.
func (c *Client) GetAuditEntry(ctx context.Context, idx int) (*AuditEntry, error) {
	var entry AuditEntry
	path := "/api/v1/audit/entries/" + strconv.Itoa(idx)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// IssueToken exchanges the admin secret for a session token with the given role.
func (c *Client) IssueToken(ctx context.Context, secret, subject, role string) (string, error) {
	body := map[string]string{"secret": secret, "subject": subject, "role": role}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/token", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// doJSON executes a JSON request against the verifier API.
// respBody may be nil when the response payload is not needed.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: %s", string(raw))
	case resp.StatusCode >= 300:
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(raw))
	}

	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
