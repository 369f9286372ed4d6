package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the provider's REST API. It implements Gateway for real
// deployments; development mode runs the StubGateway instead.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient constructs a Client. The timeout bounds the whole request; the
// checkout initiator additionally applies its own context deadline.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type createSessionRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type createSessionResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	payload, err := json.Marshal(createSessionRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
		Description: req.Description,
		Metadata: map[string]string{
			"order_id": req.OrderID,
			"user_id":  req.UserID,
		},
	})
	if err != nil {
		return CheckoutResponse{}, fmt.Errorf("%w: encode request: %v", ErrGateway, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return CheckoutResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CheckoutResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CheckoutResponse{}, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CheckoutResponse{}, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, truncate(body, 256))
	}

	var out createSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return CheckoutResponse{}, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if out.ID == "" || out.RedirectURL == "" {
		return CheckoutResponse{}, fmt.Errorf("%w: incomplete session in response", ErrGateway)
	}

	res := CheckoutResponse{SessionID: out.ID, RedirectURL: out.RedirectURL}
	if out.ExpiresAt > 0 {
		res.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	}
	return res, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
