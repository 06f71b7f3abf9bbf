package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shipgrid/backend-import/internal/resilience"
)

// Stripe creates Checkout Sessions through the Stripe REST API.
type Stripe struct {
	SecretKey string
	BaseURL   string
	HTTP      resilience.HTTPClient
}

// Name identifies the provider in metrics and responses.
func (Stripe) Name() string { return "stripe" }

// CreateCheckoutSession posts a one-line payment session to /v1/checkout/sessions.
func (s Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	if strings.TrimSpace(s.SecretKey) == "" {
		return Session{}, fmt.Errorf("%w: stripe secret key not configured", ErrProviderUnavailable)
	}
	form := encodeSessionForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.ClientReferenceID != "" {
		httpReq.Header.Set("Idempotency-Key", req.ClientReferenceID)
	}

	resp, err := s.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return Session{}, fmt.Errorf("%w: %s %s", ErrProviderRejected, resp.Status, apiErr.Error.Message)
	}
	var out struct {
		ID        string `json:"id"`
		URL       string `json:"url"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Session{}, fmt.Errorf("%w: decode session: %v", ErrProviderUnavailable, err)
	}
	if out.URL == "" {
		return Session{}, errors.New("deposit: stripe returned a session without url")
	}
	return Session{Provider: s.Name(), ID: out.ID, URL: out.URL, ExpiresAt: out.ExpiresAt}, nil
}

func (s Stripe) endpoint() string {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return base + "/v1/checkout/sessions"
}

func encodeSessionForm(req SessionRequest) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.ClientReferenceID != "" {
		form.Set("client_reference_id", req.ClientReferenceID)
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Name)
	if req.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", req.Description)
	}
	for i, img := range req.Images {
		form.Set(fmt.Sprintf("line_items[0][price_data][product_data][images][%d]", i), img)
	}
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", req.Metadata[k])
	}
	return form
}
