package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// InitiatePaymentRequest is the abstract charge request sent to a provider
type InitiatePaymentRequest struct {
	Amount        int64                `json:"amount"`
	Currency      string               `json:"currency"`
	Method        models.PaymentMethod `json:"method"`
	CustomerPhone string               `json:"customer_phone"`
	Reference     string               `json:"reference,omitempty"`
}

// InitiatePaymentResponse is the provider's answer to a charge request.
// Status is usually pending; a sandbox provider may settle instantly and
// return paid, which callers must treat as a distinct explicit outcome.
type InitiatePaymentResponse struct {
	PaymentID   string               `json:"payment_id"`
	RedirectURL string               `json:"redirect_url"`
	Status      models.PaymentStatus `json:"status"`
}

// ProviderStatusResponse is a single status observation for a payment
type ProviderStatusResponse struct {
	Status       models.PaymentStatus `json:"status"`
	ProviderTxID string               `json:"provider_tx_id,omitempty"`
}

// PaymentGateway is the pull-only contract of the mobile-money providers:
// start a charge, then ask again later. No callback reaches this service
// directly.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	CheckPaymentStatus(ctx context.Context, method models.PaymentMethod, paymentID string) (*ProviderStatusResponse, error)
}

// ProviderClient talks JSON over HTTP to the wave and orange money APIs
type ProviderClient struct {
	httpClient    *http.Client
	waveBaseURL   string
	orangeBaseURL string
	logger        *zap.Logger
}

// NewProviderClient creates a new provider client
func NewProviderClient(waveBaseURL, orangeBaseURL string) *ProviderClient {
	return &ProviderClient{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		waveBaseURL:   waveBaseURL,
		orangeBaseURL: orangeBaseURL,
		logger:        util.GetLogger(),
	}
}

func (pc *ProviderClient) baseURL(method models.PaymentMethod) (string, error) {
	switch method {
	case models.PaymentMethodWave:
		return pc.waveBaseURL, nil
	case models.PaymentMethodOrangeMoney:
		return pc.orangeBaseURL, nil
	default:
		return "", fmt.Errorf("unsupported payment method: %s", method)
	}
}

// InitiatePayment starts a charge with the provider for the given method
func (pc *ProviderClient) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "ProviderClient.InitiatePayment")
	defer span.End()

	base, err := pc.baseURL(req.Method)
	if err != nil {
		return nil, err
	}

	util.PaymentInitiationsTotal.WithLabelValues(string(req.Method)).Inc()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initiation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment initiation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment initiation rejected: status %d", resp.StatusCode)
	}

	var out InitiatePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode initiation response: %w", err)
	}
	if out.PaymentID == "" {
		return nil, fmt.Errorf("provider returned no payment id")
	}

	pc.logger.Info("Payment initiated",
		zap.String("payment_id", out.PaymentID),
		zap.String("method", string(req.Method)),
		zap.String("status", string(out.Status)))

	return &out, nil
}

// CheckPaymentStatus asks the issuing provider for the current status of a payment
func (pc *ProviderClient) CheckPaymentStatus(ctx context.Context, method models.PaymentMethod, paymentID string) (*ProviderStatusResponse, error) {
	ctx, span := util.StartSpan(ctx, "ProviderClient.CheckPaymentStatus")
	defer span.End()

	base, err := pc.baseURL(method)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		util.PaymentStatusLatency.Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/payments/%s", base, paymentID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment status check rejected: status %d", resp.StatusCode)
	}

	var out ProviderStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &out, nil
}
