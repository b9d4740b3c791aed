package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"chemshop-be/internal/config"
	"chemshop-be/internal/logger"

	"go.uber.org/zap"
)

const tokenSafetyMargin = 30 * time.Second

var ErrGatewayAuth = errors.New("bank gateway authentication failed")

type tbiGateway struct {
	baseURL         string
	subscriptionKey string
	username        string
	password        string
	httpClient      *http.Client
	now             func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewTBIGateway builds the adapter for TBI Bank's POS Online API. The clock
// is injectable so the token lease can be tested without sleeping.
func NewTBIGateway(cfg *config.Config) Gateway {
	if cfg.TBISubscriptionKey == "" {
		logger.L().Warn("TBI subscription key is empty")
	}

	return &tbiGateway{
		baseURL:         cfg.TBIBaseURL,
		subscriptionKey: cfg.TBISubscriptionKey,
		username:        cfg.TBIUsername,
		password:        cfg.TBIPassword,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// ----------------- Authentication -----------------

type tbiAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	Email     string `json:"email"`
}

func (g *tbiGateway) authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": g.username,
		"password": g.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/User/authorize", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.FromCtx(ctx).Error("TBI authorize request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.FromCtx(ctx).Error("TBI authorize returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return fmt.Errorf("%w: status %d", ErrGatewayAuth, resp.StatusCode)
	}

	var auth tbiAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}

	g.token = auth.Token
	g.tokenExpiry = g.now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	logger.FromCtx(ctx).Info("TBI token refreshed",
		zap.Time("expires_at", g.tokenExpiry),
	)
	return nil
}

// ensureToken returns a bearer token, re-authenticating when the current
// lease is within the safety margin of expiry.
func (g *tbiGateway) ensureToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == "" || !g.now().Add(tokenSafetyMargin).Before(g.tokenExpiry) {
		if err := g.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return g.token, nil
}

func (g *tbiGateway) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	token, err := g.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)
	req.Header.Set("Authorization", "Bearer "+token)

	return req, nil
}

// ----------------- RegisterPayment -----------------

type tbiRegisterResponse struct {
	CreditApplicationID string `json:"creditApplicationId"`
	OrderID             string `json:"orderId"`
	URL                 string `json:"url"`
}

func (g *tbiGateway) RegisterPayment(ctx context.Context, r RegisterRequest) (*RegisterResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_number", r.OrderNumber),
		zap.Int64("amount", r.TotalAmount),
	)

	description := r.Description
	if description == "" {
		description = fmt.Sprintf("Payment for order %s", r.OrderNumber)
	}

	body, err := json.Marshal(map[string]any{
		"customerName":    r.CustomerName,
		"customerAddress": r.CustomerAddress,
		"customerPhone":   r.CustomerPhone,
		"customerEmail":   r.CustomerEmail,
		"orderId":         r.OrderNumber,
		"orderItems":      r.Items,
		"totalAmount":     r.TotalAmount,
		"currency":        r.Currency,
		"callbackUrl":     r.CallbackURL,
		"statusUrl":       r.StatusURL,
		"description":     description,
		"timestamp":       g.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	req, err := g.newRequest(ctx, "POST", "/Application", body)
	if err != nil {
		return nil, err
	}

	log.Info("registering payment with TBI")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("TBI register request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TBI response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Error("TBI register returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("payment registration failed: %s", string(bodyBytes))
	}

	var res tbiRegisterResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("failed decoding TBI register response", zap.Error(err))
		return nil, err
	}

	log.Info("TBI payment registered",
		zap.String("credit_application_id", res.CreditApplicationID),
	)

	return &RegisterResponse{
		CreditApplicationID: res.CreditApplicationID,
		OrderNumber:         res.OrderID,
		RedirectURL:         res.URL,
	}, nil
}

// ----------------- GetPaymentStatus -----------------

type tbiStatusResponse struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentDate   string `json:"paymentDate"`
	ErrorMessage  string `json:"errorMessage"`
}

func (g *tbiGateway) GetPaymentStatus(ctx context.Context, orderNumber string) (*StatusResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("order_number", orderNumber))

	req, err := g.newRequest(ctx, "GET", fmt.Sprintf("/Application/%s/status", orderNumber), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("TBI status request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TBI response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("TBI status returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("status check failed: %s", string(bodyBytes))
	}

	var res tbiStatusResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return nil, err
	}

	return &StatusResult{
		OrderNumber:   res.OrderID,
		Status:        MapVendorStatus(res.Status),
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		PaymentDate:   res.PaymentDate,
		ErrorMessage:  res.ErrorMessage,
	}, nil
}

// ----------------- Cancel / Refund -----------------

func (g *tbiGateway) CancelPayment(ctx context.Context, orderNumber string) error {
	return g.postAction(ctx, orderNumber, "cancel", nil)
}

func (g *tbiGateway) RefundPayment(ctx context.Context, orderNumber string, amount int64) error {
	var body []byte
	if amount > 0 {
		var err error
		body, err = json.Marshal(map[string]int64{"amount": amount})
		if err != nil {
			return err
		}
	}
	return g.postAction(ctx, orderNumber, "refund", body)
}

func (g *tbiGateway) postAction(ctx context.Context, orderNumber, action string, body []byte) error {
	log := logger.FromCtx(ctx).With(
		zap.String("order_number", orderNumber),
		zap.String("action", action),
	)

	req, err := g.newRequest(ctx, "POST", fmt.Sprintf("/Application/%s/%s", orderNumber, action), body)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("TBI request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Error("TBI action returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return fmt.Errorf("tbi %s failed: status %d", action, resp.StatusCode)
	}

	log.Info("TBI action completed")
	return nil
}
