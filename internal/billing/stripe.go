// Package billing integrates tenant payment management with Stripe.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Customer is a Stripe customer attached to a tenant key.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SetupIntent collects a payment method for later charges.
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CustomerSession grants a browser temporary access to Stripe elements.
type CustomerSession struct {
	ClientSecret string `json:"client_secret"`
	Customer     string `json:"customer"`
}

// PaymentMethod is an attached payment instrument.
type PaymentMethod struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// APIError is a non-2xx response from the Stripe API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe api error: status %d: %s", e.StatusCode, e.Body)
}

// Client manages payment state for tenants.
type Client interface {
	CreateCustomer(ctx context.Context, email string) (*Customer, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	CreateCustomerSession(ctx context.Context, customerID string) (*CustomerSession, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
}

// StripeClient calls the Stripe REST API with form-encoded requests.
type StripeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewStripeClient creates a client authenticated with apiKey.
func NewStripeClient(apiKey string) *StripeClient {
	return &StripeClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (c *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read stripe response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode stripe response: %w", err)
		}
	}
	return nil
}

// CreateCustomer registers a Stripe customer for email.
func (c *StripeClient) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateSetupIntent starts payment method collection for a customer.
func (c *StripeClient) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Add("payment_method_types[]", "card")

	var intent SetupIntent
	if err := c.do(ctx, http.MethodPost, "/setup_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateCustomerSession issues a client secret for the customer's browser.
func (c *StripeClient) CreateCustomerSession(ctx context.Context, customerID string) (*CustomerSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("components[payment_element][enabled]", "true")
	form.Set("components[payment_element][features][payment_method_redisplay]", "enabled")
	form.Set("components[payment_element][features][payment_method_allow_redisplay_filters][]", "always")

	var session CustomerSession
	if err := c.do(ctx, http.MethodPost, "/customer_sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListPaymentMethods returns the customer's attached payment methods.
func (c *StripeClient) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	var list struct {
		Data []PaymentMethod `json:"data"`
	}
	path := fmt.Sprintf("/customers/%s/payment_methods", url.PathEscape(customerID))
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// DetachPaymentMethod removes a payment method from its customer.
func (c *StripeClient) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	path := fmt.Sprintf("/payment_methods/%s/detach", url.PathEscape(paymentMethodID))
	return c.do(ctx, http.MethodPost, path, url.Values{}, nil)
}
