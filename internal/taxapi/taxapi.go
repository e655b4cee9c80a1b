// Package taxapi provides HTTP clients for the tax-calculation collaborators.
//
// The simulator treats every call here as fallible and network-bound: the
// actual VAT/income-tax arithmetic, reconciliation, and document OCR live in
// remote services whose internals are opaque to this repository.
package taxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds each collaborator call.
const DefaultTimeout = 30 * time.Second

// Opts holds configuration options for the collaborator client.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the collaborator client.
type Option func(*Opts)

// WithBaseURL sets the collaborator gateway base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects a custom HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client calls the tax-calculation gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a collaborator client. The base URL is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tax API base URL not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	slog.Debug("taxapi.NewClient: client created", "baseURL", cfg.BaseURL)
	return &Client{baseURL: cfg.BaseURL, http: httpClient}, nil
}

// VATRequest asks for VAT on a single item.
type VATRequest struct {
	Amount          int64  `json:"amount"`
	ItemDescription string `json:"itemDescription"`
}

// VATResult is the collaborator's VAT ruling, relayed verbatim to the user.
type VATResult struct {
	Classification   string  `json:"classification"`
	ActReference     string  `json:"actReference"`
	Subtotal         float64 `json:"subtotal"`
	VATRate          float64 `json:"vatRate"`
	VATAmount        float64 `json:"vatAmount"`
	Total            float64 `json:"total"`
	CanClaimInputVAT bool    `json:"canClaimInputVAT"`
}

// CalculateVAT invokes the VAT calculation collaborator.
func (c *Client) CalculateVAT(ctx context.Context, req VATRequest) (*VATResult, error) {
	var result VATResult
	if err := c.post(ctx, "/v1/calculations/vat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Deductions itemizes deductible costs for income tax.
type Deductions struct {
	BusinessExpenses int64 `json:"businessExpenses"`
	EquipmentCosts   int64 `json:"equipmentCosts"`
}

// IncomeTaxRequest asks for a personal income tax computation.
type IncomeTaxRequest struct {
	GrossIncome   int64      `json:"grossIncome"`
	Period        string     `json:"period"` // "annual" or "monthly"
	IncomeType    string     `json:"incomeType"`
	PensionAmount int64      `json:"pensionAmount,omitempty"`
	Deductions    Deductions `json:"deductions"`
}

// TaxBand is one row of the progressive breakdown.
type TaxBand struct {
	Band      string  `json:"band"`
	Rate      float64 `json:"rate"`
	TaxInBand float64 `json:"taxInBand"`
}

// IncomeTaxResult is the collaborator's income tax computation.
type IncomeTaxResult struct {
	TaxBreakdown      []TaxBand `json:"taxBreakdown"`
	TotalTax          float64   `json:"totalTax"`
	EffectiveRate     float64   `json:"effectiveRate"`
	MonthlyTax        float64   `json:"monthlyTax"`
	PensionExempt     bool      `json:"pensionExempt"`
	MinimumWageExempt bool      `json:"minimumWageExempt"`
	ActReference      string    `json:"actReference"`
}

// CalculateIncomeTax invokes the income tax collaborator.
func (c *Client) CalculateIncomeTax(ctx context.Context, req IncomeTaxRequest) (*IncomeTaxResult, error) {
	var result IncomeTaxResult
	if err := c.post(ctx, "/v1/calculations/income-tax", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReconciliationRequest asks for a VAT position over a period.
type ReconciliationRequest struct {
	UserID string `json:"userId"`
	Period string `json:"period"`
}

// ReconciliationResult is the collaborator's VAT position.
type ReconciliationResult struct {
	OutputVAT float64 `json:"outputVAT"`
	InputVAT  float64 `json:"inputVAT"`
	NetVAT    float64 `json:"netVAT"`
	Status    string  `json:"status"`
}

// ReconcileVAT invokes the VAT reconciliation collaborator.
func (c *Client) ReconcileVAT(ctx context.Context, req ReconciliationRequest) (*ReconciliationResult, error) {
	var result ReconciliationResult
	if err := c.post(ctx, "/v1/reconciliation/vat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// OCRRequest submits a document image for field extraction.
type OCRRequest struct {
	Image        []byte `json:"image"`
	DocumentType string `json:"documentType"` // "invoice" or "bank_statement"
}

// OCRLineItem is one extracted invoice line.
type OCRLineItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// OCRTransaction is one extracted statement line.
type OCRTransaction struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Credit      int64  `json:"credit,omitempty"`
	Debit       int64  `json:"debit,omitempty"`
}

// OCRResult carries the extracted fields for the submitted document type.
type OCRResult struct {
	DocumentType string           `json:"documentType"`
	Vendor       string           `json:"vendor,omitempty"`
	Total        int64            `json:"total,omitempty"`
	LineItems    []OCRLineItem    `json:"lineItems,omitempty"`
	Transactions []OCRTransaction `json:"transactions,omitempty"`
}

// OCRDocument invokes the document OCR collaborator.
func (c *Client) OCRDocument(ctx context.Context, req OCRRequest) (*OCRResult, error) {
	var result OCRResult
	if err := c.post(ctx, "/v1/documents/ocr", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends a JSON request and decodes a JSON response. Non-2xx statuses
// are errors; the engine maps them to a user-facing retry message.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("taxapi call failed", "path", path, "error", err)
		return fmt.Errorf("collaborator call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("taxapi non-success status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("collaborator %s returned status %d: %s", path, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	slog.Debug("taxapi call succeeded", "path", path)
	return nil
}
