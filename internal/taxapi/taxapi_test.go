package taxapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("missing base URL accepted")
	}
}

func TestCalculateVAT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calculations/vat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		var req VATRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 50000 || req.ItemDescription != "electronics" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(VATResult{
			Classification: "standard-rated",
			Subtotal:       50000,
			VATRate:        0.075,
			VATAmount:      3750,
			Total:          53750,
		})
	}))
	defer srv.Close()

	c, err := NewClient(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := c.CalculateVAT(context.Background(), VATRequest{Amount: 50000, ItemDescription: "electronics"})
	if err != nil {
		t.Fatalf("CalculateVAT: %v", err)
	}
	if res.Classification != "standard-rated" || res.Total != 53750 {
		t.Errorf("result = %+v", res)
	}
}

func TestCalculateIncomeTaxDecodesBands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(IncomeTaxResult{
			TaxBreakdown: []TaxBand{
				{Band: "First 300,000", Rate: 0.07, TaxInBand: 21000},
				{Band: "Next 300,000", Rate: 0.11, TaxInBand: 33000},
			},
			TotalTax:      54000,
			EffectiveRate: 0.09,
		})
	}))
	defer srv.Close()

	c, _ := NewClient(WithBaseURL(srv.URL))
	res, err := c.CalculateIncomeTax(context.Background(), IncomeTaxRequest{GrossIncome: 600000, Period: "annual"})
	if err != nil {
		t.Fatalf("CalculateIncomeTax: %v", err)
	}
	if len(res.TaxBreakdown) != 2 || res.TotalTax != 54000 {
		t.Errorf("result = %+v", res)
	}
}

func TestNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(WithBaseURL(srv.URL))
	_, err := c.ReconcileVAT(context.Background(), ReconciliationRequest{UserID: "u1", Period: "current"})
	if err == nil {
		t.Fatal("502 accepted")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := NewClient(WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.OCRDocument(ctx, OCRRequest{Image: []byte("img"), DocumentType: "invoice"}); err == nil {
		t.Fatal("canceled context accepted")
	}
}
