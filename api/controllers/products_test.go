package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	productsvc "github.com/angelmondragon/medorders-backend/internal/products"
	"github.com/angelmondragon/medorders-backend/internal/store/storetest"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
)

func newProductHarness(t *testing.T) (productsvc.Service, *logger.Logger) {
	t.Helper()
	st, _ := storetest.NewSQLStore(t)
	svc, err := productsvc.NewService(st, func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) })
	if err != nil {
		t.Fatalf("new product service: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return svc, logg
}

func withProductID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) productResponse {
	t.Helper()
	var env struct {
		Data productResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return env.Data
}

func TestAdminCreateAndGetProduct(t *testing.T) {
	svc, logg := newProductHarness(t)

	body := `{"name":"  Surgical Gloves ","description":"Latex","imageRefs":["products/gloves.png"],
		"variants":[{"size":"M","pieces":100,"unitPrice":"180.50","stock":5},{"size":"L","pieces":100,"unitPrice":"200","stock":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	AdminCreateProduct(svc, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeProduct(t, rec)
	if created.Name != "Surgical Gloves" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if !created.IsActive {
		t.Fatalf("expected product active by default")
	}
	if len(created.Variants) != 2 || created.Variants[0].UnitPrice != "180.50" || created.Variants[1].UnitPrice != "200.00" {
		t.Fatalf("unexpected variants %+v", created.Variants)
	}

	getReq := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+created.ID, nil), created.ID)
	getRec := httptest.NewRecorder()
	GetProduct(svc, logg).ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	fetched := decodeProduct(t, getRec)
	if fetched.Variants[0].Stock != 5 {
		t.Fatalf("expected stock 5, got %d", fetched.Variants[0].Stock)
	}
}

func TestAdminCreateInactiveProduct(t *testing.T) {
	svc, logg := newProductHarness(t)

	body := `{"name":"Gloves","isActive":false,"variants":[{"size":"M","unitPrice":"1","stock":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	AdminCreateProduct(svc, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeProduct(t, rec)
	if created.IsActive {
		t.Fatalf("expected inactive product in create response")
	}

	getReq := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+created.ID, nil), created.ID)
	getRec := httptest.NewRecorder()
	GetProduct(svc, logg).ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if decodeProduct(t, getRec).IsActive {
		t.Fatalf("expected stored product to stay inactive")
	}
}

func TestAdminCreateProductValidation(t *testing.T) {
	svc, logg := newProductHarness(t)

	cases := map[string]string{
		"duplicate size":   `{"name":"Gloves","variants":[{"size":"M","unitPrice":"1","stock":1},{"size":"M","unitPrice":"1","stock":1}]}`,
		"negative stock":   `{"name":"Gloves","variants":[{"size":"M","unitPrice":"1","stock":-1}]}`,
		"no variants":      `{"name":"Gloves","variants":[]}`,
		"fractional paise": `{"name":"Gloves","variants":[{"size":"M","unitPrice":"1.005","stock":1}]}`,
		"negative price":   `{"name":"Gloves","variants":[{"size":"M","unitPrice":"-1","stock":1}]}`,
		"missing name":     `{"variants":[{"size":"M","unitPrice":"1","stock":1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			AdminCreateProduct(svc, logg).ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAdminUpdateProductReplacesVariants(t *testing.T) {
	svc, logg := newProductHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products",
		bytes.NewBufferString(`{"name":"Masks","variants":[{"size":"S","pieces":50,"unitPrice":"99.00","stock":3}]}`))
	rec := httptest.NewRecorder()
	AdminCreateProduct(svc, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d (%s)", rec.Code, rec.Body.String())
	}
	product := decodeProduct(t, rec)

	update := `{"isActive":false,"variants":[{"size":"S","pieces":50,"unitPrice":"99.00","stock":10},{"size":"M","pieces":50,"unitPrice":"120.00","stock":4}]}`
	upReq := withProductID(httptest.NewRequest(http.MethodPut, "/api/v1/products/"+product.ID, bytes.NewBufferString(update)), product.ID)
	upRec := httptest.NewRecorder()
	AdminUpdateProduct(svc, logg).ServeHTTP(upRec, upReq)
	if upRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", upRec.Code, upRec.Body.String())
	}
	updated := decodeProduct(t, upRec)
	if updated.IsActive {
		t.Fatalf("expected product deactivated")
	}
	if updated.Name != "Masks" {
		t.Fatalf("name should be untouched, got %q", updated.Name)
	}
	if len(updated.Variants) != 2 || updated.Variants[0].Stock != 10 || updated.Variants[1].Size != "M" {
		t.Fatalf("unexpected variants %+v", updated.Variants)
	}
}

func TestGetProductErrors(t *testing.T) {
	svc, logg := newProductHarness(t)

	t.Run("invalid id", func(t *testing.T) {
		req := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil), "not-a-uuid")
		rec := httptest.NewRecorder()
		GetProduct(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		id := uuid.NewString()
		req := withProductID(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil), id)
		rec := httptest.NewRecorder()
		GetProduct(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestParsePaise(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "180.50", want: 18050},
		{in: "200", want: 20000},
		{in: " 0.01 ", want: 1},
		{in: "0", want: 0},
		{in: "1.005", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parsePaise(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parsePaise(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parsePaise(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parsePaise(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
