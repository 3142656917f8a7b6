package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type stubCatalog struct {
	result catalog.Result
}

func (s stubCatalog) Search(context.Context, string, string) catalog.Result {
	return s.result
}

func (s stubCatalog) Product(_ context.Context, id string) (*types.Product, error) {
	for _, p := range s.result.Products {
		if p.ID.String() == id {
			return &p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubAdmin struct {
	prompts []string
	applied int
}

func (s *stubAdmin) CreateProduct(_ context.Context, p types.Product) (*types.Product, error) {
	p.ID = "new"
	return &p, nil
}

func (s *stubAdmin) UpdateProduct(_ context.Context, id string, p types.Product) (*types.Product, error) {
	p.ID = types.ID(id)
	return &p, nil
}

func (s *stubAdmin) DeleteProduct(context.Context, string) error {
	return nil
}

func (s *stubAdmin) BulkUpdateOrderStatus(ctx context.Context, req apiclient.BulkOrderStatus, confirm admin.Confirmer) error {
	return s.gate(ctx, "Set orders?", confirm)
}

func (s *stubAdmin) BulkTogglePincodes(ctx context.Context, req apiclient.BulkPincodeToggle, confirm admin.Confirmer) error {
	return s.gate(ctx, "Toggle pincodes?", confirm)
}

func (s *stubAdmin) gate(ctx context.Context, prompt string, confirm admin.Confirmer) error {
	s.prompts = append(s.prompts, prompt)
	if confirm == nil {
		return pkgerrors.New(pkgerrors.CodeConfirmationRequired, prompt)
	}
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil || !ok {
		return pkgerrors.New(pkgerrors.CodeConfirmationRequired, prompt)
	}
	s.applied++
	return nil
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) (types.SuccessEnvelope, types.ErrorEnvelope) {
	t.Helper()
	var ok types.SuccessEnvelope
	var bad types.ErrorEnvelope
	raw := resp.Body.Bytes()
	if err := json.Unmarshal(raw, &ok); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = json.Unmarshal(raw, &bad)
	return ok, bad
}

func TestProductsListFailureStillRenders(t *testing.T) {
	notes := notifications.NewNotifier(time.Minute)
	defer notes.Close()
	handler := ProductsList(stubCatalog{result: catalog.Result{
		Products: []types.Product{},
		Source:   catalog.SourceFailed,
		Err:      pkgerrors.New(pkgerrors.CodeDependency, "offline"),
	}}, notes, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	body, _ := decodeEnvelope(t, resp)
	if body.Notice == nil || body.Notice.Kind != string(notifications.KindError) {
		t.Fatalf("expected error notice, got %+v", body.Notice)
	}
	if !strings.Contains(resp.Body.String(), `"products":[]`) {
		t.Fatalf("expected empty product list, got %s", resp.Body.String())
	}
}

func TestProductsListLimit(t *testing.T) {
	handler := ProductsList(stubCatalog{result: catalog.Result{
		Products: []types.Product{{ID: types.ID("p1")}, {ID: types.ID("p2")}, {ID: types.ID("p3")}},
		Source:   catalog.SourceCache,
	}}, nil, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?limit=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), `"p3"`) || !strings.Contains(resp.Body.String(), `"p2"`) {
		t.Fatalf("expected first two products only, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?limit=lots", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric limit, got %d", resp.Code)
	}
}

func TestProductGetNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/products/{productId}", ProductGet(stubCatalog{}, nil, logger.Nop()))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestAdminBulkRequiresConfirmation(t *testing.T) {
	svc := &stubAdmin{}
	handler := AdminBulkOrderStatus(svc, nil, logger.Nop())
	body := `{"orderIds":["o1","o2"],"status":"shipped"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)))
	if resp.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 got %d", resp.Code)
	}
	_, bad := decodeEnvelope(t, resp)
	if bad.Error.Code != string(pkgerrors.CodeConfirmationRequired) || bad.Error.Message != "Set orders?" {
		t.Fatalf("expected prompt in error, got %+v", bad.Error)
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(confirmHeader, "false")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusPreconditionRequired {
		t.Fatalf("declined: expected 428 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(confirmHeader, "true")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("confirmed: expected 200 got %d", resp.Code)
	}
	if svc.applied != 1 {
		t.Fatalf("expected one applied bulk action, got %d", svc.applied)
	}
}

func TestAdminBulkPincodesValidatesBody(t *testing.T) {
	handler := AdminBulkPincodes(&stubAdmin{}, nil, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"pincodes":[]}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminCreateProduct(t *testing.T) {
	notes := notifications.NewNotifier(time.Minute)
	defer notes.Close()
	handler := AdminCreateProduct(&stubAdmin{}, notes, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Cap","price":299,"stock":4}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var body struct {
		Data types.Product `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ID != "new" || !body.Data.Price.Equal(decimal.NewFromInt(299)) {
		t.Fatalf("unexpected product %+v", body.Data)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("boom"), genericFailure},
		{pkgerrors.FromStatus(http.StatusTooManyRequests, ""), "Too many attempts. Please try again later."},
		{pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"), "quantity must be at least 1"},
		{pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("disk"), "write state"), genericFailure},
	}
	for _, tc := range cases {
		if got := userMessage(tc.err); got != tc.want {
			t.Fatalf("userMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
