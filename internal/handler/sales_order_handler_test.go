package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"factory/internal/apperror"
	"factory/internal/auth"
	"factory/internal/middleware"
	"factory/internal/model"
	"factory/internal/service"

	"github.com/gin-gonic/gin"
)

type rolePerms map[string][]string

func (p rolePerms) PermissionsForRole(_ context.Context, role string) ([]string, error) {
	return p[role], nil
}

// stubSalesOrders implements only what the tests call.
type stubSalesOrders struct {
	service.SalesOrderService
	shipErr   error
	created   *service.SalesOrderRequest
	lastActor uint
}

func (s *stubSalesOrders) Ship(_ context.Context, actor uint, id uint) (*model.SalesOrder, error) {
	s.lastActor = actor
	if s.shipErr != nil {
		return nil, s.shipErr
	}
	return &model.SalesOrder{ID: id, Status: model.SOStatusShipped}, nil
}

func (s *stubSalesOrders) Create(_ context.Context, actor uint, req service.SalesOrderRequest) (*model.SalesOrder, error) {
	s.lastActor = actor
	s.created = &req
	return &model.SalesOrder{ID: 1, SONumber: "SO240501001", Status: model.SOStatusPending}, nil
}

type salesOrderRig struct {
	router *gin.Engine
	svc    *stubSalesOrders
	tokens *auth.TokenManager
}

func newSalesOrderRig(t *testing.T) *salesOrderRig {
	t.Helper()
	if err := middleware.RegisterValidators(); err != nil {
		t.Fatalf("register validators: %v", err)
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour, time.Hour)
	perms := rolePerms{
		"staff":  {"sales_orders.read", "sales_orders.write"},
		"viewer": {"sales_orders.read"},
	}
	svc := &stubSalesOrders{}
	r := gin.New()
	NewSalesOrderHandler(svc, middleware.NewAuthenticator(tokens, perms, false)).RegisterRoutes(r.Group("/api"))
	return &salesOrderRig{router: r, svc: svc, tokens: tokens}
}

func (rig *salesOrderRig) do(t *testing.T, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := rig.tokens.Issue(9, role, time.Now())
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	rig.router.ServeHTTP(w, req)
	return w
}

func TestShipRequiresPermission(t *testing.T) {
	rig := newSalesOrderRig(t)

	if w := rig.do(t, http.MethodPost, "/api/sales-orders/4/ship", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", w.Code)
	}
	if w := rig.do(t, http.MethodPost, "/api/sales-orders/4/ship", "viewer", ""); w.Code != http.StatusForbidden {
		t.Errorf("viewer: status = %d", w.Code)
	}
	w := rig.do(t, http.MethodPost, "/api/sales-orders/4/ship", "staff", "")
	if w.Code != http.StatusOK {
		t.Fatalf("staff: status = %d body %s", w.Code, w.Body.String())
	}
	if rig.svc.lastActor != 9 {
		t.Errorf("actor = %d, want 9", rig.svc.lastActor)
	}
}

func TestShipShortageResponse(t *testing.T) {
	rig := newSalesOrderRig(t)
	rig.svc.shipErr = &apperror.InsufficientStockError{Shortages: []apperror.Shortage{
		{ItemType: "product", ItemID: 3, Name: "Boot", Required: 5, Available: 2, Shortage: 3},
		{ItemType: "product", ItemID: 8, Name: "Sandal", Required: 1, Available: 0, Shortage: 1},
	}}

	w := rig.do(t, http.MethodPost, "/api/sales-orders/4/ship", "staff", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var shortages []apperror.Shortage
	if err := json.Unmarshal(decode(t, w).Data, &shortages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shortages) != 2 || shortages[0].Shortage != 3 || shortages[1].ItemID != 8 {
		t.Errorf("shortages = %+v", shortages)
	}
}

func TestShipInvalidTransitionIsConflict(t *testing.T) {
	rig := newSalesOrderRig(t)
	rig.svc.shipErr = apperror.InvalidTransition("sales order", model.SOStatusPending, "ship")

	if w := rig.do(t, http.MethodPost, "/api/sales-orders/4/ship", "staff", ""); w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestShipRejectsBadID(t *testing.T) {
	rig := newSalesOrderRig(t)

	if w := rig.do(t, http.MethodPost, "/api/sales-orders/abc/ship", "staff", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if w := rig.do(t, http.MethodPost, "/api/sales-orders/0/ship", "staff", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateSalesOrderBinding(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"customer_id":2,"items":[{"product_id":3,"quantity":2,"price":"85000"}]}`, http.StatusCreated},
		{"no items", `{"customer_id":2,"items":[]}`, http.StatusBadRequest},
		{"zero quantity", `{"customer_id":2,"items":[{"product_id":3,"quantity":0,"price":"1"}]}`, http.StatusBadRequest},
		{"negative price", `{"customer_id":2,"items":[{"product_id":3,"quantity":1,"price":"-5"}]}`, http.StatusBadRequest},
		{"missing customer", `{"items":[{"product_id":3,"quantity":1,"price":"1"}]}`, http.StatusBadRequest},
		{"bad date", `{"customer_id":2,"order_date":"01/05/2024","items":[{"product_id":3,"quantity":1,"price":"1"}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := newSalesOrderRig(t)
			w := rig.do(t, http.MethodPost, "/api/sales-orders", "staff", tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tc.want, w.Body.String())
			}
			if tc.want != http.StatusCreated && rig.svc.created != nil {
				t.Error("service called with an invalid payload")
			}
		})
	}
}
