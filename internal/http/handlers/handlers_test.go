package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	domainplatform "github.com/yungbote/dineops-backend/internal/domain/platform"
	"github.com/yungbote/dineops-backend/internal/services"
)

type fakeTracker struct {
	services.LoyaltyTrackerService
	gotPurchase services.TrackPurchaseRequest
	redeemErr   error
}

func (f *fakeTracker) TrackPurchase(_ context.Context, req services.TrackPurchaseRequest) (*services.TrackPurchaseResponse, error) {
	f.gotPurchase = req
	return &services.TrackPurchaseResponse{Success: true, PointsEarned: 25, NewBalance: 25, AppliedRules: []string{"r1"}}, nil
}

func (f *fakeTracker) RedeemPoints(context.Context, services.AdjustPointsRequest) (*services.RedeemPointsResponse, error) {
	return nil, f.redeemErr
}

type fakeQR struct {
	err error
}

func (f *fakeQR) Claim(_ context.Context, req services.QRClaimRequest) (*services.QRClaimResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.QRClaimResponse{Success: true, Message: "ok", PointsAwarded: 10, CustomerPoints: 10}, nil
}

type fakeAB struct {
	services.ABTestService
}

func (fakeAB) AssignVariant(_ context.Context, req services.ABTestRequest) (*services.AssignVariantResponse, error) {
	return &services.AssignVariantResponse{Success: true, Variant: experiments.VariantControl}, nil
}

func (fakeAB) GetVariant(context.Context, services.ABTestRequest) (*services.GetVariantResponse, error) {
	return nil, domainagg.NotFound("ABTest.GetVariant", "Customer not assigned to this test")
}

type fakePlatform struct {
	err error
}

func (f fakePlatform) Snapshot(context.Context) (*domainplatform.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domainplatform.Snapshot{ActiveBusinesses: 3, TotalRevenue: decimal.NewFromInt(90)}, nil
}

type fakePrograms struct {
	services.ProgramSettingsService
	updated []byte
}

func (f *fakePrograms) UpdateSettings(_ context.Context, id uuid.UUID, raw []byte) (*services.ProgramSnapshot, error) {
	f.updated = raw
	if !json.Valid(raw) {
		return nil, domainagg.Validation("Program.UpdateSettings", "invalid settings document")
	}
	return &services.ProgramSnapshot{}, nil
}

func post(t *testing.T, r *gin.Engine, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestLoyaltyTrackerDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracker := &fakeTracker{redeemErr: domainagg.Validation("LoyaltyAccount.RedeemPoints", "Insufficient points")}
	r := gin.New()
	r.POST("/t", NewLoyaltyTrackerHandler(tracker).Handle)

	rec, body := post(t, r, "/t", `{"action":"track_purchase","data":{"program_id":"p","customer_email":"a@b.c","order_amount":25.5}}`)
	if rec.Code != http.StatusOK || body["points_earned"] != float64(25) || body["success"] != true {
		t.Fatalf("track_purchase: %d %v", rec.Code, body)
	}
	if !tracker.gotPurchase.OrderAmount.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("order amount: got=%s", tracker.gotPurchase.OrderAmount)
	}

	rec, body = post(t, r, "/t", `{"action":"redeem_points","data":{"points":999}}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Insufficient points" || body["code"] != "validation" {
		t.Fatalf("redeem: %d %v", rec.Code, body)
	}

	rec, body = post(t, r, "/t", `{"action":"explode","data":{}}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Unknown action" {
		t.Fatalf("unknown action: %d %v", rec.Code, body)
	}

	rec, body = post(t, r, "/t", `{"action":`)
	if rec.Code != http.StatusBadRequest || body["code"] != "invalid_json" {
		t.Fatalf("bad json: %d %v", rec.Code, body)
	}

	rec, body = post(t, r, "/t", `{"action":"track_purchase","data":{"order_amount":"lots"}}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "invalid_json" {
		t.Fatalf("bad data: %d %v", rec.Code, body)
	}
}

func TestABTestDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/ab", NewABTestHandler(fakeAB{}).Handle)

	rec, body := post(t, r, "/ab", `{"action":"assign_variant","data":{"test_id":"t","customer_id":"c"}}`)
	if rec.Code != http.StatusOK || body["variant"] != experiments.VariantControl {
		t.Fatalf("assign: %d %v", rec.Code, body)
	}
	// not found still answers 400 on the action endpoints
	rec, body = post(t, r, "/ab", `{"action":"get_variant","data":{"test_id":"t","customer_id":"c"}}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Customer not assigned to this test" || body["code"] != "not_found" {
		t.Fatalf("get: %d %v", rec.Code, body)
	}
}

func TestQRClaimStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"ok", nil, `{"campaignId":"c","customerData":{"email":"a@b.c"}}`, http.StatusOK},
		{"not found", domainagg.NotFound("QRClaim.Claim", "Campaign not found"), `{}`, http.StatusNotFound},
		{"limit", domainagg.Validation("QRClaim.Claim", "Campaign has expired"), `{}`, http.StatusBadRequest},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "QRClaim.Claim", "concurrent update", nil), `{}`, http.StatusConflict},
		{"internal", domainagg.NewError(domainagg.CodeInternal, "QRClaim.Claim", "db down", nil), `{}`, http.StatusInternalServerError},
		{"bad body", nil, `{"campaignId":`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.POST("/qr", NewQRClaimHandler(&fakeQR{err: tc.err}).Claim)
		rec, body := post(t, r, "/qr", tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d body=%v", tc.name, tc.want, rec.Code, body)
		}
		if tc.want != http.StatusOK {
			if _, ok := body["error"].(string); !ok {
				t.Fatalf("%s: error body missing: %v", tc.name, body)
			}
		}
	}
}

func TestPlatformMetricsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPlatformMetricsHandler(fakePlatform{})
	r.GET("/pm", h.Snapshot)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pm", nil))
	var snap map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if rec.Code != http.StatusOK || snap["active_businesses"] != float64(3) || snap["total_revenue"] != "90" {
		t.Fatalf("snapshot: %d %v", rec.Code, snap)
	}

	r = gin.New()
	r.POST("/pm", NewPlatformMetricsHandler(fakePlatform{err: domainagg.NewError(domainagg.CodeInternal, "op", "failed to compute platform metrics", nil)}).Snapshot)
	rec2, body := post(t, r, "/pm", "")
	if rec2.Code != http.StatusBadRequest || body["error"] != "failed to compute platform metrics" {
		t.Fatalf("error: %d %v", rec2.Code, body)
	}
}

func TestProgramHandlerUpdateSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	programs := &fakePrograms{}
	r := gin.New()
	h := NewProgramHandler(programs)
	r.PUT("/programs/:id/settings", h.UpdateSettings)

	do := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/programs/"+id+"/settings", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	if rec := do("nope", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", rec.Code)
	}
	if rec := do(uuid.NewString(), `{"rules":[]}`); rec.Code != http.StatusOK || string(programs.updated) != `{"rules":[]}` {
		t.Fatalf("update: %d %q", rec.Code, programs.updated)
	}
	if rec := do(uuid.NewString(), `{broken`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid doc: want=400 got=%d", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	down := NewHealthHandler(func(context.Context) error { return context.DeadlineExceeded })
	r.GET("/readyz", down.Ready)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: want=503 got=%d", rec.Code)
	}
}
