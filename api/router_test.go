package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/api"
	"github.com/mmdatafocus/workorder_backend/middlewares"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/testutil"
	"github.com/mmdatafocus/workorder_backend/utils"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err           error
		authenticated bool
		want          int
	}{
		{utils.NewNotFound("x"), true, http.StatusNotFound},
		{utils.NewPreconditionFailed("x"), true, http.StatusPreconditionFailed},
		{utils.NewConflict("x"), true, http.StatusConflict},
		{utils.NewInsufficientStock("x"), true, http.StatusUnprocessableEntity},
		{utils.NewValidationError("x"), true, http.StatusBadRequest},
		{utils.NewUnauthorized("x"), false, http.StatusUnauthorized},
		{utils.NewUnauthorized("x"), true, http.StatusForbidden},
		{errors.New("boom"), true, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := api.StatusForError(tc.err, tc.authenticated); got != tc.want {
			t.Errorf("StatusForError(%v, %t) = %d, want %d", tc.err, tc.authenticated, got, tc.want)
		}
	}
}

func TestDispositionStatus(t *testing.T) {
	ok := &models.DispositionResult{Lines: []models.DispositionLineResult{
		{Status: models.DispositionLineFailed, ErrorKind: utils.KindConflict},
		{Status: models.DispositionLineIssued},
	}}
	if got := api.DispositionStatus(ok); got != http.StatusOK {
		t.Fatalf("partial success = %d", got)
	}
	conflict := &models.DispositionResult{Lines: []models.DispositionLineResult{
		{Status: models.DispositionLineFailed, ErrorKind: utils.KindConflict},
	}}
	if got := api.DispositionStatus(conflict); got != http.StatusConflict {
		t.Fatalf("all conflict = %d", got)
	}
	short := &models.DispositionResult{Lines: []models.DispositionLineResult{
		{Status: models.DispositionLineFailed, ErrorKind: utils.KindInsufficientStock},
	}}
	if got := api.DispositionStatus(short); got != http.StatusUnprocessableEntity {
		t.Fatalf("all short = %d", got)
	}
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.LoaderMiddleware())
	api.RegisterRoutes(r)
	r.NoRoute(api.CustomNotFoundHandler)
	return &testServer{t: t, engine: r}
}

func (s *testServer) token(username string, role models.UserRole) string {
	s.t.Helper()
	user, err := models.UpsertUser(testutil.AdminContext(), &models.NewUser{Username: username, Name: username, Role: role})
	if err != nil {
		s.t.Fatalf("UpsertUser: %v", err)
	}
	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		s.t.Fatalf("JwtGenerate: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestWorkOrderEndpoints(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "2", "1", "3")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "5")
	s := newTestServer(t)
	admin := s.token("admin", models.UserRoleAdmin)
	inventory := s.token("gudang", models.UserRoleInventory)

	if w := s.do(http.MethodGet, "/work-orders", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/work-orders", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}

	w := s.do(http.MethodPost, "/work-orders", admin, map[string]interface{}{"sales_order_id": f.SalesOrder.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var wo models.WorkOrder
	decode(t, w, &wo)

	base := fmt.Sprintf("/work-orders/%d", wo.ID)
	w = s.do(http.MethodPost, base+"/transitions", inventory, map[string]interface{}{
		"department": "engineering",
		"to_status":  "Approved",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("inventory approving engineering = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPut, fmt.Sprintf("%s/items/%d/bom", base, wo.Items[0].ID), admin, map[string]interface{}{"bom_id": f.Bom.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("bind bom = %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPost, base+"/transitions", admin, map[string]interface{}{
		"department": "engineering",
		"to_status":  "Approved",
		"notes":      "drawing rev B",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPost, base+"/transitions", admin, map[string]interface{}{
		"department": "engineering",
		"to_status":  "Approved",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("re-approve = %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPut, fmt.Sprintf("%s/items/%d/bom", base, wo.Items[0].ID), admin, map[string]interface{}{"bom_id": f.Bom.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("bind bom after approval = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, base+"/reconciliation", inventory, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reconciliation = %d %s", w.Code, w.Body.String())
	}
	var recBody struct {
		Reconciliation models.Reconciliation        `json:"reconciliation"`
		Summary        models.ReconciliationSummary `json:"summary"`
	}
	decode(t, w, &recBody)
	if len(recBody.Reconciliation.BomLines) != 2 || recBody.Reconciliation.BomLines[0].ItemName != "Steel plate" {
		t.Fatalf("reconciliation lines = %+v", recBody.Reconciliation.BomLines)
	}
	if recBody.Summary.InsufficientLines != 1 {
		t.Fatalf("summary = %+v", recBody.Summary)
	}

	bolt := map[string]interface{}{"bom_lines": []map[string]int{{"work_order_item_id": wo.Items[0].ID, "bom_item_id": f.Bom.Items[1].ID}}}
	w = s.do(http.MethodPost, base+"/material-issues", inventory, bolt)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("issue without bolts = %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPost, base+"/purchase-requests", inventory, bolt)
	if w.Code != http.StatusOK {
		t.Fatalf("purchase request = %d %s", w.Code, w.Body.String())
	}
	var pr models.DispositionResult
	decode(t, w, &pr)
	if pr.DocumentId == nil || len(pr.Lines) != 1 || pr.Lines[0].Status != models.DispositionLineRequested {
		t.Fatalf("purchase request = %+v", pr)
	}

	w = s.do(http.MethodGet, base+"/history", inventory, nil)
	var history []models.StatusHistoryEntry
	decode(t, w, &history)
	if len(history) != 1 || history[0].Notes != "drawing rev B" {
		t.Fatalf("history = %+v", history)
	}

	w = s.do(http.MethodGet, base+"/bom-requirements.xlsx", inventory, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), wo.WoNumber) {
		t.Fatalf("export = %d %v", w.Code, w.Header())
	}

	w = s.do(http.MethodGet, base+"/drawing-url", inventory, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("drawing url without drawing = %d", w.Code)
	}

	if w := s.do(http.MethodGet, "/work-orders/999999", admin, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown work order = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/work-orders/abc", admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}
	if w := s.do(http.MethodDelete, base, inventory, nil); w.Code != http.StatusForbidden {
		t.Fatalf("inventory delete = %d", w.Code)
	}
	if w := s.do(http.MethodDelete, base, admin, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", w.Code, w.Body.String())
	}
}
