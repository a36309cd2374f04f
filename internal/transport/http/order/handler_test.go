package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/idgen"
	"github.com/campus-canteen/canteen/internal/notifier"
	counterrepo "github.com/campus-canteen/canteen/internal/repository/counter"
	orderrepo "github.com/campus-canteen/canteen/internal/repository/order"
	userrepo "github.com/campus-canteen/canteen/internal/repository/user"
	service "github.com/campus-canteen/canteen/internal/service/order"
	"github.com/campus-canteen/canteen/internal/storage"
)

type noopMirror struct{}

func (noopMirror) Upsert(context.Context, string, string, any) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, notifier.Event, map[string]any) error {
	return nil
}
func (noopNotifier) Consume(ctx context.Context, _ notifier.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (noopNotifier) Topic() string { return "test" }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	store, err := storage.NewAt(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	users := userrepo.NewRepository(store)
	require.NoError(t, users.Put(context.Background(), entity.User{
		ID: "student-1", Role: entity.RoleStudent, Name: "Asha Rao", Phone: "222-222-2222", Email: "asha@campus-canteen.test",
	}))

	alloc := idgen.NewAllocator(idgen.Params{
		Counters: counterrepo.NewRepository(store),
		Mirror:   noopMirror{},
		Logger:   zap.NewNop(),
	})
	svc := service.NewService(service.Params{
		Orders:   orderrepo.NewRepository(store),
		Users:    users,
		Codes:    alloc,
		Mirror:   noopMirror{},
		Notifier: noopNotifier{},
		Logger:   zap.NewNop(),
	})

	e := echo.New()
	Register(e, NewHandler(svc))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

const createBody = `{
	"owner_id": "student-1",
	"merchant_id": "admin-1",
	"items": [{"item_id": "A", "quantity": 2, "unit_price": 50}],
	"total_amount": 100,
	"payment_method": "wallet",
	"fulfillment": "instant"
}`

func createTestOrder(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec, payload := doJSON(t, e, http.MethodPost, "/orders", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := payload["data"].(map[string]any)
	return data["id"].(string)
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, payload := doJSON(t, e, http.MethodPost, "/orders", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, "CC-#1", data["code"])
	assert.Equal(t, "pending", data["status"])
	assert.Regexp(t, `^\d{4}$`, data["pickup_otp"])
	assert.NotEmpty(t, data["id"])
}

func TestCreateOrderUnknownOwnerEndpoint(t *testing.T) {
	e := newTestServer(t)

	body := strings.Replace(createBody, "student-1", "ghost", 1)
	rec, payload := doJSON(t, e, http.MethodPost, "/orders", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, payload["success"])
}

func TestCreateOrderMissingFieldsEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/orders", `{"items": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetStatusEndpoint(t *testing.T) {
	e := newTestServer(t)
	id := createTestOrder(t, e)

	tests := []struct {
		name     string
		status   string
		wantCode int
	}{
		{name: "illegal skip ahead", status: "ready", wantCode: http.StatusUnprocessableEntity},
		{name: "unknown status", status: "shipped", wantCode: http.StatusBadRequest},
		{name: "legal transition", status: "confirmed", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, e, http.MethodPatch, "/orders/"+id+"/status", fmt.Sprintf(`{"status":%q}`, tt.status))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestSetStatusUnknownOrderEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPatch, "/orders/missing/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	e := newTestServer(t)
	id := createTestOrder(t, e)

	rec, payload := doJSON(t, e, http.MethodDelete, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "cancelled", data["status"])

	// Second cancellation conflicts.
	rec, _ = doJSON(t, e, http.MethodDelete, "/orders/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	e := newTestServer(t)
	first := createTestOrder(t, e)
	second := createTestOrder(t, e)

	rec, payload := doJSON(t, e, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	items := payload["data"].([]any)
	require.Len(t, items, 2)

	newest := items[0].(map[string]any)
	oldest := items[1].(map[string]any)
	assert.Equal(t, second, newest["id"])
	assert.Equal(t, first, oldest["id"])
	assert.Equal(t, "Asha Rao", newest["owner_name"])

	meta := payload["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["count"])
}

func TestListEndpointStatusFilter(t *testing.T) {
	e := newTestServer(t)
	id := createTestOrder(t, e)
	createTestOrder(t, e)

	rec, _ := doJSON(t, e, http.MethodDelete, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, payload := doJSON(t, e, http.MethodGet, "/orders?status=cancelled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := payload["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].(map[string]any)["id"])
}
