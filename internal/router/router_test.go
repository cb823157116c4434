package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mechshop-dev/mechshop/db"
	"github.com/mechshop-dev/mechshop/internal/auth"
	"github.com/mechshop-dev/mechshop/internal/cache"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})

	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := conn.DB()

	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}

	// In-memory SQLite gives each connection its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return New(Deps{
		DB:            conn,
		Tokens:        auth.NewManager("test-secret", time.Hour),
		Cache:         cache.NewListCache(time.Minute),
		AuthRateRPS:   1000,
		AuthRateBurst: 1000,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func registerCustomer(t *testing.T, r *gin.Engine, email string) uint {
	t.Helper()

	body := fmt.Sprintf(`{"name":"Test","email":%q,"password":"pw123456"}`, email)
	rec := doJSON(t, r, http.MethodPost, "/customers", body, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return resp.ID
}

func login(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":"pw123456"}`, email)
	rec := doJSON(t, r, http.MethodPost, "/customers/login", body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.AuthToken == "" {
		t.Fatal("login response missing auth_token")
	}
	return resp.AuthToken
}

func createTicket(t *testing.T, r *gin.Engine, token, vin string) uint {
	t.Helper()

	body := fmt.Sprintf(`{"vin":%q,"service_date":"2026-02-01","service_desc":"oil change"}`, vin)
	rec := doJSON(t, r, http.MethodPost, "/service-tickets", body, token)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode ticket response: %v", err)
	}
	return resp.ID
}

func createMechanic(t *testing.T, r *gin.Engine, email string) uint {
	t.Helper()

	body := fmt.Sprintf(`{"name":"Mech","email":%q,"salary":50000}`, email)
	rec := doJSON(t, r, http.MethodPost, "/mechanics", body, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("create mechanic failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode mechanic response: %v", err)
	}
	return resp.ID
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	login(t, r, "a@x.com")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")

	body := `{"name":"Other","email":"a@x.com","password":"pw123456"}`
	rec := doJSON(t, r, http.MethodPost, "/customers", body, "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate email, got %d", rec.Code)
	}
}

func TestLoginDoesNotLeakWhichFieldWasWrong(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")

	wrongPassword := doJSON(t, r, http.MethodPost, "/customers/login", `{"email":"a@x.com","password":"wrong-pass"}`, "")
	unknownEmail := doJSON(t, r, http.MethodPost, "/customers/login", `{"email":"nobody@x.com","password":"wrong-pass"}`, "")

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}

	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Errorf("wrong-password and unknown-email responses differ: %s vs %s",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestCreateTicketOwnerComesFromToken(t *testing.T) {
	r := newTestRouter(t)

	customerID := registerCustomer(t, r, "a@x.com")
	otherID := registerCustomer(t, r, "b@x.com")
	token := login(t, r, "a@x.com")

	// customer_id in the body must be ignored.
	body := fmt.Sprintf(`{"vin":"V1","service_date":"2026-02-01","service_desc":"oil change","customer_id":%d}`, otherID)
	rec := doJSON(t, r, http.MethodPost, "/service-tickets", body, token)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CustomerID uint `json:"customer_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode ticket response: %v", err)
	}

	if resp.CustomerID != customerID {
		t.Errorf("expected owner %d, got %d", customerID, resp.CustomerID)
	}
}

func TestMyTicketsIsOwnerScoped(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	registerCustomer(t, r, "b@x.com")
	tokenA := login(t, r, "a@x.com")
	tokenB := login(t, r, "b@x.com")

	createTicket(t, r, tokenA, "VA1")
	createTicket(t, r, tokenA, "VA2")
	createTicket(t, r, tokenB, "VB1")

	rec := doJSON(t, r, http.MethodGet, "/customers/my-tickets", "", tokenA)

	if rec.Code != http.StatusOK {
		t.Fatalf("my-tickets failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var tickets []struct {
		VIN string `json:"vin"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tickets); err != nil {
		t.Fatalf("failed to decode tickets: %v", err)
	}

	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}

	for _, ticket := range tickets {
		if !strings.HasPrefix(ticket.VIN, "VA") {
			t.Errorf("ticket %q does not belong to customer A", ticket.VIN)
		}
	}
}

func TestNonOwnerGetsForbiddenNotNotFound(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	registerCustomer(t, r, "b@x.com")
	tokenA := login(t, r, "a@x.com")
	tokenB := login(t, r, "b@x.com")

	ticketID := createTicket(t, r, tokenA, "V1")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body := ""
		if method == http.MethodPut {
			body = `{"vin":"V2","service_date":"2026-02-02","service_desc":"brakes"}`
		}

		rec := doJSON(t, r, method, fmt.Sprintf("/service-tickets/%d", ticketID), body, tokenB)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s as non-owner: expected 403, got %d", method, rec.Code)
		}
	}

	rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/service-tickets/%d", ticketID), "", tokenA)

	if rec.Code != http.StatusOK {
		t.Errorf("owner GET: expected 200, got %d", rec.Code)
	}
}

func TestMissingTicketIsNotFound(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	token := login(t, r, "a@x.com")

	rec := doJSON(t, r, http.MethodGet, "/service-tickets/9999", "", token)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/customers/my-tickets", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestProtectedRouteWithMalformedHeader(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/customers/my-tickets", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong scheme, got %d", rec.Code)
	}
}

func TestProtectedRouteWithExpiredToken(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")

	expired := auth.NewManager("test-secret", -time.Minute)
	token, err := expired.Issue(1)

	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}

	rec := doJSON(t, r, http.MethodGet, "/customers/my-tickets", "", token)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "expired") {
		t.Errorf("expected expiry-specific message, got %s", rec.Body.String())
	}
}

func TestAssignAndRemoveMechanicOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	token := login(t, r, "a@x.com")
	ticketID := createTicket(t, r, token, "V1")
	mechanicID := createMechanic(t, r, "m@shop.com")

	assignPath := fmt.Sprintf("/service-tickets/%d/assign-mechanic/%d", ticketID, mechanicID)

	rec := doJSON(t, r, http.MethodPut, assignPath, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign failed: %d body=%s", rec.Code, rec.Body.String())
	}

	// Second assign is a no-op success.
	rec = doJSON(t, r, http.MethodPut, assignPath, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("second assign failed: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "already") {
		t.Errorf("expected already-assigned message, got %s", rec.Body.String())
	}

	removePath := fmt.Sprintf("/service-tickets/%d/remove-mechanic/%d", ticketID, mechanicID)

	rec = doJSON(t, r, http.MethodPut, removePath, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove failed: %d body=%s", rec.Code, rec.Body.String())
	}

	// Removing again is a client error, not idempotent.
	rec = doJSON(t, r, http.MethodPut, removePath, "", token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for remove of unlinked mechanic, got %d", rec.Code)
	}
}

func TestBulkEditOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	token := login(t, r, "a@x.com")
	ticketID := createTicket(t, r, token, "V1")

	mechA := createMechanic(t, r, "a@shop.com")
	mechB := createMechanic(t, r, "b@shop.com")
	mechC := createMechanic(t, r, "c@shop.com")

	editPath := fmt.Sprintf("/service-tickets/%d/edit", ticketID)

	body := fmt.Sprintf(`{"add_ids":[%d,%d],"remove_ids":[]}`, mechA, mechB)
	rec := doJSON(t, r, http.MethodPut, editPath, body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("first edit failed: %d body=%s", rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"add_ids":[%d],"remove_ids":[%d]}`, mechC, mechA)
	rec = doJSON(t, r, http.MethodPut, editPath, body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("second edit failed: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Mechanics []struct {
			ID uint `json:"id"`
		} `json:"mechanics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode edit response: %v", err)
	}

	got := make(map[uint]bool)
	for _, m := range resp.Mechanics {
		got[m.ID] = true
	}

	if len(got) != 2 || !got[mechB] || !got[mechC] {
		t.Errorf("expected final membership {%d, %d}, got %v", mechB, mechC, resp.Mechanics)
	}
}

func TestListingCacheInvalidatedOnWrite(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	token := login(t, r, "a@x.com")

	// Prime the cache with an empty listing.
	rec := doJSON(t, r, http.MethodGet, "/service-tickets", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "V1") {
		t.Fatalf("unexpected ticket in empty listing: %s", rec.Body.String())
	}

	createTicket(t, r, token, "V1")

	rec = doJSON(t, r, http.MethodGet, "/service-tickets", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "V1") {
		t.Errorf("listing is stale after write: %s", rec.Body.String())
	}
}

func TestCustomerListPaginationValidation(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		query string
		want  int
	}{
		{"?limit=0", http.StatusBadRequest},
		{"?limit=101", http.StatusBadRequest},
		{"?offset=-1", http.StatusBadRequest},
		{"?limit=10&offset=0", http.StatusOK},
		{"", http.StatusOK},
	}

	for _, tc := range cases {
		rec := doJSON(t, r, http.MethodGet, "/customers"+tc.query, "", "")
		if rec.Code != tc.want {
			t.Errorf("GET /customers%s: expected %d, got %d", tc.query, tc.want, rec.Code)
		}
	}
}

func TestMechanicCRUD(t *testing.T) {
	r := newTestRouter(t)

	mechanicID := createMechanic(t, r, "m@shop.com")

	rec := doJSON(t, r, http.MethodPost, "/mechanics", `{"name":"Dup","email":"m@shop.com","salary":1}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate mechanic email, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPut, fmt.Sprintf("/mechanics/%d", mechanicID), `{"name":"New Name","email":"m@shop.com","salary":60000}`, "")
	if rec.Code != http.StatusOK {
		t.Errorf("mechanic update failed: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/mechanics/%d", mechanicID), "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("mechanic delete failed: %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/mechanics/%d", mechanicID), "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestInventoryCRUD(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/inventory", `{"name":"Oil Filter","price":12.99}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("part create failed: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/inventory", `{"name":"Oil Filter","price":9.99}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate part name, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/inventory", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Oil Filter") {
		t.Errorf("part list failed: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDeleteMeRemovesOwnedTickets(t *testing.T) {
	r := newTestRouter(t)

	registerCustomer(t, r, "a@x.com")
	token := login(t, r, "a@x.com")
	ticketID := createTicket(t, r, token, "V1")

	rec := doJSON(t, r, http.MethodDelete, "/customers/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete me failed: %d body=%s", rec.Code, rec.Body.String())
	}

	// The ticket must be gone from the public listing.
	rec = doJSON(t, r, http.MethodGet, "/service-tickets", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), fmt.Sprintf(`"id":%d`, ticketID)) {
		t.Errorf("deleted customer's ticket still listed: %s", rec.Body.String())
	}
}
