//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/channel"
	"github.com/swadpos/api/internal/config"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/router"
	"github.com/swadpos/api/internal/ws"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database: onboarding, approval, menu, counter billing, the
// customer handoff channel, and the daily dashboard.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		SnapshotTTL: time.Hour,
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	ch := channel.New(pool, func(db database.DBTX) channel.Store {
		return database.New(db)
	})

	taxRate := decimal.NewFromInt(5)
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	r := router.New(cfg, queries, pool, hub, ch, taxRate, loc)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Register a restaurant; the owner starts PENDING ---
	regResp := intPostJSON(t, server, "/auth/register", map[string]interface{}{
		"restaurant_name": "Swad Bhavan",
		"address":         "12 MG Road, Bengaluru",
		"phone":           "9876543210",
		"email":           "owner@swadbhavan.in",
		"password":        "password123",
		"full_name":       "Asha Rao",
	}, "", http.StatusCreated)
	restaurantID := uuid.MustParse(regResp["restaurant_id"].(string))
	ownerUserID := uuid.MustParse(regResp["user_id"].(string))
	if regResp["status"] != "PENDING" {
		t.Fatalf("registered owner status: got %v, want PENDING", regResp["status"])
	}

	// --- 2. Login before approval is refused ---
	intPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email":    "owner@swadbhavan.in",
		"password": "password123",
	}, "", http.StatusForbidden)

	// --- 3. Seed a platform admin directly and approve the owner ---
	createAdminUser(t, ctx, pool)
	adminToken := intLogin(t, server, "admin@swadpos.in", "password123")

	intPostJSON(t, server, fmt.Sprintf("/admin/users/%s/approve", ownerUserID), nil, adminToken, http.StatusOK)

	// Approving twice is a conflict.
	intPostJSON(t, server, fmt.Sprintf("/admin/users/%s/approve", ownerUserID), nil, adminToken, http.StatusConflict)

	// --- 4. Owner can now login ---
	ownerToken := intLogin(t, server, "owner@swadbhavan.in", "password123")

	// --- 5. Build the menu ---
	paneer := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/menu", restaurantID), map[string]interface{}{
		"name":          "Paneer Tikka",
		"category":      "Starters",
		"offline_price": "250.00",
		"online_price":  "270.00",
		"in_stock":      true,
	}, ownerToken, http.StatusCreated)
	paneerID := uuid.MustParse(paneer["id"].(string))

	intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/menu", restaurantID), map[string]interface{}{
		"name":          "Veg Biryani",
		"category":      "Mains",
		"offline_price": "180.00",
		"online_price":  "195.00",
		"in_stock":      true,
	}, ownerToken, http.StatusCreated)

	// --- 6. Counter order: offline price, GST forward, straight to PREPARATION ---
	orderResp := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/orders", restaurantID), map[string]interface{}{
		"source": map[string]interface{}{"kind": "COUNTER", "table_number": "4"},
		"items": []map[string]interface{}{
			{"menu_item_id": paneerID.String(), "quantity": 2},
		},
	}, ownerToken, http.StatusCreated)
	orderID := uuid.MustParse(orderResp["id"].(string))

	// 2 x 250 = 500, 5% GST = 25, total 525
	if orderResp["subtotal"] != "500.00" || orderResp["tax_amount"] != "25.00" || orderResp["total"] != "525.00" {
		t.Fatalf("counter order totals: got %v/%v/%v, want 500.00/25.00/525.00",
			orderResp["subtotal"], orderResp["tax_amount"], orderResp["total"])
	}
	if orderResp["cgst"] != "12.50" || orderResp["sgst"] != "12.50" {
		t.Fatalf("gst split: got cgst=%v sgst=%v, want 12.50 each", orderResp["cgst"], orderResp["sgst"])
	}
	if orderResp["status"] != "PREPARATION" {
		t.Fatalf("counter order status: got %v, want PREPARATION", orderResp["status"])
	}
	if orderResp["order_number"] != "SWD-001" {
		t.Fatalf("order number: got %v, want SWD-001", orderResp["order_number"])
	}

	// Order lines are value snapshots: raising the menu price afterwards
	// must not rewrite the existing order.
	intPutJSON(t, server, fmt.Sprintf("/restaurants/%s/menu/%s", restaurantID, paneerID), map[string]interface{}{
		"name":          "Paneer Tikka",
		"category":      "Starters",
		"offline_price": "300.00",
		"online_price":  "270.00",
		"in_stock":      true,
	}, ownerToken, http.StatusOK)

	refetched := intGetJSON(t, server, fmt.Sprintf("/restaurants/%s/orders/%s", restaurantID, orderID), ownerToken)
	if refetched["total"] != "525.00" {
		t.Fatalf("order total after menu price change: got %v, want 525.00", refetched["total"])
	}
	refetchedItems := refetched["items"].([]interface{})
	if len(refetchedItems) != 1 {
		t.Fatalf("order items after menu price change: got %d, want 1", len(refetchedItems))
	}
	if unit := refetchedItems[0].(map[string]interface{})["unit_price"]; unit != "250.00" {
		t.Fatalf("line unit price after menu price change: got %v, want 250.00", unit)
	}

	// --- 7. Complete the order with a payment method ---
	completed := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/orders/%s/complete", restaurantID, orderID),
		map[string]interface{}{"payment_method": "UPI"}, ownerToken, http.StatusOK)
	if completed["status"] != "COMPLETED" {
		t.Fatalf("completed status: got %v, want COMPLETED", completed["status"])
	}

	// Completing twice is a conflict.
	intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/orders/%s/complete", restaurantID, orderID),
		map[string]interface{}{"payment_method": "UPI"}, ownerToken, http.StatusConflict)

	// --- 8. Receipt is printable plain text ---
	receipt := intGetText(t, server, fmt.Sprintf("/restaurants/%s/orders/%s/receipt", restaurantID, orderID), ownerToken)
	for _, want := range []string{"Swad Bhavan", "SWD-001", "Paneer Tikka", "CGST", "525.00"} {
		if !bytes.Contains([]byte(receipt), []byte(want)) {
			t.Fatalf("receipt missing %q:\n%s", want, receipt)
		}
	}

	// --- 9. Share the menu, browse it anonymously, and check out ---
	shareResp := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/menu/share", restaurantID), nil, ownerToken, http.StatusCreated)
	shareKey := shareResp["key"].(string)
	shareToken := shareResp["token"].(string)

	menuResp := intGetJSON(t, server, "/public/menu?key="+shareKey, "")
	if menuResp["name"] != "Swad Bhavan" {
		t.Fatalf("public menu name: got %v, want Swad Bhavan", menuResp["name"])
	}
	menuItems := menuResp["menu"].([]interface{})
	if len(menuItems) != 2 {
		t.Fatalf("public menu size: got %d, want 2", len(menuItems))
	}

	checkoutResp := intPostJSON(t, server, "/public/orders", map[string]interface{}{
		"token":          shareToken,
		"customer_name":  "Ravi",
		"customer_phone": "9876501234",
		"items": []map[string]interface{}{
			{"menu_item_id": paneerID.String(), "quantity": 1},
		},
		"payment_method": "UPI",
	}, "", http.StatusCreated)
	publicOrderID := uuid.MustParse(checkoutResp["order_id"].(string))

	// Online price 270, 5% GST = 13.50, total 283.50
	if checkoutResp["total"] != "283.50" {
		t.Fatalf("checkout total: got %v, want 283.50", checkoutResp["total"])
	}

	// --- 10. Drain the handoff channel into the order book ---
	drained, err := ch.DrainPending(ctx, restaurantID)
	if err != nil {
		t.Fatalf("drain pending: %v", err)
	}
	if len(drained) != 1 {
		t.Fatalf("drained orders: got %d, want 1", len(drained))
	}

	// Draining again is a no-op.
	drained, err = ch.DrainPending(ctx, restaurantID)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(drained) != 0 {
		t.Fatalf("second drain: got %d orders, want 0", len(drained))
	}

	publicOrder := intGetJSON(t, server, fmt.Sprintf("/restaurants/%s/orders/%s", restaurantID, publicOrderID), ownerToken)
	if publicOrder["status"] != "PLACED" {
		t.Fatalf("drained order status: got %v, want PLACED", publicOrder["status"])
	}
	if publicOrder["order_type"] != "ONLINE" {
		t.Fatalf("drained order type: got %v, want ONLINE", publicOrder["order_type"])
	}

	// --- 11. Accept the incoming order ---
	accepted := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/orders/%s/accept", restaurantID, publicOrderID),
		nil, ownerToken, http.StatusOK)
	if accepted["status"] != "PREPARATION" {
		t.Fatalf("accepted status: got %v, want PREPARATION", accepted["status"])
	}

	// --- 12. Dashboard reflects the completed counter sale ---
	today := time.Now().In(loc).Format("2006-01-02")
	dash := intGetJSON(t, server, fmt.Sprintf("/restaurants/%s/dashboard?date=%s", restaurantID, today), ownerToken)
	if dash["offline_sales"] != "525.00" {
		t.Fatalf("dashboard offline_sales: got %v, want 525.00", dash["offline_sales"])
	}
	if dash["preparation_count"] != float64(1) {
		t.Fatalf("dashboard preparation_count: got %v, want 1", dash["preparation_count"])
	}

	// --- 13. Support ticket round trip ---
	ticket := intPostJSON(t, server, fmt.Sprintf("/restaurants/%s/tickets", restaurantID), map[string]interface{}{
		"subject": "Printer not working",
		"message": "The receipt printer stopped responding after the update.",
	}, ownerToken, http.StatusCreated)
	ticketID := uuid.MustParse(ticket["id"].(string))

	answered := intPostJSON(t, server, fmt.Sprintf("/admin/tickets/%s/answer", ticketID), map[string]interface{}{
		"reply": "Power-cycle the printer and re-pair it from settings.",
	}, adminToken, http.StatusOK)
	if answered["status"] != "ANSWERED" {
		t.Fatalf("ticket status: got %v, want ANSWERED", answered["status"])
	}

	closed := intPostJSON(t, server, fmt.Sprintf("/admin/tickets/%s/close", ticketID), nil, adminToken, http.StatusOK)
	if closed["status"] != "CLOSED" {
		t.Fatalf("ticket status: got %v, want CLOSED", closed["status"])
	}

	t.Logf("Integration test passed: container=%s, restaurant=%s, counter order=%s, public order=%s",
		pgContainer.GetContainerID(), restaurantID, orderID, publicOrderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (id, restaurant_id, email, password_hash, full_name, role, status)
		 VALUES ($1, NULL, $2, $3, $4, 'ADMIN', 'APPROVED')
		 RETURNING id`,
		uuid.New(), "admin@swadpos.in", string(hashed), "Swad Admin",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

// --- HTTP helpers ---

func intLogin(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := intPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "", http.StatusOK)
	token, ok := resp["token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no token in response: %+v", resp)
	}
	return token
}

func intPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string, wantStatus int) map[string]interface{} {
	t.Helper()
	return intSendJSON(t, server, "POST", path, body, token, wantStatus)
}

func intPutJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string, wantStatus int) map[string]interface{} {
	t.Helper()
	return intSendJSON(t, server, "PUT", path, body, token, wantStatus)
}

func intSendJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, wantStatus, result)
	}
	return result
}

func intGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()

	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func intGetText(t *testing.T, server *httptest.Server, path string, token string) string {
	t.Helper()

	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d, body: %s", path, resp.StatusCode, buf.String())
	}
	return buf.String()
}
