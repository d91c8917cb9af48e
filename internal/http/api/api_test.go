package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/fidelicard/loyalty/internal/config"
	dbutil "github.com/fidelicard/loyalty/internal/db"
	"github.com/fidelicard/loyalty/internal/gate"
	"github.com/fidelicard/loyalty/internal/ledger"
	"github.com/fidelicard/loyalty/internal/merchants"
	"github.com/fidelicard/loyalty/internal/models"
	"github.com/fidelicard/loyalty/internal/security"
)

const testAdminPassword = "03842789"

func setupRouter(t *testing.T, operatorMode bool) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	ledgerCfg := config.LedgerConfig{
		CardPrefix:             "CARD",
		InitialCredits:         10,
		ValidityDays:           30,
		EnableHistory:          true,
		EnableOperatorAccounts: operatorMode,
		Operators:              []string{"ana"},
		Merchants: []config.Merchant{
			{Name: "MerchantA"},
			{Name: "CHAAAMA CHOPP", Label: "CHAMA"},
		},
	}
	set, errSet := merchants.NewSet(ledgerCfg.Merchants)
	if errSet != nil {
		t.Fatalf("merchant set: %v", errSet)
	}
	led := ledger.New(conn, ledgerCfg, set)

	adminHash, errHash := security.HashPassword(testAdminPassword)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	g := gate.New(conn, config.AuthConfig{
		JWTSecret:         "test-secret",
		TokenTTL:          config.Duration(time.Hour),
		AdminPasswordHash: adminHash,
	}, operatorMode)
	if operatorMode {
		if errSeed := g.SeedOperators(context.Background(), ledgerCfg.Operators); errSeed != nil {
			t.Fatalf("seed: %v", errSeed)
		}
	}

	engine := gin.New()
	RegisterRoutes(engine, led, g)
	return engine, conn
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Password": testAdminPassword}
}

func registerCustomer(t *testing.T, engine *gin.Engine, name, cardID, phone string) {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": name, "card_id": cardID, "phone": phone}, adminHeaders())
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", cardID, rec.Code, rec.Body.String())
	}
}

func TestRegisterRequiresAdminPassword(t *testing.T) {
	engine, conn := setupRouter(t, false)

	rec := doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": "Ana", "card_id": "CARD001", "phone": "5551234"},
		map[string]string{"X-Admin-Password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", rec.Code)
	}
	var count int64
	conn.Model(&models.Customer{}).Count(&count)
	if count != 0 {
		t.Fatalf("denied request wrote a row")
	}

	registerCustomer(t, engine, "Ana", "CARD001", "5551234")
}

func TestRegisterConflictAndFormat(t *testing.T) {
	engine, _ := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")

	rec := doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": "Bruno", "card_id": "CARD001", "phone": "5555678"}, adminHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": "Bruno", "card_id": "NOPE1", "phone": "5555678"}, adminHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad prefix: status %d", rec.Code)
	}
}

func TestDeductFlowOverHTTP(t *testing.T) {
	engine, _ := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")

	rec := doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/deduct",
		gin.H{"amount": "4", "merchant": "MerchantA"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct: status %d body %s", rec.Code, rec.Body.String())
	}
	var deductResp struct {
		Credits int `json:"credits"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &deductResp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if deductResp.Credits != 6 {
		t.Fatalf("credits: got %d want 6", deductResp.Credits)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/deduct",
		gin.H{"amount": "10", "merchant": "MerchantA"}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("insufficient: status %d", rec.Code)
	}
	var insufficientResp struct {
		Available int `json:"available"`
		Requested int `json:"requested"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &insufficientResp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if insufficientResp.Available != 6 || insufficientResp.Requested != 10 {
		t.Fatalf("insufficient detail: %+v", insufficientResp)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/deduct",
		gin.H{"amount": "1", "merchant": "Stranger"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown merchant: status %d", rec.Code)
	}

	// numeric amounts are accepted too
	rec = doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/deduct",
		gin.H{"amount": 2, "merchant": "CHAAAMA CHOPP"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("numeric amount: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/customers/CARD001/history", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d", rec.Code)
	}
	var historyResp struct {
		History []struct {
			Merchant string `json:"merchant"`
			Amount   int    `json:"amount"`
		} `json:"history"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &historyResp); errDecode != nil {
		t.Fatalf("decode history: %v", errDecode)
	}
	if len(historyResp.History) != 2 {
		t.Fatalf("history size: %d", len(historyResp.History))
	}
	if historyResp.History[0].Merchant != "CHAMA" || historyResp.History[0].Amount != -2 {
		t.Fatalf("newest entry: %+v", historyResp.History[0])
	}
}

func TestInfoNotFound(t *testing.T) {
	engine, _ := setupRouter(t, false)
	rec := doJSON(t, engine, http.MethodGet, "/api/customers/CARD404", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestAddManualRejectsBadAmount(t *testing.T) {
	engine, _ := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")

	rec := doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/credits",
		gin.H{"amount": "abc"}, adminHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/credits",
		gin.H{"amount": "0"}, adminHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/credits",
		gin.H{"amount": "5"}, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("valid: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestOperatorLoginFlow(t *testing.T) {
	engine, _ := setupRouter(t, true)

	rec := doJSON(t, engine, http.MethodPost, "/api/login",
		gin.H{"username": "ana", "password": "chopp123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first login: status %d body %s", rec.Code, rec.Body.String())
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &loginResp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if loginResp.Token == "" {
		t.Fatalf("empty token")
	}

	// gated route without token
	rec = doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": "Ana", "card_id": "CARD001", "phone": "5551234"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/customers",
		gin.H{"name": "Ana", "card_id": "CARD001", "phone": "5551234"},
		map[string]string{"Authorization": "Bearer " + loginResp.Token})
	if rec.Code != http.StatusCreated {
		t.Fatalf("with token: status %d body %s", rec.Code, rec.Body.String())
	}

	// second login with another password must not reset the credential
	rec = doJSON(t, engine, http.MethodPost, "/api/login",
		gin.H{"username": "ana", "password": "other"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("credential reset: status %d", rec.Code)
	}
}

func TestMerchantListAndLookup(t *testing.T) {
	engine, _ := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")

	rec := doJSON(t, engine, http.MethodGet, "/api/merchants", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("merchants: status %d", rec.Code)
	}
	var merchantsResp struct {
		Merchants []string `json:"merchants"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &merchantsResp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(merchantsResp.Merchants) != 2 || merchantsResp.Merchants[1] != "CHAAAMA CHOPP" {
		t.Fatalf("merchants: %v", merchantsResp.Merchants)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/lookup?phone=5551234", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodGet, "/api/lookup?phone=0000000", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("lookup unknown: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodGet, "/api/lookup", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("lookup missing phone: status %d", rec.Code)
	}
}

func TestDeleteCascadesOverHTTP(t *testing.T) {
	engine, conn := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")
	rec := doJSON(t, engine, http.MethodPost, "/api/customers/CARD001/deduct",
		gin.H{"amount": "1", "merchant": "MerchantA"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct: status %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodDelete, "/api/customers/CARD001", nil, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}

	var customers, entries int64
	conn.Model(&models.Customer{}).Count(&customers)
	conn.Model(&models.HistoryEntry{}).Count(&entries)
	if customers != 0 || entries != 0 {
		t.Fatalf("cascade: customers=%d entries=%d", customers, entries)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/customers/CARD001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted customer still served: %d", rec.Code)
	}
}

func TestStatementPDFEndpoint(t *testing.T) {
	engine, _ := setupRouter(t, false)
	registerCustomer(t, engine, "Ana", "CARD001", "5551234")

	rec := doJSON(t, engine, http.MethodGet, "/api/customers/CARD001/statement.pdf", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statement: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
}
