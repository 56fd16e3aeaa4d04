package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/config"
	"github.com/xdido2/finance-tracker-backend/internal/models"
)

type fakeBlob struct {
	uploads map[string]string
	failAll bool
}

func newFakeBlob() *fakeBlob { return &fakeBlob{uploads: map[string]string{}} }

func (f *fakeBlob) Upload(_ context.Context, key, contentType string, _ io.Reader) error {
	if f.failAll {
		return fmt.Errorf("upload %s: simulated failure", key)
	}
	f.uploads[key] = contentType
	return nil
}

func (f *fakeBlob) PresignGet(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeBlob) Delete(_ context.Context, _ string) error { return nil }

func newTestHandler(t *testing.T, blobs *fakeBlob) http.Handler {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.BillCategory{}, &models.Bill{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		S3Folder:  "bills",
	}
	if blobs == nil {
		return New(db, cfg, nil)
	}
	return New(db, cfg, blobs)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func createUser(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/users", map[string]any{
		"username": username,
		"password": password,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status %d, body %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)["id"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHandler(t, nil)

	w := doJSON(t, h, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health: status %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz: status %d, body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["status"]; got != "ok" {
		t.Fatalf("healthz status = %v, want ok", got)
	}
}

func TestUserLifecycle(t *testing.T) {
	h := newTestHandler(t, nil)

	w := doJSON(t, h, http.MethodPost, "/users", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	id := created["id"].(string)
	if _, leaked := created["password_hash"]; leaked {
		t.Fatal("password hash must not appear in responses")
	}
	if _, leaked := created["PasswordHash"]; leaked {
		t.Fatal("password hash must not appear in responses")
	}

	w = doJSON(t, h, http.MethodGet, "/users/"+id, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	if got := decodeBody(t, w)["username"]; got != "alice" {
		t.Fatalf("username = %v, want alice", got)
	}

	w = doJSON(t, h, http.MethodPatch, "/users/"+id, map[string]any{"username": "alice2"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("patch: status %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["username"] != "alice2" {
		t.Fatalf("username = %v, want alice2", body["username"])
	}
	if body["email"] != "alice@example.com" {
		t.Fatalf("email = %v, untouched fields must survive a partial update", body["email"])
	}

	w = doJSON(t, h, http.MethodDelete, "/users/"+id, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/users/"+id, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", w.Code)
	}
}

func TestUserValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	w := doJSON(t, h, http.MethodPost, "/users", map[string]any{"username": "", "password": "pw"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "validation_failed" {
		t.Fatalf("error = %v, want validation_failed", got)
	}
}

func TestUserDuplicateConflict(t *testing.T) {
	h := newTestHandler(t, nil)
	createUser(t, h, "alice", "pw")

	w := doJSON(t, h, http.MethodPost, "/users", map[string]any{"username": "alice", "password": "pw"}, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409; body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["error"]; got != "conflict" {
		t.Fatalf("error = %v, want conflict", got)
	}
}

func TestBillLifecycle(t *testing.T) {
	h := newTestHandler(t, nil)
	userID := createUser(t, h, "alice", "pw")

	w := doJSON(t, h, http.MethodPost, "/bills", map[string]any{
		"title":    "Rent",
		"amount":   500,
		"currency": "usd",
		"user_id":  userID,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	bill := decodeBody(t, w)
	billID := bill["id"].(string)
	if bill["currency"] != "USD" {
		t.Fatalf("currency = %v, want normalized USD", bill["currency"])
	}
	if bill["is_deleted"] != false {
		t.Fatalf("is_deleted = %v on a fresh bill", bill["is_deleted"])
	}

	w = doJSON(t, h, http.MethodGet, "/bills/"+billID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	if got := decodeBody(t, w)["title"]; got != "Rent" {
		t.Fatalf("title = %v, want Rent", got)
	}

	w = doJSON(t, h, http.MethodDelete, "/bills/"+billID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/bills/"+billID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", w.Code)
	}
	// Soft-deleted bills behave as missing for repeated deletes too.
	w = doJSON(t, h, http.MethodDelete, "/bills/"+billID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", w.Code)
	}
}

func TestBillCreateUnknownUserRef(t *testing.T) {
	h := newTestHandler(t, nil)

	w := doJSON(t, h, http.MethodPost, "/bills", map[string]any{
		"title":    "Rent",
		"amount":   500,
		"currency": "USD",
		"user_id":  "0e6dd9a1-24be-4b4f-9a43-d54a2b24a0b5",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400; body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["error"]; got != "invalid_reference" {
		t.Fatalf("error = %v, want invalid_reference", got)
	}
}

func TestBillCreateBadCurrency(t *testing.T) {
	h := newTestHandler(t, nil)
	userID := createUser(t, h, "alice", "pw")

	w := doJSON(t, h, http.MethodPost, "/bills", map[string]any{
		"title":    "Rent",
		"amount":   500,
		"currency": "DOLLARS",
		"user_id":  userID,
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "validation_failed" {
		t.Fatalf("error = %v, want validation_failed", got)
	}
}

func TestBillMultipartUploadAndPresign(t *testing.T) {
	blobs := newFakeBlob()
	h := newTestHandler(t, blobs)
	userID := createUser(t, h, "alice", "pw")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"title":    "Groceries",
		"amount":   "42.50",
		"currency": "EUR",
		"user_id":  userID,
	} {
		if err := mw.WriteField(field, value); err != nil {
			t.Fatalf("write field %s: %v", field, err)
		}
	}
	part, err := mw.CreateFormFile("file", "receipt.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/bills", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	bill := decodeBody(t, w)
	billID := bill["id"].(string)

	wantKey := "bills/" + billID + ".png"
	if _, ok := blobs.uploads[wantKey]; !ok {
		t.Fatalf("uploaded keys %v, want %s", blobs.uploads, wantKey)
	}
	if got := bill["bill_image_url"]; got != "https://signed.example/"+wantKey {
		t.Fatalf("bill_image_url = %v, want presigned URL", got)
	}

	// The raw key never leaves the API; reads presign it again.
	getW := doJSON(t, h, http.MethodGet, "/bills/"+billID, nil, "")
	if getW.Code != http.StatusOK {
		t.Fatalf("get: status %d", getW.Code)
	}
	if got := decodeBody(t, getW)["bill_image_url"]; got != "https://signed.example/"+wantKey {
		t.Fatalf("bill_image_url on read = %v, want presigned URL", got)
	}
}

func TestLoginAndMe(t *testing.T) {
	h := newTestHandler(t, nil)
	userID := createUser(t, h, "alice", "s3cret")

	form := url.Values{"username": {"alice"}, "password": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["token_type"] != "bearer" {
		t.Fatalf("token_type = %v, want bearer", body["token_type"])
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("login returned no access_token")
	}

	meW := doJSON(t, h, http.MethodGet, "/auth/me", nil, token)
	if meW.Code != http.StatusOK {
		t.Fatalf("me: status %d, body %s", meW.Code, meW.Body.String())
	}
	me := decodeBody(t, meW)
	if me["id"] != userID || me["username"] != "alice" {
		t.Fatalf("me = %v, want id %s username alice", me, userID)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	h := newTestHandler(t, nil)
	createUser(t, h, "alice", "s3cret")

	for name, form := range map[string]url.Values{
		"wrong password": {"username": {"alice"}, "password": {"nope"}},
		"unknown user":   {"username": {"mallory"}, "password": {"s3cret"}},
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400", name, w.Code)
		}
		if got := decodeBody(t, w)["error"]; got != "incorrect_username_or_password" {
			t.Fatalf("%s: error = %v", name, got)
		}
	}
}

func TestMeRequiresToken(t *testing.T) {
	h := newTestHandler(t, nil)

	w := doJSON(t, h, http.MethodGet, "/auth/me", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/auth/me", nil, "not-a-valid-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", w.Code)
	}
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	return decodeBody(t, w)["access_token"].(string)
}

func TestCategoryOwnership(t *testing.T) {
	h := newTestHandler(t, nil)
	aliceID := createUser(t, h, "alice", "pw")
	bobID := createUser(t, h, "bob", "pw")
	aliceToken := login(t, h, "alice", "pw")
	bobToken := login(t, h, "bob", "pw")

	// The token decides ownership regardless of the body.
	w := doJSON(t, h, http.MethodPost, "/bill-categories", map[string]any{
		"name":    "Food",
		"user_id": bobID,
	}, aliceToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	cat := decodeBody(t, w)
	catID := cat["id"].(string)
	if cat["user_id"] != aliceID {
		t.Fatalf("user_id = %v, want token user %s", cat["user_id"], aliceID)
	}

	// Listing is owner scoped.
	w = doJSON(t, h, http.MethodGet, "/bill-categories?user_id="+aliceID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var listed []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0]["id"] != catID {
		t.Fatalf("list = %v, want alice's single category", listed)
	}
	w = doJSON(t, h, http.MethodGet, "/bill-categories?user_id="+bobID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list bob: status %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("bob's list = %v, want empty", listed)
	}

	// A non-owner cannot tell the category exists through update.
	w = doJSON(t, h, http.MethodPut, "/bill-categories/"+catID, map[string]any{"name": "Hijacked"}, bobToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update by non-owner: status %d, want 404", w.Code)
	}
	w = doJSON(t, h, http.MethodPut, "/bill-categories/"+catID, map[string]any{"name": "Groceries"}, aliceToken)
	if w.Code != http.StatusOK {
		t.Fatalf("update by owner: status %d, body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["name"]; got != "Groceries" {
		t.Fatalf("name = %v, want Groceries", got)
	}

	w = doJSON(t, h, http.MethodDelete, "/bill-categories/"+catID, nil, bobToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/bill-categories/"+catID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", w.Code)
	}
}
