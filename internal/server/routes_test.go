package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"go-signpdf/internal/config"
	"go-signpdf/internal/mail"
	"go-signpdf/internal/pdf/pdftest"
)

const testBaseURL = "http://files.test"

func setupTestServer(t *testing.T, opts ...func(*config.Config)) (*httptest.Server, *Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.StorageDir = t.TempDir()
	cfg.PublicBaseURL = testBaseURL
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}
	srv, teardown, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open server: %v", err)
	}
	ts := httptest.NewServer(srv.RegisterRoutes())
	t.Cleanup(func() {
		ts.Close()
		teardown()
	})
	return ts, srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response of %s %s: %v", method, url, err)
	}
	return resp, result
}

func register(t *testing.T, ts *httptest.Server, name, email string) string {
	t.Helper()
	resp, result := doJSON(t, http.MethodPost, ts.URL+"/api/v1/register", "", map[string]string{
		"name": name, "email": email, "password": "s3cretpass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 Created, got %d: %v", resp.StatusCode, result)
	}
	token, _ := result["token"].(string)
	if token == "" {
		t.Fatal("Expected token in register response")
	}
	return token
}

func upload(t *testing.T, ts *httptest.Server, filename string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	part.Write(data)
	mw.Close()
	resp, err := http.Post(ts.URL+"/api/v1/pdf/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer resp.Body.Close()
	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

// local rewrites a public object URL to the test server.
func local(ts *httptest.Server, url string) string {
	return strings.Replace(url, testBaseURL, ts.URL, 1)
}

func TestUploadPDF(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, result := upload(t, ts, "contract.pdf", pdftest.Blank(1, 612, 792))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %v", resp.StatusCode, result)
	}
	url, _ := result["url"].(string)
	if !strings.HasPrefix(url, testBaseURL+"/files/pdfs/") {
		t.Errorf("Unexpected url %q", url)
	}

	get, err := http.Get(local(ts, url))
	if err != nil {
		t.Fatalf("Failed to fetch uploaded file: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusOK || get.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("Expected PDF, got %d %q", get.StatusCode, get.Header.Get("Content-Type"))
	}

	resp, _ = upload(t, ts, "fake.pdf", []byte("GIF89a not a pdf"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-PDF content, got %d", resp.StatusCode)
	}
	resp, _ = upload(t, ts, "notes.txt", pdftest.Blank(1, 612, 792))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for wrong extension, got %d", resp.StatusCode)
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts, _ := setupTestServer(t, func(cfg *config.Config) { cfg.MaxUploadBytes = 1024 })
	resp, result := upload(t, ts, "big.pdf", append([]byte("%PDF-"), make([]byte, 4096)...))
	if resp.StatusCode != http.StatusBadRequest || result["message"] != "File too large" {
		t.Errorf("Expected 400 File too large, got %d %v", resp.StatusCode, result)
	}
}

func TestSignListDeleteFlow(t *testing.T) {
	ts, _ := setupTestServer(t)
	owner := register(t, ts, "Owner One", "owner@example.com")
	other := register(t, ts, "Other Two", "other@example.com")

	_, up := upload(t, ts, "contract.pdf", pdftest.Blank(2, 612, 792))
	pdfURL, _ := up["url"].(string)

	signBody := map[string]any{
		"pdfUrl":   pdfURL,
		"type":     "text",
		"text":     "Approved",
		"fontSize": "12.5",
		"x":        100,
		"y":        "50",
		"page":     1,
	}

	resp, result := doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/sign/doc-1", "", signBody)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", resp.StatusCode)
	}
	if result["success"] != false {
		t.Errorf("Expected success=false, got %v", result)
	}

	resp, result = doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/sign/doc-1", owner, signBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %v", resp.StatusCode, result)
	}
	signedURL, _ := result["signedUrl"].(string)
	publicID, _ := result["public_id"].(string)
	if !strings.HasPrefix(publicID, "signed_pdfs/") {
		t.Errorf("Unexpected public_id %q", publicID)
	}
	get, err := http.Get(local(ts, signedURL))
	if err != nil {
		t.Fatalf("Failed to fetch signed file: %v", err)
	}
	signed, _ := io.ReadAll(get.Body)
	get.Body.Close()
	if !bytes.HasPrefix(signed, []byte("%PDF-")) {
		t.Error("Signed artifact is not a PDF")
	}

	gif := map[string]any{
		"pdfUrl":    pdfURL,
		"type":      "image",
		"imageData": pdftest.DataURL("image/gif", pdftest.GIF()),
		"x":         10,
		"y":         10,
	}
	resp, result = doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/sign/doc-1", owner, gif)
	if resp.StatusCode != http.StatusBadRequest || result["message"] != "Unsupported image format" {
		t.Errorf("Expected 400 Unsupported image format, got %d %v", resp.StatusCode, result)
	}

	badPage := map[string]any{"pdfUrl": pdfURL, "type": "text", "text": "x", "x": 1, "y": 1, "page": 3}
	resp, result = doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/sign/doc-1", owner, badPage)
	if resp.StatusCode != http.StatusBadRequest || result["message"] != "Invalid page number" {
		t.Errorf("Expected 400 Invalid page number, got %d %v", resp.StatusCode, result)
	}

	badX := map[string]any{"pdfUrl": pdfURL, "type": "text", "text": "x", "x": "left", "y": 1}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/sign/doc-1", owner, badX)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric x, got %d", resp.StatusCode)
	}

	resp, result = doJSON(t, http.MethodGet, ts.URL+"/api/v1/pdf/list", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	files, _ := result["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
	rec := files[0].(map[string]any)
	if rec["y"] != 732.0 || rec["x"] != 100.0 || rec["status"] != "signed" || rec["documentId"] != "doc-1" {
		t.Errorf("Unexpected record %v", rec)
	}

	resp, result = doJSON(t, http.MethodGet, ts.URL+"/api/v1/pdf/list?status=pending", owner, nil)
	if files, _ := result["files"].([]any); resp.StatusCode != http.StatusOK || len(files) != 0 {
		t.Errorf("Expected empty pending list, got %d %v", resp.StatusCode, result)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/pdf/list?limit=0", owner, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for limit=0, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/pdf/delete/doc-1", other, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for foreign document, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/pdf/delete/unknown", owner, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown document, got %d", resp.StatusCode)
	}
	resp, result = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/pdf/delete/doc-1", owner, nil)
	if resp.StatusCode != http.StatusOK || result["deleted"] != 1.0 {
		t.Errorf("Expected 200 with 1 deleted, got %d %v", resp.StatusCode, result)
	}
	get, err = http.Get(local(ts, signedURL))
	if err != nil {
		t.Fatalf("Failed to fetch deleted file: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Errorf("Expected signed artifact to be gone, got %d", get.StatusCode)
	}
}

func TestPreviewPDF(t *testing.T) {
	ts, _ := setupTestServer(t)
	_, up := upload(t, ts, "contract.pdf", pdftest.Blank(1, 612, 792))
	id, _ := up["public_id"].(string)

	resp, err := http.Get(ts.URL + "/api/v1/pdf/preview?file=" + id)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 OK, got %d", resp.StatusCode)
	}

	for file, status := range map[string]int{
		"":                 http.StatusBadRequest,
		"pdfs/missing.pdf": http.StatusNotFound,
		"../../etc/passwd": http.StatusBadRequest,
	} {
		resp, err := http.Get(ts.URL + "/api/v1/pdf/preview?file=" + file)
		if err != nil {
			t.Fatalf("Preview failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			t.Errorf("file=%q: expected %d, got %d", file, status, resp.StatusCode)
		}
	}
}

func TestEmailPDF(t *testing.T) {
	ts, srv := setupTestServer(t)
	token := register(t, ts, "Owner One", "owner@example.com")

	body := map[string]string{"fileUrl": testBaseURL + "/files/signed_pdfs/x.pdf", "toEmail": "client@example.com"}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/email", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	resp, result := doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/email", token, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %v", resp.StatusCode, result)
	}
	sent := srv.Mailer.(*mail.LogSender).Sent()
	if len(sent) != 1 || sent[0].To != "client@example.com" || sent[0].Subject != "Signed PDF Document" {
		t.Errorf("Unexpected outbox %+v", sent)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/pdf/email", token, map[string]string{"fileUrl": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing toEmail, got %d", resp.StatusCode)
	}
}

func TestAccountFlow(t *testing.T) {
	ts, srv := setupTestServer(t)
	token := register(t, ts, "Jane Doe", "jane@example.com")

	resp, result := doJSON(t, http.MethodGet, ts.URL+"/api/v1/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	user := result["user"].(map[string]any)
	if user["email"] != "jane@example.com" {
		t.Errorf("Unexpected user %v", user)
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Error("Password hash must not be serialized")
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/login", "", map[string]string{"email": "jane@example.com", "password": "wrong-pass"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", resp.StatusCode)
	}
	resp, result = doJSON(t, http.MethodPost, ts.URL+"/api/v1/login", "", map[string]string{"email": "jane@example.com", "password": "s3cretpass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != result["token"] {
		t.Errorf("Expected HTTP-only token cookie, got %+v", cookie)
	}

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/v1/me/update", token, map[string]string{"name": "Jane Roe", "email": "jane.roe@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 OK for profile update, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/v1/password/update", token, map[string]string{
		"oldPassword": "s3cretpass", "newPassword": "n3wpassword", "confirmPassword": "n3wpassword",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 OK for password update, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/password/forgot", "", map[string]string{"email": "nobody@example.com"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown email, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/password/forgot", "", map[string]string{"email": "jane.roe@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK for forgot password, got %d", resp.StatusCode)
	}
	sent := srv.Mailer.(*mail.LogSender).Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 reset mail, got %d", len(sent))
	}
	m := regexp.MustCompile(`/password/reset/([0-9a-f]{40})`).FindStringSubmatch(sent[0].Markdown)
	if m == nil {
		t.Fatalf("No reset link in %q", sent[0].Markdown)
	}
	resetURL := ts.URL + "/api/v1/password/reset/" + m[1]
	resp, _ = doJSON(t, http.MethodPut, resetURL, "", map[string]string{"password": "r3setpass", "confirmPassword": "r3setpass"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 OK for reset, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, resetURL, "", map[string]string{"password": "again1234", "confirmPassword": "again1234"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for reused reset token, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/login", "", map[string]string{"email": "jane.roe@example.com", "password": "r3setpass"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected login with reset password, got %d", resp.StatusCode)
	}

	resp, result = doJSON(t, http.MethodGet, ts.URL+"/api/v1/logout", token, nil)
	if resp.StatusCode != http.StatusOK || result["message"] != "Logged Out" {
		t.Errorf("Unexpected logout response %d %v", resp.StatusCode, result)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts, _ := setupTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/pdf/list", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected credentials to be allowed")
	}
}

func TestSwaggerLocalhostOnly(t *testing.T) {
	h := localhostOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = "203.0.113.7:4242"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for remote client, got %d", rr.Code)
	}

	req.RemoteAddr = "127.0.0.1:4242"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for localhost, got %d", rr.Code)
	}
}
