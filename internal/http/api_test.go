package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fishlog/internal/repository/sqlite"
	"fishlog/internal/service"
	"fishlog/internal/storage"
)

type testServer struct {
	router    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "fishlog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	catchRepo := sqlite.NewCatchRepository(db)
	folderRepo := sqlite.NewFolderRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	ctx := context.Background()
	if err := userRepo.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := folderRepo.Init(ctx); err != nil {
		t.Fatalf("init folders: %v", err)
	}
	if err := catchRepo.Init(ctx); err != nil {
		t.Fatalf("init catches: %v", err)
	}
	if err := sessionRepo.Init(ctx); err != nil {
		t.Fatalf("init sessions: %v", err)
	}

	store, err := storage.NewLocalService(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(
		service.NewUserService(userRepo, sessionRepo, "test-secret", time.Hour),
		service.NewCatchService(catchRepo, folderRepo),
		service.NewFolderService(folderRepo),
		store,
		time.Hour,
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)

	return &testServer{router: router, uploadDir: store.Dir()}
}

func (ts *testServer) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postCatch(t *testing.T, token string, fields map[string]string, photo []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "bass.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(photo); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/fish", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func (ts *testServer) signupAndLogin(t *testing.T, username, password string) string {
	t.Helper()

	if w := ts.doJSON(t, http.MethodPost, "/api/signup", "", gin.H{"username": username, "password": password}); w.Code != http.StatusOK {
		t.Fatalf("signup %s: status %d body %s", username, w.Code, w.Body.String())
	}
	w := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": username, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}
	return resp.Token
}

func validCatchFields() map[string]string {
	return map[string]string{
		"species":     "Bass",
		"size":        "12in",
		"weight":      "3lb",
		"catchMethod": "rod",
		"location":    "Lake X",
		"date":        "2024-01-01",
	}
}

func TestEndToEndScenario(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	// create folder "Lake Trips"
	w := ts.doJSON(t, http.MethodPost, "/folder", token, gin.H{"name": "Lake Trips"})
	if w.Code != http.StatusOK {
		t.Fatalf("create folder: status %d body %s", w.Code, w.Body.String())
	}
	var folderResp struct {
		Folder FolderResponse `json:"folder"`
	}
	decodeBody(t, w, &folderResp)
	folderID := folderResp.Folder.ID
	if folderID == 0 {
		t.Fatal("folder id missing")
	}

	// submit a catch filed into the folder, with a photo
	fields := validCatchFields()
	fields["folderId"] = idStr(folderID)
	w = ts.postCatch(t, token, fields, []byte("jpeg-bytes"))
	if w.Code != http.StatusOK {
		t.Fatalf("create catch: status %d body %s", w.Code, w.Body.String())
	}

	// list returns exactly one record filed into the folder
	w = ts.doJSON(t, http.MethodGet, "/fish", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list catches: status %d body %s", w.Code, w.Body.String())
	}
	var catches []CatchResponse
	decodeBody(t, w, &catches)
	if len(catches) != 1 {
		t.Fatalf("len = %d, want 1", len(catches))
	}
	if catches[0].FolderID == nil || *catches[0].FolderID != folderID {
		t.Fatalf("folder id = %v, want %d", catches[0].FolderID, folderID)
	}
	if catches[0].Species != "Bass" || catches[0].Weight != "3lb" {
		t.Fatalf("unexpected catch: %+v", catches[0])
	}
	if catches[0].PhotoPath == "" {
		t.Fatal("photo path missing")
	}
	photoFile := filepath.Join(ts.uploadDir, filepath.Base(catches[0].PhotoPath))
	if _, err := os.Stat(photoFile); err != nil {
		t.Fatalf("photo not on disk: %v", err)
	}

	// folder filter matches
	w = ts.doJSON(t, http.MethodGet, "/fish?folderId="+idStr(folderID), token, nil)
	decodeBody(t, w, &catches)
	if len(catches) != 1 {
		t.Fatalf("filtered len = %d, want 1", len(catches))
	}

	// delete the folder: the catch survives, unfiled
	w = ts.doJSON(t, http.MethodDelete, "/folder/"+idStr(folderID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete folder: status %d body %s", w.Code, w.Body.String())
	}

	w = ts.doJSON(t, http.MethodGet, "/fish", token, nil)
	decodeBody(t, w, &catches)
	if len(catches) != 1 {
		t.Fatalf("len after folder delete = %d, want 1", len(catches))
	}
	if catches[0].FolderID != nil {
		t.Fatalf("catch still filed into folder %d", *catches[0].FolderID)
	}

	// delete the catch; its photo goes with it
	w = ts.doJSON(t, http.MethodDelete, "/fish/"+idStr(catches[0].ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete catch: status %d body %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(photoFile); !os.IsNotExist(err) {
		t.Fatalf("photo should be removed, stat err = %v", err)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.doJSON(t, http.MethodPost, "/api/signup", "", gin.H{"username": "alice", "password": "password1"}); w.Code != http.StatusOK {
		t.Fatalf("signup: status %d", w.Code)
	}
	w := ts.doJSON(t, http.MethodPost, "/api/signup", "", gin.H{"username": "alice", "password": "password2"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: status %d, want 400", w.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.signupAndLogin(t, "alice", "password1")

	wrongPw := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "nope-nope"})
	unknown := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": "nobody", "password": "password1"})

	if wrongPw.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses %d/%d, want 401/401", wrongPw.Code, unknown.Code)
	}
	if wrongPw.Body.String() != unknown.Body.String() {
		t.Fatalf("failure bodies differ: %s vs %s", wrongPw.Body.String(), unknown.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user"},
		{http.MethodGet, "/fish"},
		{http.MethodGet, "/folders"},
		{http.MethodDelete, "/fish/1"},
		{http.MethodDelete, "/folder/1"},
		{http.MethodGet, "/api/catches"},
	}
	for _, p := range paths {
		if w := ts.doJSON(t, p.method, p.path, "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestUserIDParameterMustMatchSession(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signupAndLogin(t, "alice", "password1")
	ts.signupAndLogin(t, "bob", "password2")

	// alice is user 1, bob user 2; alice may not claim bob's id
	w := ts.doJSON(t, http.MethodGet, "/fish?userId=2", alice, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("mismatched userId: status %d, want 403", w.Code)
	}
	w = ts.doJSON(t, http.MethodGet, "/fish?userId=1", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("matching userId: status %d, want 200", w.Code)
	}
}

func TestCrossUserDeleteForbidden(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signupAndLogin(t, "alice", "password1")
	bob := ts.signupAndLogin(t, "bob", "password2")

	if w := ts.postCatch(t, alice, validCatchFields(), nil); w.Code != http.StatusOK {
		t.Fatalf("create catch: status %d", w.Code)
	}
	var catches []CatchResponse
	decodeBody(t, ts.doJSON(t, http.MethodGet, "/fish", alice, nil), &catches)
	if len(catches) != 1 {
		t.Fatalf("len = %d, want 1", len(catches))
	}

	w := ts.doJSON(t, http.MethodDelete, "/fish/"+idStr(catches[0].ID), bob, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-user delete: status %d, want 403", w.Code)
	}

	// record still exists
	decodeBody(t, ts.doJSON(t, http.MethodGet, "/fish", alice, nil), &catches)
	if len(catches) != 1 {
		t.Fatal("record must survive forbidden delete")
	}

	// bob never sees alice's records
	decodeBody(t, ts.doJSON(t, http.MethodGet, "/fish", bob, nil), &catches)
	if len(catches) != 0 {
		t.Fatalf("bob sees %d foreign records", len(catches))
	}
}

func TestDeleteMissingRecords(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "password1")

	if w := ts.doJSON(t, http.MethodDelete, "/fish/42", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing catch: status %d, want 404", w.Code)
	}
	if w := ts.doJSON(t, http.MethodDelete, "/folder/42", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing folder: status %d, want 404", w.Code)
	}
	if w := ts.doJSON(t, http.MethodDelete, "/fish/abc", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d, want 400", w.Code)
	}
}

func TestCreateCatchMissingFields(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "password1")

	fields := validCatchFields()
	delete(fields, "species")
	w := ts.postCatch(t, token, fields, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing species: status %d, want 400", w.Code)
	}
}

func TestCreateCatchForeignFolder(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signupAndLogin(t, "alice", "password1")
	bob := ts.signupAndLogin(t, "bob", "password2")

	w := ts.doJSON(t, http.MethodPost, "/folder", bob, gin.H{"name": "Bob's"})
	var folderResp struct {
		Folder FolderResponse `json:"folder"`
	}
	decodeBody(t, w, &folderResp)

	fields := validCatchFields()
	fields["folderId"] = idStr(folderResp.Folder.ID)
	if w := ts.postCatch(t, alice, fields, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("foreign folder: status %d, want 400", w.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "password1")

	if w := ts.doJSON(t, http.MethodGet, "/api/user", token, nil); w.Code != http.StatusOK {
		t.Fatalf("before logout: status %d", w.Code)
	}
	if w := ts.doJSON(t, http.MethodPost, "/api/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
	if w := ts.doJSON(t, http.MethodGet, "/api/user", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: status %d, want 401", w.Code)
	}
	// logout stays 200 for an already-ended session
	if w := ts.doJSON(t, http.MethodPost, "/api/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("second logout: status %d", w.Code)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "password1")

	w := ts.doJSON(t, http.MethodPost, "/api/change-password", token, gin.H{"oldPassword": "wrong", "newPassword": "password2"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong old password: status %d, want 401", w.Code)
	}

	w = ts.doJSON(t, http.MethodPost, "/api/change-password", token, gin.H{"oldPassword": "password1", "newPassword": "password2"})
	if w.Code != http.StatusOK {
		t.Fatalf("change password: status %d body %s", w.Code, w.Body.String())
	}

	if w := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "password1"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("old password login: status %d, want 401", w.Code)
	}
	if w := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "password2"}); w.Code != http.StatusOK {
		t.Fatalf("new password login: status %d", w.Code)
	}
}

func TestLegacyCatchEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "password1")

	w := ts.doJSON(t, http.MethodPost, "/api/log-catch", token, gin.H{
		"species":     "Trout",
		"size":        "10in",
		"weight":      "2lb",
		"catchMethod": "fly",
		"location":    "River Y",
		"date":        "2024-02-02",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("log-catch: status %d body %s", w.Code, w.Body.String())
	}

	w = ts.doJSON(t, http.MethodGet, "/api/catches", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("catches: status %d", w.Code)
	}
	var resp struct {
		Catches []CatchResponse `json:"catches"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Catches) != 1 || resp.Catches[0].Species != "Trout" {
		t.Fatalf("unexpected catches: %+v", resp.Catches)
	}
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
