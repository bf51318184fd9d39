package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/config"
	"github.com/lkpmandiri/backoffice/internal/definition"
	"github.com/lkpmandiri/backoffice/internal/lookup"
	"github.com/lkpmandiri/backoffice/internal/observability"
	"github.com/lkpmandiri/backoffice/internal/session"
	"github.com/lkpmandiri/backoffice/internal/upload"
	"github.com/lkpmandiri/backoffice/model"
)

func testDefinitions() []model.ResourceDefinition {
	return []model.ResourceDefinition{
		{
			ID:        "courses",
			Path:      "courses",
			Label:     "Courses",
			Singular:  "course",
			NameField: "title",
			Public:    true,
			PerPage:   10,
			Order:     1,
			Fields: []model.FieldDefinition{
				{Field: "title", Label: "Title", Kind: model.FieldText, Required: true},
				{Field: "price", Label: "Price", Kind: model.FieldNumber, Required: true},
				{Field: "max_students", Label: "Max students", Kind: model.FieldNumber},
				{Field: "category_id", Label: "Category", Kind: model.FieldSelect, LookupID: "categories"},
			},
			Filters: []model.FilterDefinition{
				{Field: "status", Label: "Status", Kind: "select"},
				{Field: "level", Label: "Level", Kind: "select", ClientSide: true},
			},
			Lookups: []model.LookupDefinition{
				{ID: "categories", Resource: "categories", LabelField: "name", ValueField: "id"},
			},
		},
		{
			ID:        "categories",
			Path:      "categories",
			Label:     "Categories",
			Singular:  "category",
			NameField: "name",
			Order:     2,
			Fields: []model.FieldDefinition{
				{Field: "name", Label: "Name", Kind: model.FieldText, Required: true},
			},
		},
		{
			ID:        "testimonials",
			Path:      "testimonials",
			Label:     "Testimonials",
			Singular:  "testimonial",
			NameField: "name",
			Order:     3,
			Fields: []model.FieldDefinition{
				{Field: "name", Label: "Name", Kind: model.FieldText, Required: true},
				{Field: "photo_url", Label: "Photo", Kind: model.FieldImage, Folder: "testimonials"},
			},
			Upload: &model.UploadDefinition{Folder: "testimonials", MaxMB: 2},
		},
	}
}

type harness struct {
	router  http.Handler
	backend *backendCalls
}

// backendCalls records what reached the mock training-center API.
type backendCalls struct {
	requests []string
}

func (b *backendCalls) record(r *http.Request) {
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
}

func (b *backendCalls) count(prefix string) int {
	n := 0
	for _, req := range b.requests {
		if strings.HasPrefix(req, prefix) {
			n++
		}
	}
	return n
}

func newHarness(t *testing.T, backendHandler http.HandlerFunc) *harness {
	t.Helper()

	calls := &backendCalls{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.record(r)
		backendHandler(w, r)
	}))
	t.Cleanup(backend.Close)

	cfg := config.Defaults()
	cfg.Backend.BaseURL = backend.URL
	cfg.Session.Secret = "test-secret"
	cfg.Observability.Metrics.Enabled = false

	client := api.NewClient(backend.URL, time.Second)
	sessions := session.NewManager(session.NewMemoryStore(), cfg.Session.Secret, time.Hour)
	client.SetUnauthorizedHook(sessions.UnauthorizedHook())

	registry := definition.NewRegistry(testDefinitions())
	router := NewRouter(Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Registry: registry,
		Client:   client,
		Sessions: sessions,
		Lookups:  lookup.NewProvider(registry, client, time.Minute),
		Uploads:  upload.NewUploader(client, upload.LimitsFromDefinitions(testDefinitions())),
		Ready: observability.ReadinessChecks{
			DefinitionsLoaded: func() bool { return true },
			OpenAPILoaded:     func() bool { return true },
		},
	})

	return &harness{router: router, backend: calls}
}

// defaultBackend answers like the training-center API for the happy paths.
func defaultBackend(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/login":
		w.Write([]byte(`{"token":"backend-tok","user":{"id":1,"name":"Admin","email":"admin@lkpmandiri.id"}}`))
	case r.URL.Path == "/auth/me":
		w.Write([]byte(`{"user":{"id":1,"name":"Admin","email":"admin@lkpmandiri.id"}}`))
	case r.URL.Path == "/auth/logout":
		w.Write([]byte(`{}`))
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && strings.Count(r.URL.Path, "/") >= 3:
		w.Write([]byte(`{"data":{"id":7,"title":"Mekanik Alat Berat","price":5000000}}`))
	case r.Method == http.MethodPost || r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var rec map[string]any
		json.Unmarshal(body, &rec)
		rec["id"] = 12
		json.NewEncoder(w).Encode(rec)
	default:
		w.Write([]byte(`{"data":[{"id":7,"title":"Mekanik Alat Berat"}],"current_page":1,"last_page":1,"per_page":10,"total":1}`))
	}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/ui/auth/login", "",
		map[string]string{"email": "admin@lkpmandiri.id", "password": "rahasia"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatalf("login returned no token")
	}
	return resp.Token
}

func TestRouter_healthWithoutAuth(t *testing.T) {
	h := newHarness(t, defaultBackend)

	rec := h.do(t, http.MethodGet, "/ui/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_adminRequiresSession(t *testing.T) {
	h := newHarness(t, defaultBackend)

	rec := h.do(t, http.MethodGet, "/ui/admin/resources", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/ui/admin/resources", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d for garbage token", rec.Code)
	}
}

func TestLoginAndSession(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)

	rec := h.do(t, http.MethodGet, "/ui/admin/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User model.User `json:"user"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.User.Email != "admin@lkpmandiri.id" {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)

	rec := h.do(t, http.MethodPost, "/ui/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/ui/admin/resources", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", rec.Code)
	}
}

func TestBackend401ClearsSession(t *testing.T) {
	loggedIn := false
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			loggedIn = true
			defaultBackend(w, r)
			return
		}
		if loggedIn {
			// The backend revoked the token out of band.
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		defaultBackend(w, r)
	})
	token := h.login(t)

	rec := h.do(t, http.MethodGet, "/ui/admin/resources/courses", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// The 401 hook cleared the session, so the same token now fails at the
	// session layer without reaching the backend again.
	before := len(h.backend.requests)
	rec = h.do(t, http.MethodGet, "/ui/admin/resources/courses", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(h.backend.requests) != before {
		t.Errorf("cleared session must be rejected before proxying")
	}
}

func TestListPassthroughWhitelistsFilters(t *testing.T) {
	var gotQuery string
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/courses") {
			gotQuery = r.URL.RawQuery
		}
		defaultBackend(w, r)
	})
	token := h.login(t)

	rec := h.do(t, http.MethodGet,
		"/ui/admin/resources/courses?search=mekanik&page=1&status=published&level=pemula&admin=1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// status is a declared server filter; level is client_side and admin is
	// undeclared, so neither reaches the backend.
	if gotQuery != "page=1&per_page=10&search=mekanik&status=published" {
		t.Errorf("backend query = %q", gotQuery)
	}
}

func TestCreateNormalizesPayload(t *testing.T) {
	var gotBody map[string]any
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/admin/courses" {
			dec := json.NewDecoder(r.Body)
			dec.UseNumber()
			dec.Decode(&gotBody)
			w.Write([]byte(`{"id":12,"title":"Baru"}`))
			return
		}
		defaultBackend(w, r)
	})
	token := h.login(t)

	rec := h.do(t, http.MethodPost, "/ui/admin/resources/courses", token, map[string]any{
		"title":        "Baru",
		"price":        "5000000",
		"max_students": "",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if gotBody["price"] != json.Number("5000000") {
		t.Errorf("price = %#v, want numeric", gotBody["price"])
	}
	if v, present := gotBody["max_students"]; !present || v != nil {
		t.Errorf("max_students = %#v, want explicit null", v)
	}
}

func TestCreateRejectsMissingRequiredFields(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)
	before := h.backend.count("POST /admin/courses")

	rec := h.do(t, http.MethodPost, "/ui/admin/resources/courses", token, map[string]any{
		"title": "Tanpa Harga",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if h.backend.count("POST /admin/courses") != before {
		t.Errorf("invalid document must not be proxied")
	}

	var resp struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Error.Fields["price"]) == 0 {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)

	rec := h.do(t, http.MethodDelete, "/ui/admin/resources/courses/7", token,
		map[string]string{"confirm": "wrong name"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if h.backend.count("DELETE ") != 0 {
		t.Fatalf("mismatched confirmation must not delete")
	}

	rec = h.do(t, http.MethodDelete, "/ui/admin/resources/courses/7", token,
		map[string]string{"confirm": "Mekanik Alat Berat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if h.backend.count("DELETE /admin/courses/7") != 1 {
		t.Errorf("backend calls = %v", h.backend.requests)
	}
}

func TestPublicMirrorWithoutAuth(t *testing.T) {
	var gotAuth string
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		defaultBackend(w, r)
	})

	rec := h.do(t, http.MethodGet, "/ui/public/courses", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotAuth != "" {
		t.Errorf("public mirror must not carry auth, got %q", gotAuth)
	}

	// categories is not public.
	rec = h.do(t, http.MethodGet, "/ui/public/categories", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for private resource", rec.Code)
	}
}

func TestResourceDescriptors(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)

	rec := h.do(t, http.MethodGet, "/ui/admin/resources", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	var index struct {
		Resources []model.ResourceSummary `json:"resources"`
	}
	json.Unmarshal(rec.Body.Bytes(), &index)
	if len(index.Resources) != 3 || index.Resources[0].ID != "courses" {
		t.Errorf("index = %+v", index.Resources)
	}

	rec = h.do(t, http.MethodGet, "/ui/admin/resources/courses/list-descriptor", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list-descriptor status = %d", rec.Code)
	}
	var list model.ListDescriptor
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.DataEndpoint != "/ui/admin/resources/courses" || list.NameField != "title" {
		t.Errorf("list descriptor = %+v", list)
	}
	if list.EmptyMessage != "No courses yet" {
		t.Errorf("empty message = %q", list.EmptyMessage)
	}

	rec = h.do(t, http.MethodGet, "/ui/admin/resources/testimonials/form-descriptor", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("form-descriptor status = %d", rec.Code)
	}
	var formDesc model.FormDescriptor
	json.Unmarshal(rec.Body.Bytes(), &formDesc)
	if formDesc.Upload == nil || formDesc.Upload.MaxMB != 2 || formDesc.Upload.Folder != "testimonials" {
		t.Errorf("form descriptor upload = %+v", formDesc.Upload)
	}

	rec = h.do(t, http.MethodGet, "/ui/admin/resources/unknown/list-descriptor", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown resource", rec.Code)
	}
}

func TestLookupEndpoint(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/categories") {
			w.Write([]byte(`{"data":[{"id":1,"name":"Otomotif"},{"id":2,"name":"Tata Boga"}],"current_page":1,"last_page":1,"per_page":200,"total":2}`))
			return
		}
		defaultBackend(w, r)
	})
	token := h.login(t)

	rec := h.do(t, http.MethodGet, "/ui/lookups/categories?q=oto", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp lookupResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Options) != 1 || resp.Options[0].Value != "1" {
		t.Errorf("options = %+v", resp.Options)
	}
}

func TestUploadEndpoint(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/upload" {
			w.Write([]byte(`{"url":"https://cdn.lkpmandiri.id/testimonials/a.jpg"}`))
			return
		}
		defaultBackend(w, r)
	})
	token := h.login(t)

	rec := h.doUpload(t, token, "testimonials", "a.jpg", "image/jpeg", make([]byte, 1024))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp model.UploadResult
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.URL == "" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUploadEndpointRejectsOversize(t *testing.T) {
	h := newHarness(t, defaultBackend)
	token := h.login(t)
	before := h.backend.count("POST /admin/upload")

	rec := h.doUpload(t, token, "testimonials", "big.jpg", "image/jpeg", make([]byte, 3<<20))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "2MB") {
		t.Errorf("message must name the ceiling: %s", rec.Body.String())
	}
	if h.backend.count("POST /admin/upload") != before {
		t.Errorf("rejected upload must not be relayed")
	}
}

func (h *harness) doUpload(t *testing.T, token, folder, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {contentType},
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(content)
	writer.WriteField("folder", folder)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/ui/admin/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}
