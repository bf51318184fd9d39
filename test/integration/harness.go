// Package integration provides end-to-end tests of the back-office server:
// a fully wired router over the shipped resource definitions and backend
// contract, talking to a stateful mock of the training-center API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/config"
	"github.com/lkpmandiri/backoffice/internal/definition"
	"github.com/lkpmandiri/backoffice/internal/lookup"
	"github.com/lkpmandiri/backoffice/internal/observability"
	"github.com/lkpmandiri/backoffice/internal/openapi"
	"github.com/lkpmandiri/backoffice/internal/session"
	"github.com/lkpmandiri/backoffice/internal/transport"
	"github.com/lkpmandiri/backoffice/internal/upload"
)

const testSessionSecret = "integration-test-secret"

// Harness is a fully wired back-office instance over a mock training API.
type Harness struct {
	t       *testing.T
	server  *httptest.Server
	Backend *trainingBackend

	Registry *definition.Registry
	Sessions *session.Manager
	Store    *session.MemoryStore
	Lookups  *lookup.Provider
}

// NewHarness builds and starts the full server. It loads the repository's
// real definitions and OpenAPI contract, so these tests also guard the
// shipped data files.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	backend := newTrainingBackend(t)
	seedDefaultData(backend)

	idx := openapi.NewIndex()
	if err := idx.Load(repoPath("specs/training-api.yaml")); err != nil {
		t.Fatalf("load OpenAPI contract: %v", err)
	}

	defs, err := definition.NewLoader().LoadAll(repoPath("definitions"))
	if err != nil {
		t.Fatalf("load definitions: %v", err)
	}
	if verrs := definition.NewValidator().Validate(defs, idx); len(verrs) > 0 {
		for _, ve := range verrs {
			t.Errorf("definition validation: %s", ve.Error())
		}
		t.FailNow()
	}
	registry := definition.NewRegistry(defs)

	cfg := config.Defaults()
	cfg.Backend.BaseURL = backend.URL()
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Session.Secret = testSessionSecret
	cfg.Observability.Metrics.Enabled = false

	client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	store := session.NewMemoryStore()
	sessions := session.NewManager(store, cfg.Session.Secret, cfg.Session.TTL)
	client.SetUnauthorizedHook(sessions.UnauthorizedHook())

	lookups := lookup.NewProvider(registry, client, cfg.Lookup.TTL)
	uploads := upload.NewUploader(client, upload.LimitsFromDefinitions(defs))

	router := transport.NewRouter(transport.Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Registry: registry,
		Client:   client,
		Sessions: sessions,
		Lookups:  lookups,
		Uploads:  uploads,
		Ready: observability.ReadinessChecks{
			DefinitionsLoaded: func() bool { return len(registry.AllResources()) > 0 },
			OpenAPILoaded:     func() bool { return idx.Len() > 0 },
		},
	})

	h := &Harness{
		t:        t,
		server:   httptest.NewServer(router),
		Backend:  backend,
		Registry: registry,
		Sessions: sessions,
		Store:    store,
		Lookups:  lookups,
	}
	t.Cleanup(h.server.Close)

	return h
}

// seedDefaultData loads a small realistic data set into the mock backend.
func seedDefaultData(b *trainingBackend) {
	b.Seed("categories", []map[string]any{
		{"id": json.Number("1"), "name": "Mekanik Alat Berat", "slug": "mekanik-alat-berat", "courses_count": json.Number("2")},
		{"id": json.Number("2"), "name": "Las Industri", "slug": "las-industri", "courses_count": json.Number("1")},
		{"id": json.Number("3"), "name": "Komputer Perkantoran", "slug": "komputer-perkantoran", "courses_count": json.Number("0")},
	})
	b.Seed("courses", []map[string]any{
		{
			"id": json.Number("10"), "title": "Mekanik Alat Berat Dasar", "slug": "mekanik-alat-berat-dasar",
			"category_id": json.Number("1"), "description": "Pelatihan dasar alat berat",
			"price": json.Number("5000000"), "duration_days": json.Number("30"), "max_students": nil,
			"instructor_ids": []any{json.Number("1")}, "materials": []any{"Pengenalan unit", "Perawatan harian"},
			"requirements": []any{}, "image_url": nil, "status": "published", "featured": true,
		},
		{
			"id": json.Number("11"), "title": "Mekanik Hidrolik Lanjutan", "slug": "mekanik-hidrolik-lanjutan",
			"category_id": json.Number("1"), "description": "Sistem hidrolik excavator",
			"price": json.Number("7500000"), "duration_days": json.Number("45"), "max_students": json.Number("12"),
			"instructor_ids": []any{json.Number("1")}, "materials": []any{"Pompa hidrolik"},
			"requirements": []any{"Lulus kelas dasar"}, "image_url": nil, "status": "draft", "featured": false,
		},
		{
			"id": json.Number("12"), "title": "Las SMAW Sertifikasi", "slug": "las-smaw-sertifikasi",
			"category_id": json.Number("2"), "description": "Persiapan sertifikasi las",
			"price": json.Number("4000000"), "duration_days": json.Number("20"), "max_students": json.Number("16"),
			"instructor_ids": []any{json.Number("2")}, "materials": []any{"Teknik dasar SMAW"},
			"requirements": []any{}, "image_url": nil, "status": "published", "featured": false,
		},
	})
	b.Seed("instructors", []map[string]any{
		{"id": json.Number("1"), "name": "Budi Santoso", "title": "Instruktur Alat Berat", "active": true},
		{"id": json.Number("2"), "name": "Siti Rahayu", "title": "Instruktur Las", "active": true},
	})
	b.Seed("testimonials", []map[string]any{
		{"id": json.Number("1"), "name": "Andi Wijaya", "role": "Alumni 2024", "content": "Materinya lengkap", "published": true},
	})
}

// BaseURL returns the server's base URL.
func (h *Harness) BaseURL() string {
	return h.server.URL
}

// Login signs in with the default admin credentials and returns the session
// token the frontend would hold.
func (h *Harness) Login() string {
	h.t.Helper()

	resp := h.Do("POST", "/ui/auth/login", "", map[string]string{
		"email":    AdminEmail,
		"password": AdminPassword,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		h.t.Fatalf("login status = %d\nbody: %s", resp.StatusCode, body)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		h.t.Fatalf("decode login response: %v", err)
	}
	if result.Token == "" {
		h.t.Fatal("login response carried no token")
	}
	return result.Token
}

// Do performs one request against the server. A non-empty token is sent as a
// bearer credential; a non-nil body is marshaled to JSON.
func (h *Harness) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, h.server.URL+path, reader)
	if err != nil {
		h.t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// Upload posts a multipart file to the upload endpoint.
func (h *Harness) Upload(token, folder, filename, contentType string, payload []byte) *http.Response {
	h.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	if err != nil {
		h.t.Fatalf("create multipart part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		h.t.Fatalf("write multipart part: %v", err)
	}
	if err := writer.WriteField("folder", folder); err != nil {
		h.t.Fatalf("write folder field: %v", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(context.Background(), "POST", h.server.URL+"/ui/admin/upload", &buf)
	if err != nil {
		h.t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("upload failed: %v", err)
	}
	return resp
}

// DecodeJSON reads and unmarshals the response body, then closes it.
func (h *Harness) DecodeJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, data)
	}
}

// errorBody is the envelope shape every error response carries.
type errorBody struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

// DecodeError decodes an error envelope response.
func (h *Harness) DecodeError(resp *http.Response) errorBody {
	h.t.Helper()
	var body errorBody
	h.DecodeJSON(resp, &body)
	return body
}

// repoPath resolves a path relative to the repository root.
func repoPath(rel string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", rel)
}
