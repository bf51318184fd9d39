package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Credentials the mock training-center API accepts.
const (
	AdminEmail    = "admin@lkpmandiri.id"
	AdminPassword = "rahasia123"
)

// trainingBackend simulates the training-center REST API: token auth, CRUD
// per resource, public read-only mirrors, and multipart upload. Records are
// held in memory so round-trip tests work against real state, and every
// request is recorded for call-count assertions.
type trainingBackend struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	tokens    map[string]bool
	nextToken int
	nextID    int
	stores    map[string][]map[string]any
	calls     []string
	queued    map[string][]queuedResponse
}

type queuedResponse struct {
	status int
	body   any
}

func newTrainingBackend(t *testing.T) *trainingBackend {
	t.Helper()

	b := &trainingBackend{
		t:      t,
		tokens: make(map[string]bool),
		nextID: 100,
		stores: make(map[string][]map[string]any),
		queued: make(map[string][]queuedResponse),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /auth/me", b.handleMe)
	mux.HandleFunc("POST /admin/upload", b.handleUpload)
	mux.HandleFunc("GET /admin/{resource}", b.handleList)
	mux.HandleFunc("POST /admin/{resource}", b.handleCreate)
	mux.HandleFunc("GET /admin/{resource}/{id}", b.handleGet)
	mux.HandleFunc("PUT /admin/{resource}/{id}", b.handleUpdate)
	mux.HandleFunc("DELETE /admin/{resource}/{id}", b.handleDelete)
	mux.HandleFunc("GET /{resource}", b.handlePublicList)

	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if resp, ok := b.popQueued(r); ok {
			writeJSON(w, resp.status, resp.body)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)

	return b
}

// URL returns the mock server's base URL.
func (b *trainingBackend) URL() string {
	return b.server.URL
}

// Seed replaces the record set of one resource path.
func (b *trainingBackend) Seed(resource string, records []map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stores[resource] = records
}

// QueueResponse makes the next request matching "METHOD /path" answer with
// the given status and body instead of the real handler.
func (b *trainingBackend) QueueResponse(methodPath string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queued[methodPath] = append(b.queued[methodPath], queuedResponse{status: status, body: body})
}

// RevokeAllTokens simulates out-of-band token revocation: every token issued
// so far stops working, as if an operator reset backend credentials.
func (b *trainingBackend) RevokeAllTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok := range b.tokens {
		b.tokens[tok] = false
	}
}

// CallCount returns how many recorded requests start with the given prefix,
// e.g. "GET /admin/courses".
func (b *trainingBackend) CallCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// LastCall returns the most recent recorded "METHOD path?query" string with
// the given prefix, or "".
func (b *trainingBackend) LastCall(prefix string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if strings.HasPrefix(b.calls[i], prefix) {
			return b.calls[i]
		}
	}
	return ""
}

func (b *trainingBackend) record(r *http.Request) {
	call := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		call += "?" + r.URL.RawQuery
	}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *trainingBackend) popQueued(r *http.Request) (queuedResponse, bool) {
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.queued[key]
	if len(queue) == 0 {
		return queuedResponse{}, false
	}
	b.queued[key] = queue[1:]
	return queue[0], true
}

// --- auth ---

func (b *trainingBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
		return
	}
	if creds.Email != AdminEmail || creds.Password != AdminPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	b.mu.Lock()
	b.nextToken++
	token := fmt.Sprintf("backend-token-%d", b.nextToken)
	b.tokens[token] = true
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  adminUser(),
	})
}

func (b *trainingBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := b.authorized(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}
	b.mu.Lock()
	b.tokens[token] = false
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (b *trainingBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": adminUser()})
}

func (b *trainingBackend) authorized(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return token, b.tokens[token]
}

func adminUser() map[string]any {
	return map[string]any{
		"id":    json.Number("1"),
		"name":  "Admin LKP",
		"email": AdminEmail,
	}
}

// --- CRUD ---

func (b *trainingBackend) handleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}
	b.list(w, r, r.PathValue("resource"))
}

func (b *trainingBackend) handlePublicList(w http.ResponseWriter, r *http.Request) {
	b.list(w, r, r.PathValue("resource"))
}

func (b *trainingBackend) list(w http.ResponseWriter, r *http.Request, resource string) {
	q := r.URL.Query()

	b.mu.Lock()
	records := make([]map[string]any, len(b.stores[resource]))
	copy(records, b.stores[resource])
	b.mu.Unlock()

	search := strings.ToLower(q.Get("search"))
	filtered := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		if !matchesFilters(rec, q) {
			continue
		}
		filtered = append(filtered, rec)
	}

	perPage := 10
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}

	total := len(filtered)
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":         filtered[start:end],
		"current_page": page,
		"last_page":    lastPage,
		"per_page":     perPage,
		"total":        total,
	})
}

func matchesSearch(rec map[string]any, search string) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func matchesFilters(rec map[string]any, q map[string][]string) bool {
	for key, values := range q {
		if key == "search" || key == "page" || key == "per_page" || len(values) == 0 {
			continue
		}
		if fieldText(rec[key]) != values[0] {
			return false
		}
	}
	return true
}

func fieldText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		raw, _ := json.Marshal(x)
		return string(raw)
	default:
		return ""
	}
}

func (b *trainingBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}

	rec, err := decodeDocument(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
		return
	}

	resource := r.PathValue("resource")
	b.mu.Lock()
	b.nextID++
	rec["id"] = json.Number(strconv.Itoa(b.nextID))
	b.stores[resource] = append(b.stores[resource], rec)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
}

func (b *trainingBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}

	rec, _, found := b.find(r.PathValue("resource"), r.PathValue("id"))
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (b *trainingBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}

	resource := r.PathValue("resource")
	id := r.PathValue("id")
	_, idx, found := b.find(resource, id)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record not found"})
		return
	}

	rec, err := decodeDocument(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
		return
	}
	rec["id"] = json.Number(id)

	b.mu.Lock()
	b.stores[resource][idx] = rec
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (b *trainingBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}

	resource := r.PathValue("resource")
	rec, idx, found := b.find(resource, r.PathValue("id"))
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record not found"})
		return
	}

	// Categories with courses cannot be removed, mirroring the real API's
	// referential integrity rule.
	if resource == "categories" {
		if n, ok := rec["courses_count"].(json.Number); ok {
			if count, err := n.Int64(); err == nil && count > 0 {
				writeJSON(w, http.StatusConflict, map[string]string{"message": "Category has active courses"})
				return
			}
		}
	}

	b.mu.Lock()
	b.stores[resource] = append(b.stores[resource][:idx], b.stores[resource][idx+1:]...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (b *trainingBackend) find(resource, id string) (map[string]any, int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.stores[resource] {
		if fieldText(rec["id"]) == id {
			return rec, i, true
		}
	}
	return nil, 0, false
}

// --- upload ---

func (b *trainingBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated"})
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed multipart body"})
		return
	}
	folder := r.FormValue("folder")
	_, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"file": {"The file field is required."}},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{
			"url": fmt.Sprintf("https://cdn.lkpmandiri.id/%s/%s", folder, header.Filename),
		},
	})
}

// --- helpers ---

// decodeDocument parses a JSON body with UseNumber so ids and prices keep
// their exact textual form across store round trips.
func decodeDocument(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}
