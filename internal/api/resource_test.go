package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lkpmandiri/backoffice/model"
)

func courseDef() model.ResourceDefinition {
	return model.ResourceDefinition{
		ID:        "courses",
		Path:      "courses",
		Label:     "Courses",
		Singular:  "course",
		NameField: "title",
		Public:    true,
	}
}

func TestFilters_omitsUnset(t *testing.T) {
	q := Filters{Search: "", Page: 0, Extra: map[string]string{"status": "", "category_id": "2"}}.Query()

	if q.Has("search") || q.Has("page") || q.Has("status") {
		t.Errorf("unset filters must be omitted, got %v", q)
	}
	if q.Get("category_id") != "2" {
		t.Errorf("category_id = %q", q.Get("category_id"))
	}
}

func TestResource_listBuildsQuery(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":[{"id":1,"title":"Mekanik Dasar"}],"current_page":1,"last_page":2,"per_page":10,"total":15}`))
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	result, err := res.List(authedCtx("t"), Filters{Search: "mekanik", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if gotPath != "/admin/courses" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "page=1&per_page=10&search=mekanik" {
		t.Errorf("query = %q", gotQuery)
	}
	if result.Total != 15 || len(result.Data) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestResource_publicListUsesMirrorPathWithoutAuth(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[],"current_page":1,"last_page":1,"per_page":10,"total":0}`))
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	// Public fetches run without a request context, so no token is attached.
	if _, err := res.PublicList(t.Context(), Filters{}); err != nil {
		t.Fatalf("PublicList: %v", err)
	}
	if gotPath != "/courses" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "" {
		t.Errorf("public mirror must not carry auth, got %q", gotAuth)
	}
}

func TestResource_publicListRejectedForPrivateResource(t *testing.T) {
	def := courseDef()
	def.Public = false
	res := NewResource(NewClient("http://unused", time.Second), def)

	_, err := res.PublicList(t.Context(), Filters{})
	if !model.IsCode(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestResource_getUnwrapsDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/courses/7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"id":7,"title":"Las Listrik","price":5000000}}`))
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	rec, err := res.Get(authedCtx("t"), "7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if model.RecordString(rec, "title") != "Las Listrik" {
		t.Errorf("title = %q", model.RecordString(rec, "title"))
	}
	// UseNumber keeps ids precise.
	if model.RecordID(rec) != "7" {
		t.Errorf("id = %q", model.RecordID(rec))
	}
	if _, ok := rec["price"].(json.Number); !ok {
		t.Errorf("price should decode as json.Number, got %T", rec["price"])
	}
}

func TestResource_getNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	_, err := res.Get(authedCtx("t"), "999")
	if !model.IsCode(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestResource_createAndUpdateUseFullDocument(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":12,"title":"Baru"}`))
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	payload := map[string]any{"title": "Baru", "price": 5000000, "max_students": nil}

	rec, err := res.Create(authedCtx("t"), payload)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/admin/courses" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
	if v, present := gotBody["max_students"]; !present || v != nil {
		t.Errorf("null optional field must be sent as JSON null, body = %v", gotBody)
	}
	if model.RecordID(rec) != "12" {
		t.Errorf("created id = %q", model.RecordID(rec))
	}

	if _, err := res.Update(authedCtx("t"), "12", payload); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/admin/courses/12" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}

func TestResource_delete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := NewResource(NewClient(srv.URL, time.Second), courseDef())
	if err := res.Delete(authedCtx("t"), "3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/admin/courses/3" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}
