package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record map[string]any

func TestCreateCourseNormalizesPayload(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	// The form submits raw strings; the server must coerce numbers, null
	// blank optionals, and drop blank array entries before proxying.
	resp := h.Do("POST", "/ui/admin/resources/courses", token, record{
		"title":         "Operator Forklift",
		"category_id":   "1",
		"description":   "Sertifikasi operator forklift",
		"price":         "5000000",
		"duration_days": "10",
		"max_students":  "",
		"materials":     []string{"Keselamatan kerja", "", "Praktik lapangan", ""},
		"requirements":  []string{"", ""},
		"status":        "draft",
		"featured":      false,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created record
	h.DecodeJSON(resp, &created)

	assert.Equal(t, json.Number("5000000"), created["price"])
	assert.Equal(t, json.Number("10"), created["duration_days"])
	assert.Nil(t, created["max_students"])
	assert.Equal(t, []any{"Keselamatan kerja", "Praktik lapangan"}, created["materials"])
	assert.Equal(t, []any{}, created["requirements"], "an all-blank array must arrive as [], not null")
}

func TestCreateCourseRejectsMissingRequired(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("POST", "/ui/admin/resources/courses", token, record{
		"title":       "Kursus Tanpa Harga",
		"category_id": "1",
		"description": "Tidak lengkap",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := h.DecodeError(resp)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Fields, "price")

	assert.Equal(t, 0, h.Backend.CallCount("POST /admin/courses"),
		"a locally invalid payload must never be proxied")
}

func TestCreateCourseRejectsNonNumericPrice(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("POST", "/ui/admin/resources/courses", token, record{
		"title":       "Kursus Harga Aneh",
		"category_id": "1",
		"description": "Harga bukan angka",
		"price":       "lima juta",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := h.DecodeError(resp)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Fields, "price")
}

func TestListForwardsSearchAndDeclaredFilters(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("GET", "/ui/admin/resources/courses?search=mekanik&status=published&nonsense=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data  []record `json:"data"`
		Total int      `json:"total"`
	}
	h.DecodeJSON(resp, &result)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Mekanik Alat Berat Dasar", result.Data[0]["title"])

	call := h.Backend.LastCall("GET /admin/courses")
	assert.Contains(t, call, "search=mekanik")
	assert.Contains(t, call, "status=published")
	assert.NotContains(t, call, "nonsense", "undeclared filters must not be proxied")
}

func TestEditRoundTripKeepsEveryField(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("GET", "/ui/admin/resources/courses/11", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var course record
	h.DecodeJSON(resp, &course)
	require.Equal(t, "Mekanik Hidrolik Lanjutan", course["title"])

	// Full-document PUT: the whole record goes back, with one field changed.
	course["title"] = "Mekanik Hidrolik Profesional"
	delete(course, "id")
	resp = h.Do("PUT", "/ui/admin/resources/courses/11", token, course)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.Do("GET", "/ui/admin/resources/courses/11", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated record
	h.DecodeJSON(resp, &updated)

	assert.Equal(t, "Mekanik Hidrolik Profesional", updated["title"])
	assert.Equal(t, json.Number("7500000"), updated["price"], "untouched numbers must survive the round trip exactly")
	assert.Equal(t, json.Number("12"), updated["max_students"])
	assert.Equal(t, []any{"Pompa hidrolik"}, updated["materials"])
	assert.Equal(t, []any{"Lulus kelas dasar"}, updated["requirements"])
}

func TestDeleteRequiresExactConfirmation(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	// Case differs, so the confirmation must be rejected.
	resp := h.Do("DELETE", "/ui/admin/resources/courses/12", token, record{"confirm": "las smaw sertifikasi"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := h.DecodeError(resp)
	assert.Contains(t, body.Error.Message, `"Las SMAW Sertifikasi"`)
	assert.Equal(t, 0, h.Backend.CallCount("DELETE /admin/courses"))

	resp = h.Do("DELETE", "/ui/admin/resources/courses/12", token, record{"confirm": "Las SMAW Sertifikasi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted map[string]string
	h.DecodeJSON(resp, &deleted)
	assert.Equal(t, "deleted", deleted["status"])

	resp = h.Do("GET", "/ui/admin/resources/courses/12", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteCategoryWithCoursesSurfacesConflict(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("DELETE", "/ui/admin/resources/categories/1", token, record{"confirm": "Mekanik Alat Berat"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := h.DecodeError(resp)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, "Category has active courses", body.Error.Message)

	// The category must still be listed afterwards.
	resp = h.Do("GET", "/ui/admin/resources/categories", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Data []record `json:"data"`
	}
	h.DecodeJSON(resp, &result)

	names := make([]string, 0, len(result.Data))
	for _, rec := range result.Data {
		names = append(names, rec["name"].(string))
	}
	assert.Contains(t, names, "Mekanik Alat Berat")
}

func TestBackendValidationErrorsRelayedWithFields(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	h.Backend.QueueResponse("POST /admin/courses", http.StatusUnprocessableEntity, map[string]any{
		"message": "The given data was invalid.",
		"errors":  map[string][]string{"title": {"The title has already been taken."}},
	})

	resp := h.Do("POST", "/ui/admin/resources/courses", token, record{
		"title":       "Las SMAW Sertifikasi",
		"category_id": "2",
		"description": "Duplikat",
		"price":       "4000000",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := h.DecodeError(resp)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, []string{"The title has already been taken."}, body.Error.Fields["title"])
}

func TestPublicMirrors(t *testing.T) {
	h := NewHarness(t)

	resp := h.Do("GET", "/ui/public/courses", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Data []record `json:"data"`
	}
	h.DecodeJSON(resp, &result)
	assert.Len(t, result.Data, 3)

	// Enrollments carry student PII and have no public mirror.
	resp = h.Do("GET", "/ui/public/enrollments", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, h.Backend.CallCount("GET /enrollments"))
}

func TestResourceIndexAndDescriptors(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("GET", "/ui/admin/resources", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var index struct {
		Resources []struct {
			ID    string `json:"id"`
			Route string `json:"route"`
		} `json:"resources"`
	}
	h.DecodeJSON(resp, &index)
	require.Len(t, index.Resources, 7)
	assert.Equal(t, "courses", index.Resources[0].ID, "courses lead the navigation order")
	assert.Equal(t, "/admin/courses", index.Resources[0].Route)

	resp = h.Do("GET", "/ui/admin/resources/testimonials/form-descriptor", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var form struct {
		SubmitEndpoint string `json:"submit_endpoint"`
		Upload         *struct {
			Folder string `json:"folder"`
			MaxMB  int64  `json:"max_mb"`
		} `json:"upload"`
	}
	h.DecodeJSON(resp, &form)
	assert.Equal(t, "/ui/admin/resources/testimonials", form.SubmitEndpoint)
	require.NotNil(t, form.Upload)
	assert.Equal(t, "testimonials", form.Upload.Folder)
	assert.EqualValues(t, 2, form.Upload.MaxMB)

	resp = h.Do("GET", "/ui/admin/resources/unknown/list-descriptor", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownResourceIsNotFound(t *testing.T) {
	h := NewHarness(t)
	token := h.Login()

	resp := h.Do("GET", "/ui/admin/resources/payments", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := h.DecodeError(resp)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.True(t, strings.Contains(body.Error.Message, "payments"))
}
