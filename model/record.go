package model

import "encoding/json"

// Record is a single entity document as owned by the training-center API.
// Records are opaque to this service: the set of fields is described by the
// resource definition, never by a compiled-in struct.
type Record = map[string]any

// ListResult is one page of records together with the pagination metadata
// that always accompanies a list fetch. LastPage <= 1 means the pager UI is
// suppressed by the frontend.
type ListResult struct {
	Data        []Record `json:"data"`
	CurrentPage int      `json:"current_page"`
	LastPage    int      `json:"last_page"`
	PerPage     int      `json:"per_page"`
	Total       int      `json:"total"`
}

// RecordID extracts the server-assigned identity of a record as a string.
// IDs arrive as JSON numbers or strings depending on the backend serializer.
func RecordID(rec Record) string {
	switch v := rec["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		n, _ := json.Marshal(v)
		return string(n)
	default:
		return ""
	}
}

// RecordString returns a record field as a string, or "" when absent or of
// another type.
func RecordString(rec Record, field string) string {
	s, _ := rec[field].(string)
	return s
}

// User is the authenticated admin user document returned by the API.
type User struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// Session is the server-side admin session: the backend bearer token plus the
// user document returned at login. No expiry is tracked beyond the store TTL;
// token validity is discovered lazily when an authenticated call fails with
// unauthorized.
type Session struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	User      User   `json:"user"`
	CreatedAt int64  `json:"created_at"`
}

// LoginResult is returned to the frontend after a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UploadResult is the sole contract between the upload path and the form: the
// public URL of the stored image.
type UploadResult struct {
	URL string `json:"url"`
}
