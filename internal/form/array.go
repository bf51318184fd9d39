package form

import "strings"

// Array operations back the dynamic entry lists on the form: materials,
// requirements, instructor qualifications. Each operation works on the draft
// in place; blank entries survive editing and are only dropped at submit.

// Entries returns the current entries of an array field.
func (d *Draft) Entries(field string) []string {
	entries := d.arrays[field]
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}

// AppendEntry adds a blank entry row to an array field.
func (d *Draft) AppendEntry(field string) {
	d.arrays[field] = append(d.arrays[field], "")
}

// SetEntry replaces the entry at index i. Out-of-range indexes are ignored.
func (d *Draft) SetEntry(field string, i int, value string) {
	entries := d.arrays[field]
	if i < 0 || i >= len(entries) {
		return
	}
	entries[i] = value
}

// RemoveEntry deletes the entry at index i. The last row of a string-array
// field is cleared rather than removed, so the form never loses its input.
func (d *Draft) RemoveEntry(field string, i int) {
	entries := d.arrays[field]
	if i < 0 || i >= len(entries) {
		return
	}
	if len(entries) == 1 {
		entries[0] = ""
		return
	}
	d.arrays[field] = append(entries[:i:i], entries[i+1:]...)
}

// compact returns the entries with blank strings removed. Whitespace-only
// entries count as blank. An all-blank array compacts to an empty, non-nil
// slice so it serializes as [] rather than null.
func compact(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}
