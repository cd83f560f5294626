package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/habitloop/habit-api/internal/validation"
)

// respondJSON writes data as the response body. Bodies are written
// verbatim, the error shapes below carry all the envelope structure
// the API exposes.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondValidationError renders a validation failure as a 400 with the
// field-keyed message list shape.
func respondValidationError(w http.ResponseWriter, verr *validation.Error) {
	respondJSON(w, http.StatusBadRequest, map[string][]string{
		verr.Field: {verr.Message},
	})
}

// respondDetail renders a single-message error body.
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

const (
	detailNotFound         = "Not found."
	detailPermissionDenied = "You do not have permission to perform this action."
	detailMalformedBody    = "Malformed request body."
	detailInternalError    = "Internal server error."
)

// paginatedResponse is the list envelope: total count, links to the
// adjacent pages, and the page contents.
type paginatedResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// pageLink rebuilds the request URL with the page query parameter set,
// or nil when the target page is out of range.
func pageLink(r *http.Request, page, pageSize, total int) *string {
	if page < 1 {
		return nil
	}
	lastPage := (total + pageSize - 1) / pageSize
	if lastPage == 0 {
		lastPage = 1
	}
	if page > lastPage {
		return nil
	}
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
