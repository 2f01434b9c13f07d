package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "/problems/not-found"
	ProblemTypeBadRequest  = "/problems/bad-request"
	ProblemTypeInternal    = "/problems/internal-error"
	ProblemTypeRateLimited = "/problems/rate-limited"
	ProblemTypeUnavailable = "/problems/unavailable"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// RequestID lets clients quote a failing request.
	RequestID string `json:"request_id,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func problem(r *http.Request, typ, title string, status int, detail string) Problem {
	return Problem{
		Type:      typ,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: RequestID(r.Context()),
	}
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	WriteProblem(w, problem(r, ProblemTypeBadRequest, "Bad Request", http.StatusBadRequest, detail))
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	WriteProblem(w, problem(r, ProblemTypeNotFound, "Not Found", http.StatusNotFound, detail))
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	WriteProblem(w, problem(r, ProblemTypeInternal, "Internal Server Error", http.StatusInternalServerError, detail))
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, r *http.Request, detail string) {
	WriteProblem(w, problem(r, ProblemTypeRateLimited, "Too Many Requests", http.StatusTooManyRequests, detail))
}

// Unavailable writes a 503 problem response.
func Unavailable(w http.ResponseWriter, r *http.Request, detail string) {
	WriteProblem(w, problem(r, ProblemTypeUnavailable, "Service Unavailable", http.StatusServiceUnavailable, detail))
}
