package httpapi

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "https://netspan.dev/problems/not-found"
	ProblemTypeBadRequest  = "https://netspan.dev/problems/bad-request"
	ProblemTypeInternal    = "https://netspan.dev/problems/internal-error"
	ProblemTypeConflict    = "https://netspan.dev/problems/conflict"
	ProblemTypeRateLimited = "https://netspan.dev/problems/rate-limited"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type" example:"https://netspan.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"network not found"`
	Instance string `json:"instance,omitempty" example:"/scan/net-1/start"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeNotFound, Title: "Not Found", Status: http.StatusNotFound, Detail: detail, Instance: instance})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Detail: detail, Instance: instance})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError, Detail: detail, Instance: instance})
}

// Conflict writes a 409 problem response, used for the
// already-scanning-this-network case.
func Conflict(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeConflict, Title: "Conflict", Status: http.StatusConflict, Detail: detail, Instance: instance})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeRateLimited, Title: "Too Many Requests", Status: http.StatusTooManyRequests, Detail: detail, Instance: instance})
}
