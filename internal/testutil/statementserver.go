package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Step is one scripted response from the fake statement endpoint.
// The first step of a Script answers the submit call; later steps answer
// successive polls. The last step repeats once the script runs out.
type Step struct {
	// HTTPStatus overrides the response status (default 200). Non-2xx steps
	// respond with Body instead of a statement document.
	HTTPStatus int    `yaml:"http_status,omitempty"`
	Body       string `yaml:"body,omitempty"`

	State string  `yaml:"state"`
	Error string  `yaml:"error,omitempty"`
	Rows  [][]any `yaml:"rows,omitempty"`

	// Chunks are further inline result chunks served after Rows through
	// next_chunk_internal_link.
	Chunks [][][]any `yaml:"chunks,omitempty"`
}

// Script selects responses for matching submissions.
type Script struct {
	// Match is a substring of the statement text or of any parameter value.
	// Empty matches every submission.
	Match string `yaml:"match,omitempty"`
	Steps []Step `yaml:"steps"`
}

func (s Script) matches(sub Submission) bool {
	if s.Match == "" || strings.Contains(sub.Statement, s.Match) {
		return true
	}
	for _, p := range sub.Params {
		if strings.Contains(p.Value, s.Match) {
			return true
		}
	}
	return false
}

// SubmittedParam is a parameter as received by the fake endpoint.
type SubmittedParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Submission records one submit call.
type Submission struct {
	StatementID   string
	Authorization string
	WarehouseID   string           `json:"warehouse_id"`
	Statement     string           `json:"statement"`
	Params        []SubmittedParam `json:"parameters"`
	WaitTimeout   string           `json:"wait_timeout"`
	Disposition   string           `json:"disposition"`
	Format        string           `json:"format"`
}

type fakeJob struct {
	steps []Step
	pos   int
	last  Step
}

// StatementServer is an httptest server speaking the statement-execution
// protocol from scripted responses.
//
// Unmatched submissions succeed immediately with no rows.
type StatementServer struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	scripts     []Script
	jobs        map[string]*fakeJob
	submissions []Submission
	polls       int
	cancels     []string
}

// NewStatementServer starts a fake endpoint that requires bearer token
// (any token when empty). It is closed when the test ends.
func NewStatementServer(t *testing.T, token string, scripts ...Script) *StatementServer {
	t.Helper()
	s := &StatementServer{
		token:   token,
		scripts: scripts,
		jobs:    make(map[string]*fakeJob),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddScript appends a script after construction.
func (s *StatementServer) AddScript(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
}

// Submissions returns a copy of every submit call received so far.
func (s *StatementServer) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Polls returns the number of status polls received.
func (s *StatementServer) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Cancels returns the statement ids that were cancelled.
func (s *StatementServer) Cancels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancels...)
}

const statementsPrefix = "/api/2.0/sql/statements"

func (s *StatementServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, `{"error_code":"UNAUTHENTICATED","message":"bad token"}`, http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, statementsPrefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case r.Method == http.MethodPost && rest == "":
		s.handleSubmit(w, r)
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] != "":
		s.handlePoll(w, parts[0])
	case r.Method == http.MethodGet && len(parts) == 4 && parts[1] == "result" && parts[2] == "chunks":
		s.handleChunk(w, parts[0], parts[3])
	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel":
		s.mu.Lock()
		s.cancels = append(s.cancels, parts[0])
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	default:
		http.NotFound(w, r)
	}
}

func (s *StatementServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub.Authorization = r.Header.Get("Authorization")

	s.mu.Lock()
	id := fmt.Sprintf("stmt-%d", len(s.submissions)+1)
	sub.StatementID = id
	s.submissions = append(s.submissions, sub)

	steps := []Step{{State: "SUCCEEDED"}}
	for _, script := range s.scripts {
		if script.matches(sub) && len(script.Steps) > 0 {
			steps = script.Steps
			break
		}
	}
	job := &fakeJob{steps: steps}
	s.jobs[id] = job
	step := job.next()
	s.mu.Unlock()

	writeStep(w, id, step)
}

func (s *StatementServer) handlePoll(w http.ResponseWriter, id string) {
	s.mu.Lock()
	s.polls++
	job, ok := s.jobs[id]
	var step Step
	if ok {
		step = job.next()
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error_code":"NOT_FOUND"}`, http.StatusNotFound)
		return
	}
	writeStep(w, id, step)
}

func (s *StatementServer) handleChunk(w http.ResponseWriter, id, index string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	var step Step
	if ok {
		step = job.current()
	}
	s.mu.Unlock()

	var n int
	if _, err := fmt.Sscanf(index, "%d", &n); err != nil || !ok || n < 1 || n > len(step.Chunks) {
		http.Error(w, `{"error_code":"NOT_FOUND"}`, http.StatusNotFound)
		return
	}

	chunk := map[string]any{
		"chunk_index": n,
		"row_count":   len(step.Chunks[n-1]),
		"data_array":  step.Chunks[n-1],
	}
	if n < len(step.Chunks) {
		chunk["next_chunk_internal_link"] = chunkLink(id, n+1)
	}
	writeJSON(w, http.StatusOK, chunk)
}

// next returns the current step and advances, sticking on the last one.
func (j *fakeJob) next() Step {
	j.last = j.steps[j.pos]
	if j.pos < len(j.steps)-1 {
		j.pos++
	}
	return j.last
}

// current returns the most recently served step.
func (j *fakeJob) current() Step {
	return j.last
}

func chunkLink(id string, n int) string {
	return fmt.Sprintf("%s/%s/result/chunks/%d", statementsPrefix, id, n)
}

func writeStep(w http.ResponseWriter, id string, step Step) {
	if step.HTTPStatus != 0 && (step.HTTPStatus < 200 || step.HTTPStatus >= 300) {
		w.WriteHeader(step.HTTPStatus)
		_, _ = w.Write([]byte(step.Body))
		return
	}

	status := map[string]any{"state": step.State}
	if step.Error != "" {
		status["error"] = map[string]any{"error_code": "BAD_REQUEST", "message": step.Error}
	}
	doc := map[string]any{
		"statement_id": id,
		"status":       status,
	}
	// In-progress steps carry a result only when rows are scripted for them.
	if step.State == "SUCCEEDED" || step.Rows != nil {
		rows := step.Rows
		if rows == nil {
			rows = [][]any{}
		}
		result := map[string]any{
			"chunk_index": 0,
			"row_count":   len(rows),
			"data_array":  rows,
		}
		if len(step.Chunks) > 0 {
			result["next_chunk_internal_link"] = chunkLink(id, 1)
		}
		doc["result"] = result
	}

	code := http.StatusOK
	if step.HTTPStatus != 0 {
		code = step.HTTPStatus
	}
	writeJSON(w, code, doc)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
