package harness

// Trace event types.
const (
	EventStatement = "statement"
	EventLookup    = "lookup"
)

// TraceEvent is one submitted statement or one completed lookup.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`

	// lookup events
	RequestID string            `json:"request_id,omitempty"`
	Request   []string          `json:"request,omitempty"`
	Matches   map[string]string `json:"matches,omitempty"`
	Failed    bool              `json:"failed,omitempty"`

	// statement events
	StatementID string   `json:"statement_id,omitempty"`
	Statement   string   `json:"statement,omitempty"`
	Params      []string `json:"params,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists statements and lookups in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Cache is the persisted cache record after the last lookup, decoded
	// generically. Nil when nothing was ever written.
	Cache map[string]any `json:"cache,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}

// Statements returns only the statement events.
func (r *Result) Statements() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventStatement {
			out = append(out, e)
		}
	}
	return out
}

// cacheEntries returns the uuidCache object of the persisted record.
func (r *Result) cacheEntries() map[string]any {
	entries, _ := r.Cache["uuidCache"].(map[string]any)
	return entries
}

// cachedName returns the name stored for id, if any.
func (r *Result) cachedName(id string) (string, bool) {
	entry, ok := r.cacheEntries()[id].(map[string]any)
	if !ok {
		return "", false
	}
	data, _ := entry["data"].(map[string]any)
	name, ok := data["name"].(string)
	return name, ok
}
