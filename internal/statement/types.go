package statement

// State is the lifecycle state a statement job reports.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCanceled  State = "CANCELED"
	StateClosed    State = "CLOSED"
)

// InProgress reports whether the job still needs polling.
func (s State) InProgress() bool {
	return s == StatePending || s == StateRunning
}

// QueryJob is the transient state of one remote execution. It only lives
// for the duration of a single Execute call.
type QueryJob struct {
	StatementID string
	State       State
	Rows        [][]any
	Polls       int
}

// submitRequest is the body of the submit call.
type submitRequest struct {
	WarehouseID   string      `json:"warehouse_id"`
	Statement     string      `json:"statement"`
	Parameters    []parameter `json:"parameters,omitempty"`
	WaitTimeout   string      `json:"wait_timeout"`
	OnWaitTimeout string      `json:"on_wait_timeout"`
	Disposition   string      `json:"disposition"`
	Format        string      `json:"format"`
}

type parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// statementResponse is returned by both submit and poll.
type statementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      statementStatus `json:"status"`
	Result      *resultData     `json:"result,omitempty"`
}

type statementStatus struct {
	State State        `json:"state"`
	Error *statusError `json:"error,omitempty"`
}

type statusError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// resultData is one inline chunk. The chunk endpoint returns this object on
// its own.
type resultData struct {
	ChunkIndex            int     `json:"chunk_index"`
	RowCount              int     `json:"row_count"`
	DataArray             [][]any `json:"data_array"`
	NextChunkInternalLink string  `json:"next_chunk_internal_link,omitempty"`
}
