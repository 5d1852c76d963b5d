package statement

import (
	"errors"
	"fmt"
)

// QueryErrorCode categorizes executor failures.
type QueryErrorCode string

const (
	// ErrCodeSubmission indicates the submit call was rejected or failed.
	ErrCodeSubmission QueryErrorCode = "SUBMISSION_FAILED"

	// ErrCodePoll indicates a status poll (or chunk fetch) failed.
	ErrCodePoll QueryErrorCode = "POLL_FAILED"

	// ErrCodeStatement indicates the remote engine reported the statement failed.
	ErrCodeStatement QueryErrorCode = "STATEMENT_FAILED"

	// ErrCodeTimeout indicates the poll ceiling or overall deadline was reached.
	ErrCodeTimeout QueryErrorCode = "TIMEOUT"

	// ErrCodeDecode indicates a response body could not be decoded.
	ErrCodeDecode QueryErrorCode = "DECODE_FAILED"
)

// QueryError is returned by Execute for every remote-execution failure.
type QueryError struct {
	Code QueryErrorCode

	// Message is a human-readable description. For ErrCodeStatement it is
	// the message reported by the remote engine.
	Message string

	// StatementID identifies the remote job, when one was created.
	StatementID string

	// StatusCode and Body describe a non-2xx HTTP response.
	StatusCode int
	Body       string

	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.StatementID != "" {
		msg += fmt.Sprintf(" (statement=%s)", e.StatementID)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code QueryErrorCode) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsSubmissionError reports whether err is a rejected submission.
func IsSubmissionError(err error) bool { return hasCode(err, ErrCodeSubmission) }

// IsPollError reports whether err is a failed status poll.
func IsPollError(err error) bool { return hasCode(err, ErrCodePoll) }

// IsStatementError reports whether the remote engine failed the statement.
func IsStatementError(err error) bool { return hasCode(err, ErrCodeStatement) }

// IsTimeoutError reports whether the poll ceiling or deadline was reached.
func IsTimeoutError(err error) bool { return hasCode(err, ErrCodeTimeout) }

// maxBodyInError bounds how much of a response body is copied into errors.
const maxBodyInError = 512

func truncateBody(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError]) + "..."
	}
	return string(body)
}
