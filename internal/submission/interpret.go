package submission

import "strings"

// Status tags an interpreted attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// fallbackMessage is used when the engine reports failure without saying why.
const fallbackMessage = "Failed."

// Result is the user-facing view of one engine reply.
type Result struct {
	Status      Status
	ResolvedURL string
	FileName    string
	Bytes       int64
	Message     string
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Interpret classifies resp. ok=false yields the populated Result together
// with an *EngineError carrying the engine's message.
func Interpret(resp *Response) (Result, error) {
	if resp == nil {
		return Result{Status: StatusError, Message: fallbackMessage}, &EngineError{Message: fallbackMessage}
	}

	res := Result{
		Status:      StatusSuccess,
		ResolvedURL: resp.ResolvedURL,
		FileName:    resp.FileName,
		Bytes:       resp.Bytes,
		Message:     resp.Message,
	}
	if resp.OK {
		return res, nil
	}

	msg := strings.TrimSpace(resp.Message)
	if msg == "" {
		msg = fallbackMessage
	}
	res.Status = StatusError
	res.Message = msg
	return res, &EngineError{Message: msg, Response: resp}
}
