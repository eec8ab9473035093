package submission

import "context"

// Submit performs exactly one engine call and interprets it. The returned
// Result is populated on every path, so callers can record failures too; the
// error is a *TransportError or an *EngineError.
func Submit(ctx context.Context, s Sender, req Request) (Result, *Response, error) {
	resp, err := s.Send(ctx, req)
	if err != nil {
		return Result{Status: StatusError, Message: err.Error()}, nil, err
	}
	res, err := Interpret(resp)
	return res, resp, err
}
