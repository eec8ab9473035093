package submission

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		resp       *Response
		wantStatus Status
		wantMsg    string
		wantErr    bool
	}{
		{
			name:       "success",
			resp:       &Response{OK: true, ResolvedURL: "https://raw.githubusercontent.com/x/y/main/f.txt", FileName: "f.txt", Bytes: 2048, Message: "sent"},
			wantStatus: StatusSuccess,
			wantMsg:    "sent",
		},
		{
			name:       "engine failure keeps message",
			resp:       &Response{OK: false, Message: "mailbox rejected"},
			wantStatus: StatusError,
			wantMsg:    "mailbox rejected",
			wantErr:    true,
		},
		{
			name:       "engine failure without message",
			resp:       &Response{OK: false},
			wantStatus: StatusError,
			wantMsg:    "Failed.",
			wantErr:    true,
		},
		{
			name:       "nil response",
			resp:       nil,
			wantStatus: StatusError,
			wantMsg:    "Failed.",
			wantErr:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := Interpret(tc.resp)

			assert.Equal(t, tc.wantStatus, res.Status)
			assert.Equal(t, tc.wantMsg, res.Message)
			if !tc.wantErr {
				require.NoError(t, err)
				assert.True(t, res.OK())
				assert.Equal(t, tc.resp.ResolvedURL, res.ResolvedURL)
				assert.Equal(t, tc.resp.Bytes, res.Bytes)
				return
			}
			var engErr *EngineError
			require.True(t, errors.As(err, &engErr), "expected *EngineError, got %T", err)
			assert.Equal(t, tc.wantMsg, engErr.Error())
		})
	}
}

type stubSender struct {
	resp  *Response
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, req Request) (*Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	t.Run("transport failure still yields an error result", func(t *testing.T) {
		sender := &stubSender{err: &TransportError{Message: "could not reach engine: refused"}}

		res, resp, err := Submit(context.Background(), sender, Request{})

		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, StatusError, res.Status)
		assert.Equal(t, "could not reach engine: refused", res.Message)
		assert.Empty(t, res.ResolvedURL)
		assert.Equal(t, 1, sender.calls)
	})

	t.Run("success", func(t *testing.T) {
		sender := &stubSender{resp: &Response{OK: true, FileName: "f.txt"}}

		res, resp, err := Submit(context.Background(), sender, Request{})

		require.NoError(t, err)
		assert.Same(t, sender.resp, resp)
		assert.Equal(t, "f.txt", res.FileName)
	})
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2048, "2 KB"},
		{1048576, "1 MB"},
		{31457280, "30 MB"},
		{1073741824, "1 GB"},
		{5 * 1099511627776, "5120 GB"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatBytes(tc.in), "FormatBytes(%d)", tc.in)
	}

	assert.Equal(t, "0 B", formatBytes(math.NaN()))
	assert.Equal(t, "0 B", formatBytes(math.Inf(1)))
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 10, 18, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "3:04:05 PM", FormatTime(ts))
}

func TestRequest_Redaction(t *testing.T) {
	t.Parallel()

	req := Request{
		URL:         "u",
		KindleEmail: "a@kindle.com",
		SMTP:        &SMTP{Host: "h", Port: 587, User: "bot", From: "bot@example.com", Password: "hunter2"},
	}

	red := req.Redacted()
	assert.Equal(t, Mask, red.SMTP.Password)
	assert.Equal(t, "hunter2", req.SMTP.Password, "the source request must be untouched")

	raw, err := req.RedactedJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.Contains(t, string(raw), `"password": "***"`)

	logged := req.LogValue().String()
	assert.False(t, strings.Contains(logged, "hunter2"), "log value leaked the password: %s", logged)

	noPass := Request{URL: "u", SMTP: &SMTP{Host: "h"}}
	assert.Empty(t, noPass.Redacted().SMTP.Password)
	assert.Nil(t, Request{URL: "u"}.Redacted().SMTP)
}
