package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/submission"
)

// stubSender returns a fixed reply and records every request.
type stubSender struct {
	mu    sync.Mutex
	resp  *submission.Response
	err   error
	reqs  []submission.Request
	block chan struct{}
}

func (s *stubSender) Send(ctx context.Context, req submission.Request) (*submission.Response, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.resp, s.err
}

func (s *stubSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC) }

func newTestForm(sender submission.Sender, storage Storage) (*Form, *SessionStore) {
	store := NewSessionStore(storage, nil)
	f := NewForm(FormDeps{
		Config: &config.Config{
			EngineURL: config.DefaultEngineURL,
			SMTP:      &config.SMTP{Host: "smtp.example.com", Port: 587, User: "bot", From: "bot@example.com"},
			Limits:    &config.Limits{MaxBytes: config.DefaultMaxBytes},
		},
		Secrets: submission.StaticSecret("hunter2"),
		Sender:  sender,
		Store:   store,
		Now:     fixedNow,
	})
	return f, store
}

func TestForm_MountRestoresRememberedAddress(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, "reader@kindle.com"))
	f, _ := newTestForm(&stubSender{}, storage)

	f.Mount()

	st := f.State()
	assert.Equal(t, "reader@kindle.com", st.Address)
	assert.True(t, st.Remember)
	assert.True(t, st.CanForget)
}

func TestForm_MountWithoutStorage(t *testing.T) {
	t.Parallel()

	f, _ := newTestForm(&stubSender{}, DisabledStorage{})
	f.Mount()

	st := f.State()
	assert.Empty(t, st.Address)
	assert.False(t, st.Remember)
}

func TestForm_RememberToggle(t *testing.T) {
	t.Parallel()

	f, store := newTestForm(&stubSender{}, NewMemoryStorage())

	f.SetAddress("reader@kindle.com")
	_, ok := store.Load()
	assert.False(t, ok, "nothing stored while remember is off")

	f.SetRemember(true)
	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "reader@kindle.com", got)

	f.SetAddress("other@kindle.com")
	got, _ = store.Load()
	assert.Equal(t, "other@kindle.com", got)

	f.SetRemember(false)
	_, ok = store.Load()
	assert.False(t, ok, "toggle off removes the stored value")
}

func TestForm_ClearSaved(t *testing.T) {
	t.Parallel()

	f, store := newTestForm(&stubSender{}, NewMemoryStorage())
	f.SetRemember(true)
	f.SetAddress("reader@kindle.com")

	f.ClearSaved()

	_, ok := store.Load()
	assert.False(t, ok)
	st := f.State()
	assert.Empty(t, st.Address)
	assert.False(t, st.Remember)
	assert.False(t, st.CanForget)
}

func TestForm_SubmitSuccess(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		remember    bool
		wantAddress string
	}{
		{name: "address cleared when not remembered", remember: false, wantAddress: ""},
		{name: "address kept when remembered", remember: true, wantAddress: "reader@kindle.com"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sender := &stubSender{resp: &submission.Response{
				OK: true, ResolvedURL: "https://raw.githubusercontent.com/x/y/main/f.txt", FileName: "f.txt", Bytes: 2048, Message: "sent",
			}}
			f, _ := newTestForm(sender, NewMemoryStorage())
			f.SetURL("https://github.com/x/y/blob/main/f.txt")
			f.SetAddress("reader@kindle.com")
			f.SetRemember(tc.remember)

			res, err := f.Submit(context.Background())

			require.NoError(t, err)
			assert.True(t, res.OK())
			st := f.State()
			assert.Empty(t, st.URL)
			assert.Equal(t, tc.wantAddress, st.Address)
			assert.Empty(t, st.Error)
			assert.False(t, st.Loading)

			entries := f.History().List()
			require.Len(t, entries, 1)
			assert.Equal(t, submission.StatusSuccess, entries[0].Status)
			assert.Equal(t, "f.txt", entries[0].FileName)
			assert.Equal(t, fixedNow(), entries[0].Timestamp)

			require.Equal(t, 1, sender.calls())
			req := sender.reqs[0]
			assert.Equal(t, "reader@kindle.com", req.KindleEmail)
			require.NotNil(t, req.SMTP)
			assert.Equal(t, "hunter2", req.SMTP.Password)
			require.NotNil(t, req.Limits)
		})
	}
}

func TestForm_SubmitEngineFailure(t *testing.T) {
	t.Parallel()

	sender := &stubSender{resp: &submission.Response{OK: false, Message: "mailbox rejected"}}
	f, _ := newTestForm(sender, NewMemoryStorage())
	f.SetURL("https://example.com/a.pdf")
	f.SetAddress("reader@kindle.com")

	_, err := f.Submit(context.Background())

	var engErr *submission.EngineError
	require.True(t, errors.As(err, &engErr))
	st := f.State()
	assert.Equal(t, "mailbox rejected", st.Error)
	assert.Equal(t, "https://example.com/a.pdf", st.URL, "fields are kept on failure")
	assert.Equal(t, "reader@kindle.com", st.Address)

	entries := f.History().List()
	require.Len(t, entries, 1)
	assert.Equal(t, submission.StatusError, entries[0].Status)
	assert.Equal(t, "mailbox rejected", entries[0].Message)
}

func TestForm_SubmitTransportFailure(t *testing.T) {
	t.Parallel()

	sender := &stubSender{err: &submission.TransportError{Message: "could not reach engine: connection refused"}}
	f, _ := newTestForm(sender, NewMemoryStorage())
	f.SetURL("https://example.com/a.pdf")
	f.SetAddress("reader@kindle.com")

	_, err := f.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, "could not reach engine: connection refused", f.State().Error)
	entries := f.History().List()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].URL)
	assert.Empty(t, entries[0].FileName)
	assert.Zero(t, entries[0].Bytes)
}

func TestForm_SubmitRequiresFields(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	f, _ := newTestForm(sender, NewMemoryStorage())

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrMissingURL)
	assert.Equal(t, "Enter a document URL.", f.State().Error)

	f.SetURL("https://example.com/a.pdf")
	_, err = f.Submit(context.Background())
	require.ErrorIs(t, err, ErrMissingAddress)

	assert.Zero(t, sender.calls())
	assert.Zero(t, f.History().Len())
}

func TestForm_SubmitInFlightGuard(t *testing.T) {
	t.Parallel()

	sender := &stubSender{
		resp:  &submission.Response{OK: true, FileName: "f.txt"},
		block: make(chan struct{}),
	}
	f, _ := newTestForm(sender, NewMemoryStorage())
	f.SetURL("https://example.com/a.pdf")
	f.SetAddress("reader@kindle.com")

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return sender.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, f.State().Loading)

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrInFlight)

	close(sender.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sender.calls(), "the guarded call never reached the engine")
	assert.Equal(t, 1, f.History().Len())
	assert.False(t, f.State().Loading)
}

func TestForm_CanForgetOnlyWhenRemembered(t *testing.T) {
	t.Parallel()

	f, _ := newTestForm(&stubSender{}, NewMemoryStorage())

	f.SetAddress("reader@kindle.com")
	assert.False(t, f.State().CanForget, "an unremembered address has nothing to forget")

	f.SetRemember(true)
	assert.True(t, f.State().CanForget)

	f.SetAddress("   ")
	assert.False(t, f.State().CanForget)
}

func TestForm_SubmitInputInFlightLeavesFieldsAlone(t *testing.T) {
	t.Parallel()

	sender := &stubSender{
		resp:  &submission.Response{OK: true, FileName: "f.txt"},
		block: make(chan struct{}),
	}
	f, store := newTestForm(sender, NewMemoryStorage())

	done := make(chan error, 1)
	go func() {
		_, err := f.SubmitInput(context.Background(), FormInput{
			URL:     "https://a/first",
			Address: "first@kindle.com",
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return sender.calls() == 1 }, time.Second, 5*time.Millisecond)

	_, err := f.SubmitInput(context.Background(), FormInput{
		URL:      "https://a/second",
		Address:  "second@kindle.com",
		Remember: true,
	})
	require.ErrorIs(t, err, ErrInFlight)

	st := f.State()
	assert.Equal(t, "https://a/first", st.URL)
	assert.Equal(t, "first@kindle.com", st.Address)
	assert.False(t, st.Remember)
	_, stored := store.Load()
	assert.False(t, stored, "the rejected post must not reach session storage")

	close(sender.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sender.calls())
}
