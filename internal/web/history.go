package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/kindledrop/internal/submission"
)

// EmptyHistoryText is shown while a History has no entries.
const EmptyHistoryText = "No submissions yet. Send a file to get started!"

// Entry is one recorded attempt.
type Entry struct {
	ID        string
	Timestamp time.Time
	URL       string
	FileName  string
	Bytes     int64
	Status    submission.Status
	Message   string
}

// EntryFromResult records res as it was observed at ts.
func EntryFromResult(res submission.Result, ts time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		URL:       res.ResolvedURL,
		FileName:  res.FileName,
		Bytes:     res.Bytes,
		Status:    res.Status,
		Message:   res.Message,
	}
}

// History is an in-memory, newest-first list of attempts. It only grows.
type History struct {
	mu      sync.RWMutex
	entries []Entry
}

// Record prepends e.
func (h *History) Record(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]Entry{e}, h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// List returns a copy of the entries, newest first.
func (h *History) List() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// EntryView is an Entry formatted for display.
type EntryView struct {
	ID      string
	Title   string
	URL     string
	Size    string
	Time    string
	Status  string
	Message string
	OK      bool
}

// HistoryView is what the page renders for a History.
type HistoryView struct {
	Empty     bool
	EmptyText string
	Items     []EntryView
}

// View formats the history.
func (h *History) View() HistoryView {
	entries := h.List()
	if len(entries) == 0 {
		return HistoryView{Empty: true, EmptyText: EmptyHistoryText}
	}

	items := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		title := e.FileName
		if title == "" {
			title = "Unknown file"
		}
		items = append(items, EntryView{
			ID:      e.ID,
			Title:   title,
			URL:     e.URL,
			Size:    submission.FormatBytes(e.Bytes),
			Time:    submission.FormatTime(e.Timestamp),
			Status:  string(e.Status),
			Message: e.Message,
			OK:      e.Status == submission.StatusSuccess,
		})
	}
	return HistoryView{Items: items}
}
