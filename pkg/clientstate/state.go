// Package clientstate is the client-side view model of the conversation
// screen. It owns which session is shown, its messages, and the prompt being
// submitted, and keeps them consistent with what the server persisted.
//
// Network calls are made without holding the lock. Every call that can be
// overtaken by a later user action carries the generation it started in;
// a result whose generation is no longer current is dropped.
package clientstate

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrForbidden is returned by an API when the free allowance is spent.
	ErrForbidden = errors.New("entitlement exhausted")
	// ErrStale means the user moved on before the response arrived.
	ErrStale = errors.New("response no longer matches the selected session")
	ErrBusy  = errors.New("another request is in progress")
)

type Phase int

const (
	NoActiveSession Phase = iota
	LoadingHistory
	ActiveSession
	Submitting
)

func (p Phase) String() string {
	switch p {
	case NoActiveSession:
		return "NoActiveSession"
	case LoadingHistory:
		return "LoadingHistory"
	case ActiveSession:
		return "ActiveSession"
	case Submitting:
		return "Submitting"
	default:
		return "Unknown"
	}
}

// SelectionGuard makes the mount-time auto-select a one-way transition.
type SelectionGuard int

const (
	NotYetSelected SelectionGuard = iota
	Selected
)

type Notice int

const (
	NoticeNone Notice = iota
	NoticeUpgrade
	NoticeError
)

type Message struct {
	Role    string
	Content string
}

type SessionSummary struct {
	Id           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int64
}

type SendRequest struct {
	SessionId string
	Messages  []Message
}

type SendResult struct {
	SessionId string
	Message   Message
}

// API is the server contract the view model drives.
type API interface {
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	GetHistory(ctx context.Context, sessionId string) ([]Message, error)
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// Snapshot is an immutable copy for rendering.
type Snapshot struct {
	Phase           Phase
	Guard           SelectionGuard
	ActiveSessionId string
	Messages        []Message
	Sessions        []SessionSummary
	Draft           string
	Notice          Notice
}

type State struct {
	api API

	mu         sync.Mutex
	phase      Phase
	guard      SelectionGuard
	generation uint64
	activeId   string
	messages   []Message
	sessions   []SessionSummary
	draft      string
	notice     Notice
}

func New(api API) *State {
	return &State{api: api}
}

// Mount loads the session list and, the first time only, opens the most
// recently updated session.
func (s *State) Mount(ctx context.Context) error {
	if err := s.RefreshSessions(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.guard != NotYetSelected || len(s.sessions) == 0 {
		s.mu.Unlock()
		return nil
	}
	first := s.sessions[0].Id
	tag := s.beginSelectLocked(first)
	s.mu.Unlock()

	return s.loadHistory(ctx, tag, first)
}

// RefreshSessions replaces the session list. It never touches the selection.
func (s *State) RefreshSessions(ctx context.Context) error {
	sessions, err := s.api.ListSessions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return nil
}

// Select opens a session and replaces the message list with its history.
func (s *State) Select(ctx context.Context, sessionId string) error {
	s.mu.Lock()
	tag := s.beginSelectLocked(sessionId)
	s.mu.Unlock()

	return s.loadHistory(ctx, tag, sessionId)
}

// beginSelectLocked moves to LoadingHistory for sessionId and returns the
// generation the load belongs to. s.mu must be held.
func (s *State) beginSelectLocked(sessionId string) uint64 {
	s.guard = Selected
	s.generation++
	s.activeId = sessionId
	s.messages = nil
	s.phase = LoadingHistory
	s.notice = NoticeNone
	return s.generation
}

func (s *State) loadHistory(ctx context.Context, tag uint64, sessionId string) error {
	history, err := s.api.GetHistory(ctx, sessionId)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != tag || s.activeId != sessionId {
		return ErrStale
	}
	s.phase = ActiveSession
	if err != nil {
		s.notice = NoticeError
		return err
	}
	s.messages = history
	return nil
}

// NewChat clears the screen at once. Any in-flight load or submit is left
// to finish and be discarded.
func (s *State) NewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guard = Selected
	s.generation++
	s.activeId = ""
	s.messages = nil
	s.phase = NoActiveSession
	s.notice = NoticeNone
}

func (s *State) SetDraft(draft string) {
	s.mu.Lock()
	s.draft = draft
	s.mu.Unlock()
}

// Submit sends prompt with the visible conversation. Nothing is appended
// until the server answers; on failure the prompt stays in the draft.
func (s *State) Submit(ctx context.Context, prompt string) error {
	s.mu.Lock()
	if s.phase == Submitting || s.phase == LoadingHistory {
		s.mu.Unlock()
		return ErrBusy
	}
	s.guard = Selected
	tag := s.generation
	sessionId := s.activeId
	previous := s.phase
	userMsg := Message{Role: "user", Content: prompt}
	outgoing := append(cloneMessages(s.messages), userMsg)
	s.phase = Submitting
	s.draft = prompt
	s.notice = NoticeNone
	s.mu.Unlock()

	res, err := s.api.Send(ctx, SendRequest{SessionId: sessionId, Messages: outgoing})

	s.mu.Lock()
	if s.generation != tag {
		s.mu.Unlock()
		if err == nil {
			// Not shown, but saved: the sidebar should still list it.
			_ = s.RefreshSessions(ctx)
		}
		return ErrStale
	}
	if err != nil {
		s.phase = previous
		if errors.Is(err, ErrForbidden) {
			s.notice = NoticeUpgrade
		} else {
			s.notice = NoticeError
		}
		s.mu.Unlock()
		return err
	}

	s.messages = append(s.messages, userMsg, res.Message)
	if s.activeId == "" {
		s.activeId = res.SessionId
	}
	s.phase = ActiveSession
	s.draft = ""
	s.mu.Unlock()

	// The turn is saved; a failed list refresh only leaves the sidebar stale.
	_ = s.RefreshSessions(ctx)
	return nil
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]SessionSummary, len(s.sessions))
	copy(sessions, s.sessions)

	return Snapshot{
		Phase:           s.phase,
		Guard:           s.guard,
		ActiveSessionId: s.activeId,
		Messages:        cloneMessages(s.messages),
		Sessions:        sessions,
		Draft:           s.draft,
		Notice:          s.notice,
	}
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
