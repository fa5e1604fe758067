// Package session persists conversation threads and their transcripts.
//
// Every read is scoped to the caller's user id; a session owned by someone
// else is indistinguishable from one that does not exist. Turns are written
// as a unit: the session's updated_at bump, the user message and the
// assistant message either all commit or none do.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/repository/specification"
	"genius-be/internal/repository/unitofwork"
	"genius-be/pkg/chat"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("chat session not found")

// messageSpacing separates the two halves of a turn, and consecutive turns,
// so ordering by created_at is strict.
const messageSpacing = time.Millisecond

// Turn is one prompt and the reply produced for it.
type Turn struct {
	UserContent      string
	AssistantRole    entity.MessageRole
	AssistantContent string

	// Charge, when set, runs inside the turn's transaction after both
	// messages are written. An error from it discards the whole turn.
	Charge func(ctx context.Context, uow unitofwork.UnitOfWork) error
}

type TurnResult struct {
	UserMessage      *entity.ChatMessage
	AssistantMessage *entity.ChatMessage
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewStore(uowFactory unitofwork.RepositoryFactory, opts ...Option) *Store {
	s := &Store{
		uowFactory: uowFactory,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Postgres keeps microseconds; truncating up front means what we return
// equals what a later read returns.
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ListSessions returns the user's live sessions, most recently updated
// first, each carrying its message count.
func (s *Store) ListSessions(ctx context.Context, userId string) ([]*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.RecentlyUpdatedSessions{},
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return []*entity.ChatSession{}, nil
	}

	ids := make([]uuid.UUID, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.Id
	}
	counts, err := uow.ChatMessageRepository().CountBySessionIds(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	for _, sess := range sessions {
		sess.MessageCount = counts[sess.Id]
	}

	return sessions, nil
}

// ResolveSession loads a live session owned by userId.
func (s *Store) ResolveSession(ctx context.Context, userId string, sessionId uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetHistory returns the transcript oldest first, after the ownership check.
func (s *Store) GetHistory(ctx context.Context, userId string, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	if _, err := s.ResolveSession(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.ChronologicalMessages{},
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return messages, nil
}

// ResolveOrCreateSession loads sessionId when given, otherwise creates an
// empty session titled from seedTitle.
func (s *Store) ResolveOrCreateSession(ctx context.Context, userId string, sessionId *uuid.UUID, seedTitle string) (*entity.ChatSession, error) {
	if sessionId != nil {
		return s.ResolveSession(ctx, userId, *sessionId)
	}

	now := s.clock()
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     chat.DeriveTitle(seedTitle),
		CreatedAt: now,
		UpdatedAt: now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// AppendTurn records a turn on an existing session.
func (s *Store) AppendTurn(ctx context.Context, userId string, sessionId uuid.UUID, turn Turn) (*TurnResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer uow.Rollback()

	now := s.clock()

	// Bumping first takes the row lock, which queues concurrent appends to
	// the same session behind this one.
	found, err := uow.ChatSessionRepository().Touch(ctx, sessionId, userId, now)
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	result, err := s.writeTurn(ctx, uow, sessionId, now, turn)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return result, nil
}

// StartSession creates a session together with its first turn.
func (s *Store) StartSession(ctx context.Context, userId, title string, turn Turn) (*entity.ChatSession, *TurnResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("begin start: %w", err)
	}
	defer uow.Rollback()

	now := s.clock()
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     chat.DeriveTitle(title, turn.UserContent),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.ChatSessionRepository().Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	result, err := s.writeTurn(ctx, uow, sess.Id, now, turn)
	if err != nil {
		return nil, nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit start: %w", err)
	}
	sess.MessageCount = 2
	return sess, result, nil
}

// DeleteSession soft-deletes the session; it then behaves as not found.
func (s *Store) DeleteSession(ctx context.Context, userId string, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deleted, err := uow.ChatSessionRepository().SoftDelete(ctx, sessionId, userId)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) writeTurn(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, now time.Time, turn Turn) (*TurnResult, error) {
	messages := uow.ChatMessageRepository()

	// Never stamp a message at or before the newest one already stored,
	// whatever the wall clock says.
	at := now
	latest, err := messages.FindLatest(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("find latest message: %w", err)
	}
	if latest != nil && !at.After(latest.CreatedAt) {
		at = latest.CreatedAt.Add(messageSpacing)
	}

	assistantRole := turn.AssistantRole
	if assistantRole == "" {
		assistantRole = entity.RoleAssistant
	}

	userMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          entity.RoleUser,
		Content:       turn.UserContent,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("insert user message: %w", err)
	}

	replyAt := at.Add(messageSpacing)
	assistantMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          assistantRole,
		Content:       turn.AssistantContent,
		CreatedAt:     replyAt,
		UpdatedAt:     replyAt,
	}
	if err := messages.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("insert assistant message: %w", err)
	}

	if turn.Charge != nil {
		if err := turn.Charge(ctx, uow); err != nil {
			return nil, fmt.Errorf("charge turn: %w", err)
		}
	}

	return &TurnResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}
