package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"genius-be/internal/dto"
	"genius-be/internal/entity"
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/metrics"
	"genius-be/internal/pkg/serverutils"
	"genius-be/internal/repository/unitofwork"
	"genius-be/pkg/chat/session"
	"genius-be/pkg/entitlement"
	"genius-be/pkg/events"
	"genius-be/pkg/llm"

	"github.com/google/uuid"
)

const conversationModule = "CONVERSATION"

// IConversationService defines the conversation service interface
type IConversationService interface {
	ListSessions(ctx context.Context, userId string) (*dto.ListConversationsResponse, error)
	GetHistory(ctx context.Context, userId string, sessionId string) (*dto.ConversationHistoryResponse, error)
	Send(ctx context.Context, userId string, request *dto.SendConversationRequest) (*dto.SendConversationResponse, error)
	DeleteSession(ctx context.Context, userId string, sessionId string) error
	Usage(ctx context.Context, userId string) (*dto.UsageResponse, error)
}

// EntitlementGate is the part of entitlement.Gate the conversation flow needs.
type EntitlementGate interface {
	IsAllowed(ctx context.Context, userId string) (entitlement.Decision, error)
	RecordUsageIn(ctx context.Context, uow unitofwork.UnitOfWork, userId string) error
}

type conversationService struct {
	store     *session.Store
	gate      EntitlementGate
	completer llm.Completer
	publisher events.Publisher
	metrics   metrics.MetricsCollector
	logger    logger.ILogger
	now       func() time.Time
}

func NewConversationService(
	store *session.Store,
	gate EntitlementGate,
	completer llm.Completer,
	publisher events.Publisher,
	collector metrics.MetricsCollector,
	log logger.ILogger,
) IConversationService {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &conversationService{
		store:     store,
		gate:      gate,
		completer: completer,
		publisher: publisher,
		metrics:   collector,
		logger:    log,
		now:       time.Now,
	}
}

func (s *conversationService) ListSessions(ctx context.Context, userId string) (*dto.ListConversationsResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	sessions, err := s.store.ListSessions(ctx, userId)
	if err != nil {
		return nil, dto.NewUnknownError(err)
	}

	res := &dto.ListConversationsResponse{Sessions: make([]dto.ConversationSessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		res.Sessions = append(res.Sessions, dto.ConversationSessionResponse{
			Id:        sess.Id,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Count:     dto.MessageCountResponse{Messages: sess.MessageCount},
		})
	}
	return res, nil
}

func (s *conversationService) GetHistory(ctx context.Context, userId string, sessionIdStr string) (*dto.ConversationHistoryResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	sessionId, err := uuid.Parse(sessionIdStr)
	if err != nil {
		return nil, dto.NewNotFoundError("Not Found")
	}

	messages, err := s.store.GetHistory(ctx, userId, sessionId)
	if err != nil {
		return nil, mapStoreError(err)
	}

	res := &dto.ConversationHistoryResponse{
		SessionId: sessionId,
		Messages:  make([]dto.ConversationMessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		res.Messages = append(res.Messages, dto.ConversationMessageResponse{
			Id:        msg.Id,
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			UpdatedAt: msg.UpdatedAt,
		})
	}
	return res, nil
}

// Send runs one turn. Nothing is written until the completion has
// succeeded, and the turn itself is written atomically.
func (s *conversationService) Send(ctx context.Context, userId string, request *dto.SendConversationRequest) (*dto.SendConversationResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	if request == nil {
		return nil, dto.NewInvalidInputError("Messages are required")
	}
	if err := serverutils.ValidateRequest(request); err != nil {
		return nil, err
	}
	latest := request.Messages[len(request.Messages)-1]
	if latest.Role != llm.RoleUser {
		return nil, dto.NewInvalidInputError("The last message must come from the user")
	}

	var sessionId *uuid.UUID
	if request.SessionId != nil && strings.TrimSpace(*request.SessionId) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*request.SessionId))
		if err != nil {
			return nil, dto.NewInvalidInputError("Invalid sessionId")
		}
		sessionId = &parsed
	}

	if !s.completer.Configured() {
		return nil, dto.NewServiceUnavailableError("OpenAI API Key not configured.", nil)
	}

	decision, err := s.gate.IsAllowed(ctx, userId)
	if err != nil {
		s.logger.Error(conversationModule, "Entitlement check failed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return nil, dto.NewServiceUnavailableError("Internal Error", err)
	}
	if !decision.Allowed {
		s.metrics.RecordEntitlementDenied()
		return nil, dto.NewForbiddenError()
	}

	var existing *entity.ChatSession
	if sessionId != nil {
		existing, err = s.store.ResolveSession(ctx, userId, *sessionId)
		if err != nil {
			return nil, mapStoreError(err)
		}
	}

	prompt := make([]llm.Message, len(request.Messages))
	for i, m := range request.Messages {
		prompt[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	started := time.Now()
	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.metrics.RecordCompletion(completionOutcome(err), time.Since(started))
		return nil, s.mapCompletionError(userId, err)
	}
	s.metrics.RecordCompletion("ok", time.Since(started))

	turn := session.Turn{
		UserContent:      latest.Content,
		AssistantRole:    entity.MessageRole(reply.Role),
		AssistantContent: reply.Content,
	}
	if !decision.Subscribed {
		// Charged with the turn itself, so concurrent requests cannot
		// overrun the free allowance between the check above and here.
		turn.Charge = func(ctx context.Context, uow unitofwork.UnitOfWork) error {
			return s.gate.RecordUsageIn(ctx, uow, userId)
		}
	}

	var sess *entity.ChatSession
	var result *session.TurnResult
	if existing != nil {
		result, err = s.store.AppendTurn(ctx, userId, existing.Id, turn)
		sess = existing
	} else {
		sess, result, err = s.store.StartSession(ctx, userId, request.Title, turn)
	}
	if errors.Is(err, entitlement.ErrLimitReached) {
		s.metrics.RecordEntitlementDenied()
		return nil, dto.NewForbiddenError()
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.metrics.RecordTurnPersisted(existing == nil)

	s.publish(ctx, events.NewConversationTurnRecorded(
		userId, sess.Id.String(), sess.Title, existing == nil, result.AssistantMessage.CreatedAt,
	))

	s.logger.Info(conversationModule, "Turn recorded", map[string]interface{}{
		"user_id":     userId,
		"session_id":  sess.Id.String(),
		"new_session": existing == nil,
		"subscribed":  decision.Subscribed,
	})

	return &dto.SendConversationResponse{
		SessionId: sess.Id,
		Message: dto.AssistantMessageResponse{
			Role:    string(result.AssistantMessage.Role),
			Content: result.AssistantMessage.Content,
		},
	}, nil
}

func (s *conversationService) DeleteSession(ctx context.Context, userId string, sessionIdStr string) error {
	if userId == "" {
		return dto.NewUnauthorizedError()
	}

	sessionId, err := uuid.Parse(sessionIdStr)
	if err != nil {
		return dto.NewNotFoundError("Not Found")
	}

	if err := s.store.DeleteSession(ctx, userId, sessionId); err != nil {
		return mapStoreError(err)
	}

	s.publish(ctx, events.NewConversationDeleted(userId, sessionId.String(), s.now().UTC()))
	return nil
}

func (s *conversationService) Usage(ctx context.Context, userId string) (*dto.UsageResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	decision, err := s.gate.IsAllowed(ctx, userId)
	if err != nil {
		return nil, dto.NewServiceUnavailableError("Internal Error", err)
	}
	return &dto.UsageResponse{
		Used:       decision.Used,
		Limit:      decision.Limit,
		Subscribed: decision.Subscribed,
	}, nil
}

func (s *conversationService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(conversationModule, "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *conversationService) mapCompletionError(userId string, err error) error {
	if errors.Is(err, llm.ErrInvalidInput) {
		return dto.NewInvalidInputError("Messages are required")
	}

	kind := llm.KindOf(err)
	fields := map[string]interface{}{
		"user_id": userId,
		"kind":    string(kind),
		"error":   err.Error(),
	}

	switch kind {
	case llm.KindRateLimited:
		s.logger.Warn(conversationModule, "Completion rate limited", fields)
		return dto.NewRateLimitedError(err)
	case llm.KindUnauthorized:
		s.logger.Error(conversationModule, "Completion credential rejected", fields)
		return dto.NewServiceUnavailableError("Internal Error", err)
	case llm.KindEmpty:
		s.logger.Error(conversationModule, "Completion returned no message", fields)
		return dto.NewServiceError("No response from model", err)
	default:
		s.logger.Error(conversationModule, "Completion failed", fields)
		return dto.NewUnknownError(err)
	}
}

func completionOutcome(err error) string {
	if errors.Is(err, llm.ErrInvalidInput) {
		return "invalid_input"
	}
	if kind := llm.KindOf(err); kind != "" {
		return string(kind)
	}
	return string(llm.KindUnknown)
}

func mapStoreError(err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return dto.NewNotFoundError("Not Found")
	}
	return dto.NewUnknownError(err)
}
