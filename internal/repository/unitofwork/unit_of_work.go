package unitofwork

import (
	"context"

	"genius-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	UsageRepository() contract.UsageRepository
	SubscriptionRepository() contract.SubscriptionRepository
	BillingEventRepository() contract.BillingEventRepository
}
