package contract

import (
	"context"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// Touch bumps updated_at on a live session owned by userId and reports
	// whether such a session exists. Inside a transaction the update also
	// holds the row lock until commit.
	Touch(ctx context.Context, id uuid.UUID, userId string, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID, userId string) (bool, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}
