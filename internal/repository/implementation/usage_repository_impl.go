package implementation

import (
	"context"
	"errors"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/mapper"
	"genius-be/internal/model"
	"genius-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewUsageRepository(db *gorm.DB) contract.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *UsageRepositoryImpl) FindByUserId(ctx context.Context, userId string) (*entity.UserApiLimit, error) {
	var m model.UserApiLimit
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserApiLimitToEntity(&m), nil
}

// IncrementBelow is a single conditional upsert, so concurrent turns can
// neither lose a count nor push it past limit.
func (r *UsageRepositoryImpl) IncrementBelow(ctx context.Context, userId string, limit int, at time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	row := &model.UserApiLimit{
		Id:        uuid.New(),
		UserId:    userId,
		Count:     1,
		CreatedAt: at,
		UpdatedAt: at,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("user_api_limits.count + 1"),
			"updated_at": at,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "user_api_limits.count < ?", Vars: []interface{}{limit}},
		}},
	}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
