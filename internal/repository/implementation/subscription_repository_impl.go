package implementation

import (
	"context"
	"errors"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/mapper"
	"genius-be/internal/model"
	"genius-be/internal/repository/contract"
	"genius-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSubscription, error) {
	var m model.UserSubscription
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserSubscriptionToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) UpsertByUserId(ctx context.Context, sub *entity.UserSubscription) error {
	if sub.Id == uuid.Nil {
		sub.Id = uuid.New()
	}
	m := r.mapper.UserSubscriptionToModel(sub)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_id",
			"customer_ref",
			"price_id",
			"current_period_end",
			"updated_at",
		}),
	}).Create(m).Error
}

func (r *SubscriptionRepositoryImpl) UpdateBySubscriptionId(ctx context.Context, subscriptionId, priceId string, periodEnd time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.UserSubscription{}).
		Where("subscription_id = ?", subscriptionId).
		Updates(map[string]interface{}{
			"price_id":           priceId,
			"current_period_end": periodEnd,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
