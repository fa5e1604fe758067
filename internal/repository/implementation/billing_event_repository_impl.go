package implementation

import (
	"context"
	"errors"

	"genius-be/internal/entity"
	"genius-be/internal/mapper"
	"genius-be/internal/model"
	"genius-be/internal/repository/contract"
	"genius-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BillingEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewBillingEventRepository(db *gorm.DB) contract.BillingEventRepository {
	return &BillingEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *BillingEventRepositoryImpl) Record(ctx context.Context, event *entity.BillingEvent) (bool, error) {
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	m := r.mapper.BillingEventToModel(event)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BillingEventRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.BillingEvent, error) {
	var m model.BillingEvent
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
	return r.mapper.BillingEventToEntity(&m), nil
}
