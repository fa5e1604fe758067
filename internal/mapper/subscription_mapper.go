package mapper

import (
	"genius-be/internal/entity"
	"genius-be/internal/model"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) UserSubscriptionToEntity(s *model.UserSubscription) *entity.UserSubscription {
	if s == nil {
		return nil
	}
	return &entity.UserSubscription{
		Id:               s.Id,
		UserId:           s.UserId,
		SubscriptionId:   s.SubscriptionId,
		CustomerRef:      s.CustomerRef,
		PriceId:          s.PriceId,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) UserSubscriptionToModel(s *entity.UserSubscription) *model.UserSubscription {
	if s == nil {
		return nil
	}
	return &model.UserSubscription{
		Id:               s.Id,
		UserId:           s.UserId,
		SubscriptionId:   s.SubscriptionId,
		CustomerRef:      s.CustomerRef,
		PriceId:          s.PriceId,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) UserApiLimitToEntity(l *model.UserApiLimit) *entity.UserApiLimit {
	if l == nil {
		return nil
	}
	return &entity.UserApiLimit{
		Id:        l.Id,
		UserId:    l.UserId,
		Count:     l.Count,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (m *SubscriptionMapper) BillingEventToModel(e *entity.BillingEvent) *model.BillingEvent {
	if e == nil {
		return nil
	}
	return &model.BillingEvent{
		Id:                e.Id,
		OrderId:           e.OrderId,
		TransactionStatus: string(e.TransactionStatus),
		UserId:            e.UserId,
		Payload:           datatypes.JSON(e.Payload),
		CreatedAt:         e.CreatedAt,
	}
}

func (m *SubscriptionMapper) BillingEventToEntity(e *model.BillingEvent) *entity.BillingEvent {
	if e == nil {
		return nil
	}
	return &entity.BillingEvent{
		Id:                e.Id,
		OrderId:           e.OrderId,
		TransactionStatus: entity.TransactionStatus(e.TransactionStatus),
		UserId:            e.UserId,
		Payload:           []byte(e.Payload),
		CreatedAt:         e.CreatedAt,
	}
}
