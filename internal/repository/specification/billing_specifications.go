package specification

import (
	"gorm.io/gorm"
)

type ByOrderID struct {
	OrderID string
}

func (s ByOrderID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("order_id = ?", s.OrderID)
}

type ByTransactionStatus struct {
	Status string
}

func (s ByTransactionStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("transaction_status = ?", s.Status)
}
