package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a gorm handle. A transaction-scoped
// copy is handed to WithTx callbacks so every conditional write in the
// callback shares one database transaction.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &order, nil
}

func (s *GormStore) GetOrderWithItems(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &order, nil
}

func (s *GormStore) LockOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &order, nil
}

func (s *GormStore) UpdateOrderStatusIf(ctx context.Context, orderID uint, expect, next models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, expect).
		Update("status", next)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) UpdateOrderStatusIfNot(ctx context.Context, orderID uint, not, next models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", orderID, not).
		Update("status", next)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *GormStore) FindPaymentByTransactionID(ctx context.Context, txnID string) (*models.Payment, error) {
	return s.findPayment(ctx, "transaction_id = ?", txnID)
}

func (s *GormStore) FindPaymentByStripeIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	return s.findPayment(ctx, "stripe_payment_intent_id = ?", intentID)
}

func (s *GormStore) FindPaymentByStripeSession(ctx context.Context, sessionID string) (*models.Payment, error) {
	return s.findPayment(ctx, "stripe_session_id = ?", sessionID)
}

func (s *GormStore) findPayment(ctx context.Context, query string, arg string) (*models.Payment, error) {
	if arg == "" {
		return nil, ErrNotFound
	}
	var p models.Payment
	err := s.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *GormStore) HasActivePayment(ctx context.Context, orderID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND payment_status IN ?", orderID,
			[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusCompleted}).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	p.ActiveKey = models.ActiveKeyFor(p.Status)
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) SaveStripeCorrelation(ctx context.Context, paymentID uint, intentID, sessionID string) error {
	updates := map[string]interface{}{}
	if intentID != "" {
		updates["stripe_payment_intent_id"] = intentID
	}
	if sessionID != "" {
		updates["stripe_session_id"] = sessionID
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (s *GormStore) CASPaymentStatus(ctx context.Context, paymentID uint, expect, next models.PaymentStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"payment_status": next,
		"active_key":     models.ActiveKeyFor(next),
	}
	if paidAt != nil {
		updates["payment_time"] = paidAt
	}
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND payment_status = ?", paymentID, expect).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) DeletePayment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListPayments(ctx context.Context) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (s *GormStore) RecordNotification(ctx context.Context, n *models.PaymentNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
