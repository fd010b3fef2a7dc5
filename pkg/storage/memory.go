package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
)

// MemoryStore is an in-process Store for tests and local development.
// A single mutex stands in for the row-level serialization MySQL gives
// the real store, which keeps the conditional-write semantics
// identical.
type MemoryStore struct {
	mu sync.Mutex

	orders        map[uint]*models.Order
	payments      map[uint]*models.Payment
	notifications []models.PaymentNotification
	nextPaymentID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:        make(map[uint]*models.Order),
		payments:      make(map[uint]*models.Payment),
		nextPaymentID: 1,
	}
}

// SeedOrder installs an order fixture.
func (s *MemoryStore) SeedOrder(order *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	// The mutex is per-operation; transactional rollback is not
	// simulated. Tests that need partial-failure behavior use the real
	// store.
	return fn(s)
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *MemoryStore) GetOrderWithItems(ctx context.Context, id uint) (*models.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *MemoryStore) LockOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *MemoryStore) UpdateOrderStatusIf(ctx context.Context, orderID uint, expect, next models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status != expect {
		return false, nil
	}
	order.Status = next
	return true, nil
}

func (s *MemoryStore) UpdateOrderStatusIfNot(ctx context.Context, orderID uint, not, next models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status == not {
		return false, nil
	}
	order.Status = next
	return true, nil
}

func (s *MemoryStore) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) FindPaymentByTransactionID(ctx context.Context, txnID string) (*models.Payment, error) {
	return s.findPayment(func(p *models.Payment) bool { return txnID != "" && p.TransactionID == txnID })
}

func (s *MemoryStore) FindPaymentByStripeIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	return s.findPayment(func(p *models.Payment) bool { return intentID != "" && p.StripePaymentIntentID == intentID })
}

func (s *MemoryStore) FindPaymentByStripeSession(ctx context.Context, sessionID string) (*models.Payment, error) {
	return s.findPayment(func(p *models.Payment) bool { return sessionID != "" && p.StripeSessionID == sessionID })
}

func (s *MemoryStore) findPayment(match func(*models.Payment) bool) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) HasActivePayment(ctx context.Context, orderID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasActiveLocked(orderID), nil
}

func (s *MemoryStore) hasActiveLocked(orderID uint) bool {
	for _, p := range s.payments {
		if p.OrderID == orderID && p.Active() {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ActiveKey = models.ActiveKeyFor(p.Status)
	// Mirrors the idx_payments_active unique index.
	if p.ActiveKey != nil && s.hasActiveLocked(p.OrderID) {
		return ErrActiveConflict
	}
	p.ID = s.nextPaymentID
	s.nextPaymentID++
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryStore) SaveStripeCorrelation(ctx context.Context, paymentID uint, intentID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return ErrNotFound
	}
	if intentID != "" {
		p.StripePaymentIntentID = intentID
	}
	if sessionID != "" {
		p.StripeSessionID = sessionID
	}
	return nil
}

func (s *MemoryStore) CASPaymentStatus(ctx context.Context, paymentID uint, expect, next models.PaymentStatus, paidAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok || p.Status != expect {
		return false, nil
	}
	p.Status = next
	p.ActiveKey = models.ActiveKeyFor(next)
	if paidAt != nil {
		p.PaymentTime = paidAt
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) DeletePayment(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *MemoryStore) ListPayments(ctx context.Context) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Payment, 0, len(s.payments))
	for id := uint(1); id < s.nextPaymentID; id++ {
		if p, ok := s.payments[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordNotification(ctx context.Context, n *models.PaymentNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uint(len(s.notifications) + 1)
	n.CreatedAt = time.Now()
	s.notifications = append(s.notifications, *n)
	return nil
}

// Notifications returns a copy of the recorded notifications, oldest
// first.
func (s *MemoryStore) Notifications() []models.PaymentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PaymentNotification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
