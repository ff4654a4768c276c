// Package gatewaytest provides a deterministic in-memory gateway.Client.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
)

// ErrUnavailable is returned by Fake when a failure is injected.
var ErrUnavailable = errors.New("gateway unavailable")

// Fake records created orders and serves them back. Payments are registered
// with Capture or SetPayment.
type Fake struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]*gateway.Order
	payments map[string]*gateway.Payment

	Requests []gateway.OrderRequest

	FailCreate       bool
	FailFetchOrder   bool
	FailFetchPayment bool
	FetchPaymentHits int
}

var _ gateway.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		orders:   make(map[string]*gateway.Order),
		payments: make(map[string]*gateway.Payment),
	}
}

func (f *Fake) CreateOrder(_ context.Context, req *gateway.OrderRequest) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return nil, ErrUnavailable
	}

	f.seq++
	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	o := &gateway.Order{
		ID:       fmt.Sprintf("order_%06d", f.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    notes,
	}
	f.orders[o.ID] = o
	f.Requests = append(f.Requests, *req)

	cp := *o
	return &cp, nil
}

func (f *Fake) FetchOrder(_ context.Context, orderID string) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFetchOrder {
		return nil, ErrUnavailable
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s does not exist", orderID)
	}
	cp := *o
	return &cp, nil
}

func (f *Fake) FetchPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchPaymentHits++
	if f.FailFetchPayment {
		return nil, ErrUnavailable
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s does not exist", paymentID)
	}
	cp := *p
	return &cp, nil
}

// SetPayment registers a payment for orderID with the given status.
func (f *Fake) SetPayment(paymentID, orderID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var amount int64
	if o, ok := f.orders[orderID]; ok {
		amount = o.Amount
	}
	f.payments[paymentID] = &gateway.Payment{
		ID:       paymentID,
		OrderID:  orderID,
		Status:   status,
		Amount:   amount,
		Currency: "INR",
	}
}

// Capture registers a captured payment for orderID.
func (f *Fake) Capture(paymentID, orderID string) {
	f.SetPayment(paymentID, orderID, models.PaymentStatusCaptured)
}

// PutOrder registers an order that was not created through CreateOrder.
func (f *Fake) PutOrder(o *gateway.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.orders[o.ID] = &cp
}
