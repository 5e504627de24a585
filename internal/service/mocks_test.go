package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// fakeBookingService records booking calls in order and fails the items it is
// scripted to fail.
type fakeBookingService struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]*models.BookingError
	nextID  int
}

func newFakeBookingService() *fakeBookingService {
	return &fakeBookingService{failFor: make(map[string]*models.BookingError)}
}

func (f *fakeBookingService) CreateBooking(_ context.Context, _ models.Credentials, _ string, item models.CartItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, item.ID)
	if berr, ok := f.failFor[item.ID]; ok {
		return "", berr
	}
	f.nextID++
	return fmt.Sprintf("bk-%03d", f.nextID), nil
}

func (f *fakeBookingService) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakePaymentService records registrations and charges.
type fakePaymentService struct {
	mu           sync.Mutex
	registerErr  error
	registers    int
	charges      []models.ChargeRequest
	failBookings map[string]*models.PaymentError
	nextTx       int
}

func newFakePaymentService() *fakePaymentService {
	return &fakePaymentService{failBookings: make(map[string]*models.PaymentError)}
}

func (f *fakePaymentService) RegisterMethod(_ context.Context, _ models.Credentials, _ models.PaymentMethodSpec, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return fmt.Sprintf("pm-%03d", f.registers), nil
}

func (f *fakePaymentService) Charge(_ context.Context, _ models.Credentials, charge models.ChargeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, charge)
	if perr, ok := f.failBookings[charge.BookingID]; ok {
		return "", perr
	}
	f.nextTx++
	return fmt.Sprintf("tx-%03d", f.nextTx), nil
}

func (f *fakePaymentService) chargeCalls() []models.ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChargeRequest(nil), f.charges...)
}

func (f *fakePaymentService) registerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers
}

// fakeRateService returns one scripted quote or error.
type fakeRateService struct {
	mu    sync.Mutex
	calls int
	quote models.LiveQuote
	err   error
}

func (f *fakeRateService) Convert(_ context.Context, _ models.Credentials, _, _ string, _ decimal.Decimal) (models.LiveQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.LiveQuote{}, f.err
	}
	return f.quote, nil
}

func (f *fakeRateService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRateCache is a map-backed RateCache.
type fakeRateCache struct {
	mu    sync.Mutex
	rates map[string]decimal.Decimal
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{rates: make(map[string]decimal.Decimal)}
}

func (f *fakeRateCache) GetRate(_ context.Context, from, to string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rate, ok := f.rates[from+":"+to]
	return rate, ok, nil
}

func (f *fakeRateCache) SetRate(_ context.Context, from, to string, rate decimal.Decimal, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[from+":"+to] = rate
	return nil
}

func newTestOrchestrator(bookings *fakeBookingService, payments *fakePaymentService, rates *fakeRateService) *Orchestrator {
	return NewOrchestrator(
		bookings,
		payments,
		NewProvisioner(payments),
		NewCurrencyResolver(rates, nil, 0),
		nil,
		NopPacer{},
		0, 0,
	)
}

func makeItems(owner string, n int) []models.CartItem {
	items := make([]models.CartItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, models.CartItem{
			ID:           fmt.Sprintf("item-%d", i),
			OwnerID:      owner,
			ProductID:    fmt.Sprintf("prod-%d", i),
			StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
			PickupMethod: models.PickupMethodSelf,
			TotalAmount:  decimal.NewFromInt(int64(100 * i)),
			Currency:     "USD",
		})
	}
	return items
}
