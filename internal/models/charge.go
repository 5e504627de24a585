package models

import "github.com/shopspring/decimal"

// TransactionTypeRental is the transaction type stamped on every checkout charge.
const TransactionTypeRental = "rental_payment"

// ChargeAudit carries the pre-conversion amount and the applied rate so the
// payment service records what the renter originally agreed to pay.
type ChargeAudit struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	OriginalCurrency string          `json:"originalCurrency"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`
	WasConverted     bool            `json:"wasConverted"`
}

// ChargeRequest is one charge attempt against a confirmed booking. Amount and
// Currency are post-conversion values when a conversion applied.
type ChargeRequest struct {
	BookingID       string
	MethodID        string
	Amount          decimal.Decimal
	Currency        string
	TransactionType string
	Provider        string
	Audit           ChargeAudit
}

// LiveQuote is the raw result of a live currency conversion lookup.
type LiveQuote struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}
