package models

import (
	"strings"
	"time"
)

// PaymentPageConfig is the payment-page record embedded in a transaction
// snapshot. It carries everything redirect selection needs.
type PaymentPageConfig struct {
	RedirectURL    string `json:"redirect_url,omitempty"`
	StoreURL       string `json:"store_url,omitempty"`
	SuccessMessage string `json:"success_message,omitempty"`
	Slug           string `json:"slug,omitempty"`
	ShortCode      string `json:"short_code,omitempty"`
	PublicURL      string `json:"public_url,omitempty"`
	VendorSlug     string `json:"vendor_slug,omitempty"`
}

// TransactionSnapshot is the point-in-time read of a transaction returned by
// the backend status check. The service only ever reads it.
type TransactionSnapshot struct {
	Reference     string             `json:"reference"`
	Status        string             `json:"status"`
	IsPaid        bool               `json:"is_paid"`
	IsFailed      bool               `json:"is_failed"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	CustomerEmail string             `json:"customer_email,omitempty"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	Gateway       string             `json:"gateway,omitempty"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	FailedAt      *time.Time         `json:"failed_at,omitempty"`
	PaymentPage   *PaymentPageConfig `json:"payment_page,omitempty"`
}

// Outcome is the tri-state classification of a transaction at a point in time.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
)

// Terminal reports whether polling must stop for this outcome.
func (o Outcome) Terminal() bool {
	return o == OutcomePaid || o == OutcomeFailed
}

// Statuses the backend has historically used. Kept only as a fallback for
// snapshots that predate the is_paid/is_failed flags.
var (
	paidStatuses   = []string{"paid", "success", "successful", "completed"}
	failedStatuses = []string{"failed", "declined", "cancelled", "expired"}
)

// Classify derives the outcome of a snapshot. The structured flags are
// authoritative; string matching on the status field is legacy fallback only.
func Classify(s *TransactionSnapshot) Outcome {
	if s == nil {
		return OutcomePending
	}
	if s.IsPaid {
		return OutcomePaid
	}
	if s.IsFailed {
		return OutcomeFailed
	}

	status := strings.ToLower(strings.TrimSpace(s.Status))
	for _, v := range paidStatuses {
		if status == v {
			return OutcomePaid
		}
	}
	for _, v := range failedStatuses {
		if status == v {
			return OutcomeFailed
		}
	}
	return OutcomePending
}

// DestinationKind tags which redirect rule produced a destination.
type DestinationKind string

const (
	KindCustom      DestinationKind = "custom"
	KindStore       DestinationKind = "store"
	KindHomepage    DestinationKind = "homepage"
	KindPaymentPage DestinationKind = "payment-page"
)

// RedirectDestination is a resolved post-payment target.
type RedirectDestination struct {
	URL        string          `json:"url"`
	Label      string          `json:"label"`
	Kind       DestinationKind `json:"kind"`
	IsFallback bool            `json:"is_fallback,omitempty"`
}

// VerificationEvent is the payload published when a verification session
// reaches a terminal outcome.
type VerificationEvent struct {
	SessionID    string    `json:"session_id"`
	Reference    string    `json:"reference"`
	Outcome      Outcome   `json:"outcome"`
	AttemptsUsed int       `json:"attempts_used"`
	Gateway      string    `json:"gateway,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}
