package payment

import "time"

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Failed    Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

type Plan struct {
	ID       int    `json:"id" db:"plan_id"`
	Name     string `json:"name" db:"name"`
	Days     int    `json:"days" db:"days"`
	Price    int64  `json:"price" db:"price"`
	Currency string `json:"-" db:"currency"`
	IsActive bool   `json:"isActive" db:"is_active"`
}

// Order is a single purchase attempt. Its code is the correlation key shared
// by the purchaser, the payment provider and the capture webhook. The amount
// and currency are snapshots of the plan price at purchase time.
type Order struct {
	Code        string     `json:"orderCode" db:"order_code"`
	UserID      string     `json:"userId" db:"user_id"`
	PlanID      int        `json:"planId" db:"plan_id"`
	Amount      int64      `json:"amount" db:"amount"`
	Currency    string     `json:"currency" db:"currency"`
	Provider    string     `json:"provider" db:"provider"`
	ProviderID  string     `json:"-" db:"provider_id"`
	Status      Status     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	CompletedAt *time.Time `json:"completedAt" db:"completed_at"`
}

type OrderNew struct {
	PlanID   int    `json:"planId" validate:"required"`
	Provider string `json:"provider" validate:"omitempty,oneof=stripe paypal"`
}

type CheckoutResponse struct {
	PaymentURL string `json:"paymentUrl"`
	OrderCode  string `json:"orderCode"`
}

// Verification is the answer of the order verification endpoint: the current
// order status together with the purchaser's resulting VIP projection.
type Verification struct {
	Status       Status     `json:"status"`
	CompletedAt  *time.Time `json:"completedAt"`
	IsVip        bool       `json:"isVip"`
	VipExpiresAt *time.Time `json:"vipExpiresAt"`
}

type VIPStatus struct {
	IsVip         bool       `json:"isVip"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	DaysRemaining *int       `json:"daysRemaining"`
}
