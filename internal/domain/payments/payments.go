// Package payments works out what an account owes a feis and records what
// it has paid, offline or through Stripe.
package payments

import (
	"time"

	"github.com/ifeis/server/internal/domain/errs"
)

// Fee line types.
const (
	FeeLate    = "LATE_REG"
	FeeAccount = "ACCT_FEE"
	FeeEvent   = "REG"
)

// Payment mediums and vendors.
const (
	MediumOffline = "offline"
	MediumCard    = "cc"
	VendorStripe  = "stripe"
)

// Currency is the only currency charged.
const Currency = "usd"

var ErrCannotAcceptPayments = errs.Invalid("This feis cannot accept payments yet.")

// Fee is one debit line. Amounts are in cents.
type Fee struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      int64  `json:"amt"`
	EventID     string `json:"event,omitempty"`
	PersonID    string `json:"person,omitempty"`
}

type FeisRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Payment struct {
	ID          string    `json:"id"`
	FeisID      string    `json:"feis_id"`
	AccountID   string    `json:"account_id"`
	Amount      int64     `json:"amt"`
	Description string    `json:"description,omitempty"`
	IFeisFee    int64     `json:"ifeis_fee"`
	Medium      string    `json:"medium"`
	Vendor      string    `json:"vendor,omitempty"`
	VendorID    string    `json:"vnd_id,omitempty"`
	Livemode    bool      `json:"livemode"`
	Paid        bool      `json:"paid"`
	Currency    string    `json:"currency"`
	Feis        *FeisRef  `json:"feis,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Balance is an outstanding amount owed to one feis.
type Balance struct {
	Feis        FeisRef `json:"feis"`
	Credits     int64   `json:"credits"`
	Balance     int64   `json:"balance"`
	MaxDebits   int64   `json:"max_debits"`
	NoMaxDebits int64   `json:"no_max_debits"`
}

type Summary struct {
	TotalFees    int64 `json:"total_fees"`
	TotalCharges int64 `json:"total_charges"`
}

// Entry is one active participation billed to an account.
type Entry struct {
	PersonID       string
	EventID        string
	EventName      string
	Fee            int64
	ExcludeFromMax bool
}

// Ledger gathers what an account's debits at one feis are computed from.
type Ledger struct {
	Feis         FeisRef
	RegLate      *time.Time
	LateFee      *int64
	AccountFee   *int64
	AccountMax   *int64
	Credits      int64
	FirstPayment *time.Time
	Entries      []Entry
}

// Payee is what a card charge needs to know about the feis and the payer.
type Payee struct {
	FeisName    string
	AccessToken string
	InviteFee   int64
	FeesPaid    int64
	Email       string
	FName       string
	LName       string
}

// ChargeRequest is a card charge on behalf of a feis. Amounts are in cents.
type ChargeRequest struct {
	AccessToken         string
	Amount              int64
	ApplicationFee      int64
	Source              string
	Currency            string
	StatementDescriptor string
	Description         string
	ReceiptEmail        string
	Metadata            map[string]string
}

type Charge struct {
	ID       string
	Paid     bool
	Livemode bool
	Currency string
}
