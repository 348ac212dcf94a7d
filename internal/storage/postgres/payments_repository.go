package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/payments"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository implements payments.Repository.
type PaymentRepository struct {
	base
}

const paymentColumns = `
	py.id, py.feis_id, py.account_id, py.amt, py.description, py.ifeis_fee, py.medium,
	py.vendor, py.vnd_id, py.livemode, py.paid, py.currency, py.created_at`

func paymentDest(p *payments.Payment) []any {
	return []any{
		&p.ID, &p.FeisID, &p.AccountID, &p.Amount, &p.Description, &p.IFeisFee, &p.Medium,
		&p.Vendor, &p.VendorID, &p.Livemode, &p.Paid, &p.Currency, &p.CreatedAt,
	}
}

func collectPayments(rows pgx.Rows, withFeis bool) ([]payments.Payment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (payments.Payment, error) {
		var p payments.Payment
		dest := paymentDest(&p)
		var ref payments.FeisRef
		if withFeis {
			dest = append(dest, &ref.ID, &ref.Name, &ref.Slug)
		}
		if err := row.Scan(dest...); err != nil {
			return p, err
		}
		if withFeis {
			p.Feis = &ref
		}
		return p, nil
	})
}

// ledgerQuery loads the feis terms and the paid credits of account $1. The
// entries are loaded separately.
const ledgerQuery = `
	SELECT f.id, f.name, f.slug, f.dt_reg_late, f.late_fee, f.acct_fee, f.acct_max,
	       COALESCE(pay.credits, 0), pay.first_payment
	  FROM feiseanna f
	  LEFT JOIN LATERAL (
		SELECT sum(py.amt)::bigint AS credits, min(py.created_at) AS first_payment
		  FROM payments py
		 WHERE py.feis_id = f.id AND py.account_id = $1 AND py.paid
	  ) pay ON true`

func scanLedger(row pgx.Row) (*payments.Ledger, error) {
	var l payments.Ledger
	err := row.Scan(&l.Feis.ID, &l.Feis.Name, &l.Feis.Slug, &l.RegLate, &l.LateFee, &l.AccountFee, &l.AccountMax,
		&l.Credits, &l.FirstPayment)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PaymentRepository) Ledger(ctx context.Context, feisID, accountID string) (*payments.Ledger, error) {
	l, err := scanLedger(r.queryer().QueryRow(ctx, ledgerQuery+`
		 WHERE f.id = $2
		   AND EXISTS (SELECT 1 FROM saved sv WHERE sv.feis_id = f.id AND sv.account_id = $1)`,
		accountID, feisID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if l.Entries, err = r.entries(ctx, feisID, accountID); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *PaymentRepository) Ledgers(ctx context.Context, accountID string) ([]payments.Ledger, error) {
	rows, err := r.queryer().Query(ctx, ledgerQuery+`
		 WHERE EXISTS (
			SELECT 1
			  FROM participants pa
			  JOIN events e ON e.id = pa.event_id AND NOT e.inactive
			  JOIN persons p ON p.id = pa.person_id
			 WHERE e.feis_id = f.id AND COALESCE(p.account_id, p.id) = $1
		 )
		 ORDER BY f.dt_start DESC NULLS LAST, f.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	ledgers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payments.Ledger, error) {
		l, err := scanLedger(row)
		if err != nil {
			return payments.Ledger{}, err
		}
		return *l, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range ledgers {
		if ledgers[i].Entries, err = r.entries(ctx, ledgers[i].Feis.ID, accountID); err != nil {
			return nil, err
		}
	}
	return ledgers, nil
}

// entries lists active participations billed to the account. An event
// without its own fee falls back to the feis event fee.
func (r *PaymentRepository) entries(ctx context.Context, feisID, accountID string) ([]payments.Entry, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT pa.person_id, e.id, e.name, COALESCE(e.fee, f.event_fee, 0), e.exclude_from_max
		  FROM participants pa
		  JOIN events e ON e.id = pa.event_id
		  JOIN feiseanna f ON f.id = e.feis_id
		  JOIN persons p ON p.id = pa.person_id
		 WHERE e.feis_id = $1
		   AND NOT e.inactive
		   AND COALESCE(p.account_id, p.id) = $2
		 ORDER BY p.fname, p.lname, e.name, e.id`, feisID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list billed entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (payments.Entry, error) {
		var e payments.Entry
		err := row.Scan(&e.PersonID, &e.EventID, &e.EventName, &e.Fee, &e.ExcludeFromMax)
		return e, err
	})
}

func (r *PaymentRepository) Credits(ctx context.Context, feisID, accountID string) ([]payments.Payment, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+paymentColumns+`
		  FROM payments py
		 WHERE py.feis_id = $1 AND py.account_id = $2
		 ORDER BY py.created_at, py.id`, feisID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	return collectPayments(rows, false)
}

func (r *PaymentRepository) Record(ctx context.Context, p payments.Payment) (*payments.Payment, error) {
	var saved payments.Payment
	err := r.queryer().QueryRow(ctx, `
		INSERT INTO payments AS py (id, feis_id, account_id, amt, description, ifeis_fee, medium,
		                            vendor, vnd_id, livemode, paid, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+paymentColumns,
		p.ID, p.FeisID, p.AccountID, p.Amount, p.Description, p.IFeisFee, p.Medium,
		p.Vendor, p.VendorID, p.Livemode, p.Paid, p.Currency).Scan(paymentDest(&saved)...)
	if isViolation(err, codeForeignKeyViolation, "payments_feis_id_fkey") {
		return nil, feiseanna.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &saved, nil
}

func (r *PaymentRepository) Recent(ctx context.Context, accountID string) ([]payments.Payment, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+paymentColumns+`, f.id, f.name, f.slug
		  FROM payments py
		  JOIN feiseanna f ON f.id = py.feis_id
		 WHERE py.account_id = $1
		 ORDER BY py.created_at DESC, py.id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list recent payments: %w", err)
	}
	return collectPayments(rows, true)
}

func (r *PaymentRepository) Summary(ctx context.Context, feisID string) (*payments.Summary, error) {
	var s payments.Summary
	err := r.queryer().QueryRow(ctx, `
		SELECT COALESCE(sum(ifeis_fee), 0)::bigint, COALESCE(sum(amt), 0)::bigint
		  FROM payments
		 WHERE feis_id = $1 AND paid`, feisID).Scan(&s.TotalFees, &s.TotalCharges)
	if err != nil {
		return nil, fmt.Errorf("summarise payments: %w", err)
	}
	return &s, nil
}

func (r *PaymentRepository) Payee(ctx context.Context, feisID, accountID string) (*payments.Payee, error) {
	var p payments.Payee
	err := r.queryer().QueryRow(ctx, `
		SELECT f.name, sa.access_token, COALESCE(i.fee, 0),
		       (SELECT COALESCE(sum(py.ifeis_fee), 0)::bigint FROM payments py WHERE py.feis_id = f.id AND py.paid),
		       COALESCE(a.email, ''), COALESCE(a.fname, ''), COALESCE(a.lname, '')
		  FROM feiseanna f
		  JOIN stripe_accounts sa ON sa.feis_id = f.id
		  LEFT JOIN invitations i ON i.id = f.invite_id
		  LEFT JOIN persons a ON a.id = $2
		 WHERE f.id = $1`, feisID, accountID).Scan(&p.FeisName, &p.AccessToken, &p.InviteFee, &p.FeesPaid, &p.Email, &p.FName, &p.LName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payee: %w", err)
	}
	return &p, nil
}
