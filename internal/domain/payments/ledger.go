package payments

import "time"

// Debits lists the fee lines of a ledger. The late fee applies when the
// first payment came after the late date, or when nothing has been paid and
// the late date has passed.
func Debits(l Ledger, now time.Time) []Fee {
	fees := []Fee{}
	if lateFeeApplies(l, now) {
		fees = append(fees, Fee{Type: FeeLate, Description: "Late Fee", Amount: *l.LateFee})
	}
	if l.AccountFee != nil && *l.AccountFee > 0 {
		fees = append(fees, Fee{Type: FeeAccount, Description: "Family Fee", Amount: *l.AccountFee})
	}
	for _, e := range l.Entries {
		fees = append(fees, Fee{
			Type:        FeeEvent,
			Description: e.EventName,
			Amount:      e.Fee,
			EventID:     e.EventID,
			PersonID:    e.PersonID,
		})
	}
	return fees
}

// Outstanding is the balance of a ledger. Event fees counted towards the
// family maximum are capped by it; the account fee and excluded events are
// not. An unpaid account past the late date also owes the late fee.
func Outstanding(l Ledger, now time.Time) Balance {
	var capped, uncapped int64
	for _, e := range l.Entries {
		if e.ExcludeFromMax {
			uncapped += e.Fee
		} else {
			capped += e.Fee
		}
	}
	if l.AccountMax != nil && capped > *l.AccountMax {
		capped = *l.AccountMax
	}
	if l.AccountFee != nil {
		uncapped += *l.AccountFee
	}

	b := Balance{Feis: l.Feis, Credits: l.Credits, MaxDebits: capped, NoMaxDebits: uncapped}
	b.Balance = capped + uncapped - l.Credits
	if l.Credits <= 0 && pastLate(l, now) && l.LateFee != nil {
		b.NoMaxDebits += *l.LateFee
		b.Balance += *l.LateFee
	}
	return b
}

// ApplicationFee is the part of a charge kept by the platform: whatever of
// the invitation fee is still unpaid, up to the charge itself.
func ApplicationFee(amount, inviteFee, feesPaid int64) int64 {
	if feesPaid >= inviteFee {
		return 0
	}
	return min(amount, inviteFee-feesPaid)
}

// StatementDescriptor is the text on the card statement, cut to the 22
// characters card networks allow.
func StatementDescriptor(feisName string) string {
	d := []rune("iFeis: " + feisName)
	if len(d) > 22 {
		d = d[:22]
	}
	return string(d)
}

func lateFeeApplies(l Ledger, now time.Time) bool {
	if l.LateFee == nil || *l.LateFee == 0 || l.RegLate == nil {
		return false
	}
	if l.Credits > 0 {
		return l.FirstPayment != nil && l.RegLate.Before(*l.FirstPayment)
	}
	return pastLate(l, now)
}

func pastLate(l Ledger, now time.Time) bool {
	return l.RegLate != nil && l.RegLate.Before(now)
}
