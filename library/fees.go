package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Late fee schedule: the first week overdue accrues at a lower daily rate,
// every day after that at the higher rate, capped per book.
var (
	firstWeekDailyRate = decimal.NewFromFloat(0.50)
	lateDailyRate      = decimal.NewFromFloat(1.00)
	feeCap             = decimal.NewFromFloat(15.00)
)

const firstWeekDays = 7

// loanPeriod is how long a patron may keep a book before fees start.
const loanPeriod = 14 * 24 * time.Hour

// AssessFee computes the late fee for a single loan as of now. Whole days
// only: a loan is not overdue until a full 24 hours past its due date.
//
// Amounts stay in decimal form until a presentation or gateway boundary;
// round there, not here.
func AssessFee(dueDate, now time.Time) FeeAssessment {
	if !now.After(dueDate) {
		return FeeAssessment{FeeAmount: decimal.Zero, DaysOverdue: 0, Status: FeeStatusSuccess}
	}

	daysOverdue := int(now.Sub(dueDate) / (24 * time.Hour))
	if daysOverdue <= 0 {
		return FeeAssessment{FeeAmount: decimal.Zero, DaysOverdue: 0, Status: FeeStatusSuccess}
	}

	firstWeek := daysOverdue
	if firstWeek > firstWeekDays {
		firstWeek = firstWeekDays
	}
	remainder := daysOverdue - firstWeek

	fee := firstWeekDailyRate.Mul(decimal.NewFromInt(int64(firstWeek))).
		Add(lateDailyRate.Mul(decimal.NewFromInt(int64(remainder))))
	if fee.GreaterThan(feeCap) {
		fee = feeCap
	}

	return FeeAssessment{FeeAmount: fee, DaysOverdue: daysOverdue, Status: FeeStatusSuccess}
}

// validPatronID reports whether id is a well-formed 6-digit library card
// number. Format-only: it does not check registration.
func validPatronID(id string) bool {
	if len(id) != 6 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
