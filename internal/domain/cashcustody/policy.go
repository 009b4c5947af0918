package cashcustody

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AuthorizationDecision is the outcome of a limit check. A refusal carries a
// reason suitable for display; it is not an error.
type AuthorizationDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() AuthorizationDecision {
	return AuthorizationDecision{Allowed: true}
}

func refuse(format string, args ...any) AuthorizationDecision {
	return AuthorizationDecision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// WaiverDecision is the outcome of a penalty waiver check.
type WaiverDecision struct {
	CanWaive         bool   `json:"can_waive"`
	RequiresApproval bool   `json:"requires_approval"`
	Reason           string `json:"reason,omitempty"`
}

// ActivityTotals is a count and sum over a period.
type ActivityTotals struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// EvaluateApproval checks a loan approval against the approval ceiling and
// the number of successful approvals already made today.
func (l *CollectorLimits) EvaluateApproval(amount decimal.Decimal, approvalsToday int64) AuthorizationDecision {
	if amount.GreaterThan(l.MaxApprovalAmount) {
		return refuse("Amount exceeds your approval limit of %s", FormatPeso(l.MaxApprovalAmount))
	}
	if approvalsToday >= int64(l.MaxApprovalPerDay) {
		return refuse("You have reached your daily approval limit of %d applications", l.MaxApprovalPerDay)
	}
	return allow()
}

// EvaluateDisbursement checks a disbursement against the single, daily and
// monthly lending caps. Totals come from loan disbursement records and are
// independent of the collector's cash on hand.
func (l *CollectorLimits) EvaluateDisbursement(amount, disbursedToday, disbursedThisMonth decimal.Decimal) AuthorizationDecision {
	if amount.GreaterThan(l.MaxDisbursementAmount) {
		return refuse("Amount exceeds your disbursement limit of %s", FormatPeso(l.MaxDisbursementAmount))
	}
	if disbursedToday.Add(amount).GreaterThan(l.DailyDisbursementLimit) {
		return refuse("This would exceed your daily disbursement limit of %s", FormatPeso(l.DailyDisbursementLimit))
	}
	if disbursedThisMonth.Add(amount).GreaterThan(l.MonthlyDisbursementLimit) {
		return refuse("This would exceed your monthly disbursement limit of %s", FormatPeso(l.MonthlyDisbursementLimit))
	}
	return allow()
}

// EvaluateWaiver checks a penalty waiver. Waivers within the amount and
// percentage caps but above the manager threshold are allowed pending approval.
func (l *CollectorLimits) EvaluateWaiver(penalty, waiver decimal.Decimal) WaiverDecision {
	if !waiver.IsPositive() {
		return WaiverDecision{Reason: "Waiver amount must be greater than zero"}
	}
	if waiver.GreaterThan(penalty) {
		return WaiverDecision{Reason: "Waiver amount exceeds the penalty amount"}
	}
	if waiver.GreaterThan(l.MaxPenaltyWaiverAmount) {
		return WaiverDecision{Reason: fmt.Sprintf("Waiver amount exceeds your limit of %s", FormatPeso(l.MaxPenaltyWaiverAmount))}
	}

	percent := waiver.Div(penalty).Mul(decimal.NewFromInt(100))
	if percent.GreaterThan(l.MaxPenaltyWaiverPercent) {
		return WaiverDecision{Reason: fmt.Sprintf("Waiver percentage (%s%%) exceeds your limit of %s%%",
			percent.StringFixed(2), l.MaxPenaltyWaiverPercent.String())}
	}
	if waiver.GreaterThan(l.RequiresManagerApprovalAbove) {
		return WaiverDecision{CanWaive: true, RequiresApproval: true, Reason: "Waiver requires manager approval"}
	}
	return WaiverDecision{CanWaive: true}
}

// LimitsUsage summarises today's activity against a collector's limits.
type LimitsUsage struct {
	Approvals              ActivityTotals  `json:"approvals"`
	Disbursements          ActivityTotals  `json:"disbursements"`
	Collections            ActivityTotals  `json:"collections"`
	RemainingApprovals     int64           `json:"remaining_approvals"`
	RemainingDisbursements decimal.Decimal `json:"remaining_disbursements"`
}

// Usage derives the remaining allowances from today's totals.
func (l *CollectorLimits) Usage(approvals, disbursements, collections ActivityTotals) LimitsUsage {
	remainingApprovals := int64(l.MaxApprovalPerDay) - approvals.Count
	if remainingApprovals < 0 {
		remainingApprovals = 0
	}
	remaining := l.DailyDisbursementLimit.Sub(disbursements.Total)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return LimitsUsage{
		Approvals:              approvals,
		Disbursements:          disbursements,
		Collections:            collections,
		RemainingApprovals:     remainingApprovals,
		RemainingDisbursements: remaining,
	}
}
