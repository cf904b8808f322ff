// internal/services/loan_engine.go
package services

import (
	"math"

	"github.com/zenwallet/loan-origination/internal/config"
)

// LoanEngine prices personal loan simulations. All rates are monthly
// percentages unless noted otherwise.
type LoanEngine struct {
	cfg *config.LoanConfig
}

type LoanSimulation struct {
	Amount         float64 `json:"amount"`
	Installments   int     `json:"installments"`
	InterestRate   float64 `json:"interest_rate"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalAmount    float64 `json:"total_amount"`
	TotalInterest  float64 `json:"total_interest"`
	IOF            float64 `json:"iof"`
	CET            float64 `json:"cet"`
}

type AffordabilityResult struct {
	Affordable      bool    `json:"affordable"`
	CommitmentRatio float64 `json:"commitment_ratio"`
	MaxPayment      float64 `json:"max_payment"`
}

type ScheduleEntry struct {
	Number    int     `json:"number"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

func NewLoanEngine(cfg *config.LoanConfig) *LoanEngine {
	return &LoanEngine{cfg: cfg}
}

// Simulate prices a loan for the requested amount and term. Out-of-bounds
// inputs are clamped rather than rejected, so the caller always gets a
// usable offer. Passing monthlyIncome enables risk-based rate adjustments.
func (e *LoanEngine) Simulate(amount float64, installments int, monthlyIncome float64) LoanSimulation {
	clampedAmount := math.Max(e.cfg.MinAmount, math.Min(e.cfg.MaxAmount, amount))
	clampedInstallments := installments
	if clampedInstallments < e.cfg.MinInstallments {
		clampedInstallments = e.cfg.MinInstallments
	}
	if clampedInstallments > e.cfg.MaxInstallments {
		clampedInstallments = e.cfg.MaxInstallments
	}

	rate := e.cfg.BaseRate / 100

	// Risk-based pricing adjustments
	if monthlyIncome > 0 {
		commitmentRatio := clampedAmount / (monthlyIncome * float64(clampedInstallments))
		if commitmentRatio > 0.5 {
			rate += 0.005
		}
		if commitmentRatio < 0.2 {
			rate -= 0.003
		}
		if monthlyIncome > 10000 {
			rate -= 0.002
		}
	}

	// Longer terms carry slightly higher rates
	if clampedInstallments > 24 {
		rate += 0.003
	}
	if clampedInstallments > 36 {
		rate += 0.002
	}

	// Adjustments never price below the regulatory floor
	if floor := e.cfg.FloorRate / 100; rate < floor {
		rate = floor
	}

	monthlyPayment := CalculatePMT(clampedAmount, rate, clampedInstallments)
	totalAmount := monthlyPayment * float64(clampedInstallments)
	totalInterest := totalAmount - clampedAmount

	// IOF: 0.38% flat plus 0.0082% per day, capped at 365 days
	avgDays := float64(clampedInstallments) * 30 / 2
	iof := clampedAmount*0.0038 + clampedAmount*0.000082*math.Min(avgDays, 365)

	// CET annualizes the effective monthly cost including IOF
	monthlyEffective := rate + (iof/clampedAmount)/float64(clampedInstallments)
	cet := (math.Pow(1+monthlyEffective, 12) - 1) * 100

	return LoanSimulation{
		Amount:         clampedAmount,
		Installments:   clampedInstallments,
		InterestRate:   rate * 100,
		MonthlyPayment: round2(monthlyPayment),
		TotalAmount:    round2(totalAmount),
		TotalInterest:  round2(totalInterest),
		IOF:            round2(iof),
		CET:            round2(cet),
	}
}

// CheckAffordability reports whether a payment fits within the 35% income
// commitment ceiling.
func (e *LoanEngine) CheckAffordability(monthlyPayment, monthlyIncome float64) AffordabilityResult {
	const maxCommitment = 0.35

	if monthlyIncome <= 0 {
		return AffordabilityResult{Affordable: false, CommitmentRatio: 0, MaxPayment: 0}
	}

	commitmentRatio := monthlyPayment / monthlyIncome
	return AffordabilityResult{
		Affordable:      commitmentRatio <= maxCommitment,
		CommitmentRatio: round2(commitmentRatio * 100),
		MaxPayment:      round2(monthlyIncome * maxCommitment),
	}
}

// GenerateSchedule produces the full price-table amortization plan.
func (e *LoanEngine) GenerateSchedule(amount, rate float64, installments int) []ScheduleEntry {
	monthlyRate := rate / 100
	pmt := CalculatePMT(amount, monthlyRate, installments)
	balance := amount

	schedule := make([]ScheduleEntry, 0, installments)
	for i := 1; i <= installments; i++ {
		interest := balance * monthlyRate
		principal := pmt - interest
		balance -= principal

		schedule = append(schedule, ScheduleEntry{
			Number:    i,
			Payment:   round2(pmt),
			Principal: round2(principal),
			Interest:  round2(interest),
			Balance:   math.Max(0, round2(balance)),
		})
	}
	return schedule
}

// CalculatePMT is the standard annuity payment formula. monthlyRate is a
// decimal (1.99% = 0.0199).
func CalculatePMT(principal, monthlyRate float64, periods int) float64 {
	if monthlyRate == 0 {
		return principal / float64(periods)
	}
	factor := math.Pow(1+monthlyRate, float64(periods))
	return principal * monthlyRate * factor / (factor - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
