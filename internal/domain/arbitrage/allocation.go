package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// LegAmount es el importe a apostar en una pata.
type LegAmount struct {
	Leg    domain.StakeLeg
	Amount decimal.Decimal
}

// Allocation reparte un bankroll entre las patas de una señal.
type Allocation struct {
	Legs   []LegAmount
	Staked decimal.Decimal
	// Payout es el cobro si resuelve cualquier outcome cubierto: stake / probabilidad.
	Payout decimal.Decimal
	Profit decimal.Decimal
}

// Allocate convierte las fracciones de stake en importes redondeados a céntimos.
func Allocate(sig domain.ArbitrageSignal, bankroll decimal.Decimal) Allocation {
	var a Allocation
	if !sig.Opportunity || bankroll.Sign() <= 0 {
		return a
	}

	a.Staked = decimal.Zero
	for _, leg := range sig.Outcomes {
		amount := bankroll.Mul(decimal.NewFromFloat(leg.StakeFraction)).Round(2)
		a.Legs = append(a.Legs, LegAmount{Leg: leg, Amount: amount})
		a.Staked = a.Staked.Add(amount)
	}

	total := 1 - sig.Margin
	if total > 0 {
		a.Payout = bankroll.Div(decimal.NewFromFloat(total)).Round(2)
		a.Profit = a.Payout.Sub(a.Staked)
	}
	return a
}
