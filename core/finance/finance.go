// Package finance holds investment arithmetic shared by price imputation and
// investment appraisal.
package finance

import "math"

// CapitalRecoveryFactor annualises a capital cost over an asset lifetime at
// the given discount rate.
func CapitalRecoveryFactor(lifetime int, discountRate float64) float64 {
	if lifetime == 0 {
		return 0
	}
	if discountRate == 0 {
		return 1 / float64(lifetime)
	}
	factor := math.Pow(1+discountRate, float64(lifetime))
	return discountRate * factor / (factor - 1)
}

// AnnualCapitalCost is the annualised capital cost per unit of capacity.
func AnnualCapitalCost(capitalCost float64, lifetime int, discountRate float64) float64 {
	return capitalCost * CapitalRecoveryFactor(lifetime, discountRate)
}

// ProfitabilityIndex is total annualised surplus divided by annualised fixed
// cost. Surpluses and activities are parallel slices per time slice.
func ProfitabilityIndex(capacity, annualFixedCost float64, activity, surplusPerAct []float64) float64 {
	if len(activity) == 0 {
		return 0
	}
	var surplus float64
	for i, act := range activity {
		surplus += act * surplusPerAct[i]
	}
	return surplus / (annualFixedCost * capacity)
}

// LCOX is total annualised cost divided by total annual activity.
func LCOX(capacity, annualFixedCost float64, activity, costPerAct []float64) float64 {
	var totalCost, totalAct float64
	for i, act := range activity {
		totalCost += act * costPerAct[i]
		totalAct += act
	}
	return (annualFixedCost*capacity + totalCost) / totalAct
}
