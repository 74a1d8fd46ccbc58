// Package impact holds the pure aggregation and unit-conversion functions
// behind the dashboard totals and the offline energy estimate.
package impact

import (
	"math"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
)

// Unit-conversion factors. Changing any of these breaks numeric parity with
// previously recorded figures.
const (
	Co2PerTreeKg   = 22.0
	Co2PerCarKg    = 4000.0
	KWhPerHome     = 30.0
	FallbackKWhKg  = 2.1
	FallbackCo2Kg  = 0.5
	EnergyPriceUSD = 0.15
)

// Totals folds every entry into field-wise sums. An empty log yields zeros.
func Totals(entries []domain.WasteEntry) domain.TotalStats {
	var s domain.TotalStats
	for i := range entries {
		s.TotalWaste += entries[i].TotalWeight
		s.TotalEnergy += entries[i].EnergyGenerated
		s.TotalCo2Avoided += entries[i].Co2Avoided
		s.TotalSavings += entries[i].CostSavings
	}
	return s
}

// TreesEquivalent is the number of trees absorbing co2Kg in a year, rounded half up.
func TreesEquivalent(co2Kg float64) int {
	return roundHalfUp(co2Kg / Co2PerTreeKg)
}

// CarsEquivalent is the fraction of one car's yearly emissions that co2Kg represents.
func CarsEquivalent(co2Kg float64) float64 {
	return co2Kg / Co2PerCarKg
}

// HomesPowered is the number of homes energyKWh covers, rounded half up.
func HomesPowered(energyKWh float64) int {
	return roundHalfUp(energyKWh / KWhPerHome)
}

// EquivalentsFor converts aggregate totals into everyday units.
func EquivalentsFor(s domain.TotalStats) domain.Equivalents {
	return domain.Equivalents{
		TreesEquivalent: TreesEquivalent(s.TotalCo2Avoided),
		CarsEquivalent:  CarsEquivalent(s.TotalCo2Avoided),
		HomesPowered:    HomesPowered(s.TotalEnergy),
	}
}

// Summary bundles totals, equivalents and the entry count.
func Summary(entries []domain.WasteEntry) domain.ImpactSummary {
	totals := Totals(entries)
	return domain.ImpactSummary{
		Totals:      totals,
		Equivalents: EquivalentsFor(totals),
		EntryCount:  len(entries),
	}
}

// FallbackEstimate is the linear estimate used when the simulation is unreachable.
func FallbackEstimate(totalWasteKg float64) domain.Estimate {
	energy := totalWasteKg * FallbackKWhKg
	return domain.Estimate{
		EnergyGenerated: energy,
		Co2Avoided:      totalWasteKg * FallbackCo2Kg,
		CostSavings:     energy * EnergyPriceUSD,
	}
}

// roundHalfUp matches the presentation's rounding: halves go toward +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
