package impact

import (
	"fmt"
	"sort"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
)

// EnergyPotential is kg * energy content * method efficiency, summed over the mix.
// Unknown waste types contribute nothing.
func EnergyPotential(waste map[domain.WasteTypeID]float64, method domain.ConversionMethod) float64 {
	var total float64
	for id, kg := range waste {
		wt, ok := domain.Catalog[id]
		if !ok {
			continue
		}
		total += kg * wt.EnergyKWhPerKg * wt.ConversionEfficiency[method]
	}
	return total
}

// BestMethod picks the conversion method with the highest energy potential for
// the mix. Ties resolve to the earlier method in domain.ConversionMethods; an
// empty mix yields biogas digestion.
func BestMethod(waste map[domain.WasteTypeID]float64) domain.ConversionMethod {
	best := domain.BiogasDigestion
	bestKWh := 0.0
	for _, m := range domain.ConversionMethods {
		if kwh := EnergyPotential(waste, m); kwh > bestKWh {
			best, bestKWh = m, kwh
		}
	}
	return best
}

// DecompositionCo2 is the CO2 the mix would emit if left to decompose.
func DecompositionCo2(waste map[domain.WasteTypeID]float64) float64 {
	var total float64
	for id, kg := range waste {
		if wt, ok := domain.Catalog[id]; ok {
			total += kg * wt.Co2KgPerKg
		}
	}
	return total
}

// Recommendations produces the canned advice attached to an analysis.
func Recommendations(waste map[domain.WasteTypeID]float64, method domain.ConversionMethod, userType domain.UserType) []string {
	recs := []string{
		fmt.Sprintf("Use %s for this waste mix (%.1f kWh potential per day).", methodLabel(method), EnergyPotential(waste, method)),
	}

	if dominant, ok := dominantType(waste); ok {
		recs = append(recs, fmt.Sprintf("%s makes up most of your waste; keep it separated to preserve conversion efficiency.", domain.Catalog[dominant].Name))
	}

	if wet := moistureShare(waste); wet > 0.6 {
		recs = append(recs, "High moisture content: anaerobic digestion will outperform combustion-based methods.")
	} else if wet > 0 && wet < 0.4 {
		recs = append(recs, "Low moisture content: dry the material further to improve pyrolysis yield.")
	}

	switch userType {
	case domain.UserTypeCompany:
		recs = append(recs, "Schedule collection rounds around peak market days to keep feedstock steady.")
	default:
		recs = append(recs, "A household-scale biogas digester can cover part of your daily cooking energy.")
	}
	return recs
}

func dominantType(waste map[domain.WasteTypeID]float64) (domain.WasteTypeID, bool) {
	ids := make([]domain.WasteTypeID, 0, len(waste))
	for id, kg := range waste {
		if kg > 0 && domain.IsKnownWasteType(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Slice(ids, func(i, j int) bool {
		if waste[ids[i]] == waste[ids[j]] {
			return ids[i] < ids[j]
		}
		return waste[ids[i]] > waste[ids[j]]
	})
	return ids[0], true
}

// moistureShare is the mass-weighted moisture fraction of the mix.
func moistureShare(waste map[domain.WasteTypeID]float64) float64 {
	var kg, water float64
	for id, q := range waste {
		wt, ok := domain.Catalog[id]
		if !ok || q <= 0 {
			continue
		}
		kg += q
		water += q * wt.MoisturePercent / 100
	}
	if kg == 0 {
		return 0
	}
	return water / kg
}

func methodLabel(m domain.ConversionMethod) string {
	switch m {
	case domain.BiogasDigestion:
		return "biogas digestion"
	case domain.AnaerobicDigestion:
		return "anaerobic digestion"
	case domain.Incineration:
		return "incineration"
	case domain.Pyrolysis:
		return "pyrolysis"
	case domain.Composting:
		return "composting"
	}
	return string(m)
}
