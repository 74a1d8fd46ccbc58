package domain

import "sort"

// WasteTypeID identifies an entry of the fixed waste-type catalog.
type WasteTypeID string

const (
	FoodScraps          WasteTypeID = "food_scraps"
	MarketWaste         WasteTypeID = "market_waste"
	AgriculturalBiomass WasteTypeID = "agricultural_biomass"
	AnimalWaste         WasteTypeID = "animal_waste"
	WoodBiomass         WasteTypeID = "wood_biomass"
)

// ConversionMethod is a waste-to-energy process.
type ConversionMethod string

const (
	BiogasDigestion    ConversionMethod = "biogas_digestion"
	AnaerobicDigestion ConversionMethod = "anaerobic_digestion"
	Incineration       ConversionMethod = "incineration"
	Pyrolysis          ConversionMethod = "pyrolysis"
	Composting         ConversionMethod = "composting"
)

// ConversionMethods lists every method in a stable order.
var ConversionMethods = []ConversionMethod{
	BiogasDigestion, AnaerobicDigestion, Incineration, Pyrolysis, Composting,
}

// WasteType describes one catalog entry.
type WasteType struct {
	ID                   WasteTypeID                  `json:"id"`
	Name                 string                       `json:"name"`
	EnergyKWhPerKg       float64                      `json:"energyContentKwhPerKg"`
	MethaneM3PerKg       float64                      `json:"methanePotentialM3PerKg"`
	MoisturePercent      float64                      `json:"moistureContentPercent"`
	Co2KgPerKg           float64                      `json:"co2EmissionsKgPerKg"`
	MethaneKgPerKg       float64                      `json:"methaneEmissionsKgPerKg"`
	ConversionEfficiency map[ConversionMethod]float64 `json:"conversionEfficiency"`
}

// Catalog is the fixed set of waste types. Keys of every waste-type map must come from here.
var Catalog = map[WasteTypeID]WasteType{
	FoodScraps: {
		ID: FoodScraps, Name: "Food Scraps",
		EnergyKWhPerKg: 1.2, MethaneM3PerKg: 0.35, MoisturePercent: 70,
		Co2KgPerKg: 0.8, MethaneKgPerKg: 0.12,
		ConversionEfficiency: map[ConversionMethod]float64{
			BiogasDigestion: 0.65, AnaerobicDigestion: 0.70, Incineration: 0.25, Pyrolysis: 0.40, Composting: 0.15,
		},
	},
	MarketWaste: {
		ID: MarketWaste, Name: "Market Waste",
		EnergyKWhPerKg: 1.8, MethaneM3PerKg: 0.45, MoisturePercent: 60,
		Co2KgPerKg: 1.0, MethaneKgPerKg: 0.15,
		ConversionEfficiency: map[ConversionMethod]float64{
			BiogasDigestion: 0.70, AnaerobicDigestion: 0.75, Incineration: 0.30, Pyrolysis: 0.45, Composting: 0.20,
		},
	},
	AgriculturalBiomass: {
		ID: AgriculturalBiomass, Name: "Agricultural Biomass",
		EnergyKWhPerKg: 3.5, MethaneM3PerKg: 0.25, MoisturePercent: 40,
		Co2KgPerKg: 1.5, MethaneKgPerKg: 0.08,
		ConversionEfficiency: map[ConversionMethod]float64{
			BiogasDigestion: 0.50, AnaerobicDigestion: 0.55, Incineration: 0.60, Pyrolysis: 0.70, Composting: 0.30,
		},
	},
	AnimalWaste: {
		ID: AnimalWaste, Name: "Animal Waste",
		EnergyKWhPerKg: 0.8, MethaneM3PerKg: 0.60, MoisturePercent: 80,
		Co2KgPerKg: 0.6, MethaneKgPerKg: 0.20,
		ConversionEfficiency: map[ConversionMethod]float64{
			BiogasDigestion: 0.80, AnaerobicDigestion: 0.85, Incineration: 0.20, Pyrolysis: 0.35, Composting: 0.25,
		},
	},
	WoodBiomass: {
		ID: WoodBiomass, Name: "Wood Biomass",
		EnergyKWhPerKg: 4.2, MethaneM3PerKg: 0.15, MoisturePercent: 25,
		Co2KgPerKg: 2.0, MethaneKgPerKg: 0.05,
		ConversionEfficiency: map[ConversionMethod]float64{
			BiogasDigestion: 0.30, AnaerobicDigestion: 0.35, Incineration: 0.75, Pyrolysis: 0.80, Composting: 0.10,
		},
	},
}

// IsKnownWasteType reports whether id belongs to the catalog.
func IsKnownWasteType(id WasteTypeID) bool {
	_, ok := Catalog[id]
	return ok
}

// CatalogList returns the catalog sorted by id.
func CatalogList() []WasteType {
	out := make([]WasteType, 0, len(Catalog))
	for _, wt := range Catalog {
		out = append(out, wt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
