package domain

// AIAnalysis is attached to entries recorded from the analyzer.
type AIAnalysis struct {
	Recommendations  []string         `json:"recommendations"`
	Confidence       float64          `json:"confidence"`
	ConversionMethod ConversionMethod `json:"conversionMethod"`
}

// WasteEntry is one recorded waste-to-energy event.
type WasteEntry struct {
	ID              string                  `json:"id"`
	Date            string                  `json:"date"`
	WasteTypes      map[WasteTypeID]float64 `json:"wasteTypes"`
	TotalWeight     float64                 `json:"totalWeight"`
	EnergyGenerated float64                 `json:"energyGenerated"`
	Co2Avoided      float64                 `json:"co2Avoided"`
	CostSavings     float64                 `json:"costSavings"`
	Description     string                  `json:"description,omitempty"`
	ImageURL        string                  `json:"imageUrl,omitempty"`
	AIAnalysis      *AIAnalysis             `json:"aiAnalysis,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e WasteEntry) Clone() WasteEntry {
	c := e
	c.WasteTypes = cloneWaste(e.WasteTypes)
	if e.AIAnalysis != nil {
		a := *e.AIAnalysis
		a.Recommendations = append([]string(nil), e.AIAnalysis.Recommendations...)
		c.AIAnalysis = &a
	}
	return c
}

// EntryPatch carries the fields of an UpdateEntry call; nil means untouched.
type EntryPatch struct {
	Date            *string                 `json:"date,omitempty"`
	WasteTypes      map[WasteTypeID]float64 `json:"wasteTypes,omitempty" validate:"omitempty,dive,keys,oneof=food_scraps market_waste agricultural_biomass animal_waste wood_biomass,endkeys,gte=0"`
	TotalWeight     *float64                `json:"totalWeight,omitempty" validate:"omitempty,gte=0"`
	EnergyGenerated *float64                `json:"energyGenerated,omitempty"`
	Co2Avoided      *float64                `json:"co2Avoided,omitempty"`
	CostSavings     *float64                `json:"costSavings,omitempty"`
	Description     *string                 `json:"description,omitempty"`
	ImageURL        *string                 `json:"imageUrl,omitempty" validate:"omitempty,uri"`
	AIAnalysis      *AIAnalysis             `json:"aiAnalysis,omitempty"`
}

// WasteState is the persisted slice of the waste entry store. Newest entry first.
type WasteState struct {
	Entries []WasteEntry `json:"entries"`
}

// TotalStats are the field-wise sums over every entry.
type TotalStats struct {
	TotalWaste      float64 `json:"totalWaste"`
	TotalEnergy     float64 `json:"totalEnergy"`
	TotalCo2Avoided float64 `json:"totalCo2Avoided"`
	TotalSavings    float64 `json:"totalSavings"`
}

// Equivalents converts avoided CO2 and generated energy into everyday units.
type Equivalents struct {
	TreesEquivalent int     `json:"treesEquivalent"`
	CarsEquivalent  float64 `json:"carsEquivalent"`
	HomesPowered    int     `json:"homesPowered"`
}

// ImpactSummary is returned by GET /v1/impact.
type ImpactSummary struct {
	Totals      TotalStats  `json:"totals"`
	Equivalents Equivalents `json:"equivalents"`
	EntryCount  int         `json:"entryCount"`
}

// Estimate is an energy/CO2/savings triple, live or from the fallback formula.
type Estimate struct {
	EnergyGenerated float64 `json:"energyGenerated"`
	Co2Avoided      float64 `json:"co2Avoided"`
	CostSavings     float64 `json:"costSavings"`
}

// CreateEntryRequest is the body for POST /v1/entries.
type CreateEntryRequest struct {
	Date            string                  `json:"date" validate:"required"`
	WasteTypes      map[WasteTypeID]float64 `json:"wasteTypes" validate:"required,min=1,dive,keys,oneof=food_scraps market_waste agricultural_biomass animal_waste wood_biomass,endkeys,gte=0"`
	TotalWeight     float64                 `json:"totalWeight" validate:"gte=0"`
	EnergyGenerated *float64                `json:"energyGenerated,omitempty"`
	Co2Avoided      *float64                `json:"co2Avoided,omitempty"`
	CostSavings     *float64                `json:"costSavings,omitempty"`
	Description     string                  `json:"description,omitempty"`
	ImageURL        string                  `json:"imageUrl,omitempty" validate:"omitempty,uri"`
}

// CreateEntryResponse is the body for 201 from POST /v1/entries.
type CreateEntryResponse struct {
	ID    string     `json:"id"`
	Entry WasteEntry `json:"entry"`
}

// EntryList is returned by GET /v1/entries.
type EntryList struct {
	Entries []WasteEntry `json:"entries"`
	Count   int          `json:"count"`
}
