package domain

// UserType tags the onboarding path a user took. The zero value means unset.
type UserType string

const (
	UserTypeUnset      UserType = ""
	UserTypeIndividual UserType = "individual"
	UserTypeCompany    UserType = "company"
)

// Valid reports whether t is one of the known tags (unset included).
func (t UserType) Valid() bool {
	switch t {
	case UserTypeUnset, UserTypeIndividual, UserTypeCompany:
		return true
	}
	return false
}

// UserProfile holds the onboarding answers.
type UserProfile struct {
	UserType                UserType                `json:"userType"`
	Location                string                  `json:"location"`
	WasteTypes              map[WasteTypeID]float64 `json:"wasteTypes"`
	DailyEnergyNeeds        float64                 `json:"dailyEnergyNeeds"`
	CompanyName             string                  `json:"companyName,omitempty"`
	CurrentProcessingMethod string                  `json:"currentProcessingMethod,omitempty"`
	OperationalCost         *float64                `json:"operationalCost,omitempty"`
}

// Clone returns a deep copy so callers never alias store-owned maps.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.WasteTypes = cloneWaste(p.WasteTypes)
	if p.OperationalCost != nil {
		v := *p.OperationalCost
		c.OperationalCost = &v
	}
	return &c
}

// TotalWasteKg sums the daily quantities of every waste type.
func (p *UserProfile) TotalWasteKg() float64 {
	if p == nil {
		return 0
	}
	return SumWaste(p.WasteTypes)
}

// ProfilePatch carries the fields of an UpdateProfile call; nil means untouched.
// Fields are merged shallowly: a non-nil WasteTypes replaces the whole map.
type ProfilePatch struct {
	UserType                *UserType               `json:"userType,omitempty" validate:"omitempty,oneof=individual company"`
	Location                *string                 `json:"location,omitempty"`
	WasteTypes              map[WasteTypeID]float64 `json:"wasteTypes,omitempty" validate:"omitempty,dive,keys,oneof=food_scraps market_waste agricultural_biomass animal_waste wood_biomass,endkeys,gte=0"`
	DailyEnergyNeeds        *float64                `json:"dailyEnergyNeeds,omitempty" validate:"omitempty,gte=0"`
	CompanyName             *string                 `json:"companyName,omitempty"`
	CurrentProcessingMethod *string                 `json:"currentProcessingMethod,omitempty"`
	OperationalCost         *float64                `json:"operationalCost,omitempty" validate:"omitempty,gte=0"`
}

// ProfileState is the persisted slice of the profile store.
type ProfileState struct {
	Profile *UserProfile `json:"profile"`
}

// UserTypeRequest is the body for PUT /v1/profile/user-type.
type UserTypeRequest struct {
	UserType UserType `json:"userType" validate:"oneof=individual company"`
}

func cloneWaste(m map[WasteTypeID]float64) map[WasteTypeID]float64 {
	if m == nil {
		return nil
	}
	c := make(map[WasteTypeID]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// SumWaste adds up the quantities of a waste-type map.
func SumWaste(m map[WasteTypeID]float64) float64 {
	var total float64
	for _, kg := range m {
		total += kg
	}
	return total
}
