package domain

// Region is one of Madagascar's administrative regions / Région administrative
type Region struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	CityCount int    `json:"city_count"`
	Audit
}

// Validate checks required fields / Vérifie les champs obligatoires
func (r *Region) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", r.Name)
	return errs.OrNil()
}

// City belongs to a region / Ville rattachée à une région
type City struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	PostalCode string  `json:"postal_code,omitempty"`
	RegionID   int64   `json:"region_id"`
	Region     *Region `json:"region,omitempty"`
	Audit
}

// Validate checks required fields / Vérifie les champs obligatoires
func (c *City) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", c.Name)
	errs.Positive("region_id", c.RegionID)
	return errs.OrNil()
}
