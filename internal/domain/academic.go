package domain

// Domain groups mentions by field of study / Domaine d'études regroupant des mentions
type Domain struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Mentions    []Mention `json:"mentions,omitempty"`
	Audit
}

func (d *Domain) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", d.Name)
	return errs.OrNil()
}

// Mention is a specialization inside a domain / Spécialisation au sein d'un domaine
type Mention struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	DomainID    int64   `json:"domain_id"`
	Domain      *Domain `json:"domain,omitempty"`
	Audit
}

func (m *Mention) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", m.Name)
	errs.Positive("domain_id", m.DomainID)
	return errs.OrNil()
}

// Level is a study level such as L1, M2 or DTS / Niveau d'études
type Level struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Audit
}

func (l *Level) Validate() error {
	errs := ValidationErrors{}
	errs.Require("code", l.Code)
	errs.Require("name", l.Name)
	if l.Rank < 0 {
		errs["rank"] = "must not be negative"
	}
	return errs.OrNil()
}
