package domain

import (
	"net/mail"
	"net/url"
)

// Sector tells public from private establishments / Secteur public ou privé
type Sector struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Audit
}

func (s *Sector) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", s.Name)
	return errs.OrNil()
}

// EstablishmentType is a kind of establishment (university, institute...) / Type d'établissement
type EstablishmentType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Audit
}

func (t *EstablishmentType) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", t.Name)
	return errs.OrNil()
}

// Establishment is a school or university / Établissement d'enseignement supérieur
type Establishment struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Acronym       string             `json:"acronym,omitempty"`
	Description   string             `json:"description,omitempty"`
	Address       string             `json:"address,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Email         string             `json:"email,omitempty"`
	Website       string             `json:"website,omitempty"`
	LogoURL       string             `json:"logo_url,omitempty"`
	CityID        int64              `json:"city_id"`
	TypeID        *int64             `json:"establishment_type_id,omitempty"`
	SectorID      *int64             `json:"sector_id,omitempty"`
	City          *City              `json:"city,omitempty"`
	Type          *EstablishmentType `json:"type,omitempty"`
	Sector        *Sector            `json:"sector,omitempty"`
	RatingAverage float64            `json:"rating_average"`
	ReviewCount   int                `json:"review_count"`
	Audit
}

func (e *Establishment) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", e.Name)
	errs.Positive("city_id", e.CityID)
	errs.OptionalPositive("establishment_type_id", e.TypeID)
	errs.OptionalPositive("sector_id", e.SectorID)
	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			errs["email"] = "email"
		}
	}
	if e.Website != "" {
		if u, err := url.Parse(e.Website); err != nil || u.Scheme == "" || u.Host == "" {
			errs["website"] = "url"
		}
	}
	return errs.OrNil()
}

// Review rating bounds / Bornes de la note
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a student's rating of an establishment / Avis d'un étudiant sur un établissement
type Review struct {
	ID              int64  `json:"id"`
	EstablishmentID int64  `json:"establishment_id"`
	UserID          int64  `json:"user_id"`
	AuthorName      string `json:"author_name,omitempty"`
	Rating          int    `json:"rating"`
	Comment         string `json:"comment,omitempty"`
	Audit
}

func (r *Review) Validate() error {
	errs := ValidationErrors{}
	errs.Positive("establishment_id", r.EstablishmentID)
	if r.Rating < MinRating || r.Rating > MaxRating {
		errs["rating"] = "must be between 1 and 5"
	}
	return errs.OrNil()
}
