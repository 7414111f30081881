package domain

import (
	"regexp"
	"strconv"
	"time"
)

// Formation is a program offered by an establishment / Formation proposée par un établissement
type Formation struct {
	ID                    int64          `json:"id"`
	Name                  string         `json:"name"`
	Description           string         `json:"description,omitempty"`
	DurationMonths        int            `json:"duration_months,omitempty"`
	Diploma               string         `json:"diploma,omitempty"`
	AdmissionRequirements string         `json:"admission_requirements,omitempty"`
	TuitionFee            *int64         `json:"tuition_fee,omitempty"` // Ariary per year
	EstablishmentID       int64          `json:"establishment_id"`
	MentionID             *int64         `json:"mention_id,omitempty"`
	LevelID               *int64         `json:"level_id,omitempty"`
	Establishment         *Establishment `json:"establishment,omitempty"`
	Mention               *Mention       `json:"mention,omitempty"`
	Level                 *Level         `json:"level,omitempty"`
	Audit
}

func (f *Formation) Validate() error {
	errs := ValidationErrors{}
	errs.Require("name", f.Name)
	errs.Positive("establishment_id", f.EstablishmentID)
	errs.OptionalPositive("mention_id", f.MentionID)
	errs.OptionalPositive("level_id", f.LevelID)
	if f.DurationMonths < 0 {
		errs["duration_months"] = "must not be negative"
	}
	if f.TuitionFee != nil && *f.TuitionFee < 0 {
		errs["tuition_fee"] = "must not be negative"
	}
	return errs.OrNil()
}

// AuthorizationStatus is the state of a formation's accreditation / État de l'habilitation
type AuthorizationStatus string

const (
	AuthorizationPending  AuthorizationStatus = "pending"
	AuthorizationGranted  AuthorizationStatus = "granted"
	AuthorizationRejected AuthorizationStatus = "rejected"
	AuthorizationExpired  AuthorizationStatus = "expired"
)

// IsValid checks the status value / Vérifie la valeur du statut
func (s AuthorizationStatus) IsValid() bool {
	switch s {
	case AuthorizationPending, AuthorizationGranted, AuthorizationRejected, AuthorizationExpired:
		return true
	}
	return false
}

// FormationAuthorization is a ministry accreditation decree / Habilitation ministérielle
type FormationAuthorization struct {
	ID          int64               `json:"id"`
	FormationID int64               `json:"formation_id"`
	Reference   string              `json:"reference"`
	Status      AuthorizationStatus `json:"status"`
	GrantedAt   *time.Time          `json:"granted_at,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Audit
}

func (a *FormationAuthorization) Validate() error {
	errs := ValidationErrors{}
	errs.Positive("formation_id", a.FormationID)
	errs.Require("reference", a.Reference)
	if a.Status == "" {
		a.Status = AuthorizationPending
	}
	if !a.Status.IsValid() {
		errs["status"] = "oneof pending granted rejected expired"
	}
	if a.GrantedAt != nil && a.ExpiresAt != nil && !a.ExpiresAt.After(*a.GrantedAt) {
		errs["expires_at"] = "must be after granted_at"
	}
	return errs.OrNil()
}

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// AnnualHeadcount records enrolment numbers for one academic year / Effectifs d'une année universitaire
type AnnualHeadcount struct {
	ID            int64  `json:"id"`
	FormationID   int64  `json:"formation_id"`
	AcademicYear  string `json:"academic_year"`
	StudentCount  int    `json:"student_count"`
	FemaleCount   int    `json:"female_count"`
	GraduateCount int    `json:"graduate_count"`
	Audit
}

func (h *AnnualHeadcount) Validate() error {
	errs := ValidationErrors{}
	errs.Positive("formation_id", h.FormationID)
	if !ValidAcademicYear(h.AcademicYear) {
		errs["academic_year"] = "format YYYY-YYYY with consecutive years"
	}
	if h.StudentCount < 0 {
		errs["student_count"] = "must not be negative"
	}
	if h.FemaleCount < 0 {
		errs["female_count"] = "must not be negative"
	} else if h.FemaleCount > h.StudentCount {
		errs["female_count"] = "must not exceed student_count"
	}
	if h.GraduateCount < 0 {
		errs["graduate_count"] = "must not be negative"
	} else if h.GraduateCount > h.StudentCount {
		errs["graduate_count"] = "must not exceed student_count"
	}
	return errs.OrNil()
}

// ValidAcademicYear accepts "2023-2024" but not "2023-2025" / Accepte deux années consécutives
func ValidAcademicYear(year string) bool {
	m := academicYearPattern.FindStringSubmatch(year)
	if m == nil {
		return false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	return second == first+1
}
