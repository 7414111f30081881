package domain

import (
	"slices"
	"strings"
)

// ValidationErrors maps a field to the rule it broke / Associe un champ à la règle violée
type ValidationErrors map[string]string

// Error lists failing fields in a stable order / Liste les champs en erreur
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field, rule := range v {
		fields = append(fields, field+": "+rule)
	}
	slices.Sort(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Require flags blank strings / Signale les chaînes vides
func (v ValidationErrors) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Positive flags missing references / Signale les références manquantes
func (v ValidationErrors) Positive(field string, value int64) {
	if value <= 0 {
		v[field] = "required"
	}
}

// OptionalPositive flags references set to a non-positive id / Signale les références optionnelles invalides
func (v ValidationErrors) OptionalPositive(field string, value *int64) {
	if value != nil && *value <= 0 {
		v[field] = "must be positive"
	}
}

// OrNil returns nil when nothing failed / Retourne nil si rien n'a échoué
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
