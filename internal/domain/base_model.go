package domain

import "time"

// BaseModel provides common fields for domain models / Fournit les champs communs aux modèles
type BaseModel struct {
	CreatedAt time.Time  // Record creation time / Heure de création de l'enregistrement
	UpdatedAt time.Time  // Record last update time / Heure de dernière mise à jour
	DeletedAt *time.Time // Soft delete timestamp / Horodatage de suppression logique
}

// IsDeleted checks if soft-deleted / Vérifie si supprimé (soft delete)
func (bm *BaseModel) IsDeleted() bool {
	return bm.DeletedAt != nil
}

// Audit carries who touched a reference row and when / Trace qui a modifié une ligne de référence et quand
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	UpdatedBy *int64    `json:"updated_by,omitempty"`
}

// Stamp records the acting user / Enregistre l'utilisateur à l'origine de l'action
func (a *Audit) Stamp(actorID int64, creating bool) {
	if actorID <= 0 {
		return
	}
	id := actorID
	if creating {
		a.CreatedBy = &id
	}
	a.UpdatedBy = &id
}

// AuditInfo exposes the audit block / Expose le bloc d'audit
func (a *Audit) AuditInfo() *Audit {
	return a
}
