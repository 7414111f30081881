package domain

// StatBucket is one labelled count / Un comptage libellé
type StatBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PublicStats are the home page counters / Compteurs de la page d'accueil
type PublicStats struct {
	Establishments int `json:"establishments"`
	Formations     int `json:"formations"`
	Domains        int `json:"domains"`
	Regions        int `json:"regions"`
}

// AdminStats extends the public counters for the back-office / Compteurs du back-office
type AdminStats struct {
	PublicStats
	UsersByRole             map[UserRole]int `json:"users_by_role"`
	VerifiedUsers           int              `json:"verified_users"`
	EstablishmentsPerRegion []StatBucket     `json:"establishments_per_region"`
	EstablishmentsPerSector []StatBucket     `json:"establishments_per_sector"`
	FormationsPerLevel      []StatBucket     `json:"formations_per_level"`
}

// NamedRef points at a catalog row by name / Référence nommée vers une ligne du catalogue
type NamedRef struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
