package domain

import "strings"

type Status string

const (
	StatusPlaying    Status = "playing"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusDropped    Status = "dropped"
	StatusPlanToPlay Status = "plan_to_play"
	StatusWatched    Status = "watched"
)

// Statuses liste les statuts dans l'ordre d'affichage.
var Statuses = []Status{
	StatusPlaying,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
	StatusPlanToPlay,
	StatusWatched,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

const (
	MinScore = 0
	MaxScore = 100
)

// LibraryEntry est la fiche personnelle d'un titre du catalogue.
//
// Le snapshot catalogue (Snapshot) est une copie figée au moment du dernier fetch :
// il n'est corrigé que par un refresh explicite.
type LibraryEntry struct {
	CatalogID string `json:"catalogId"`
	Status    Status `json:"status"`
	// Score sur 100, 0 = pas noté.
	Score            int     `json:"score"`
	Notes            string  `json:"notes"`
	Review           string  `json:"review,omitempty"`
	PlayTimeMinutes  *int    `json:"playTime,omitempty"`
	PurchaseLocation *string `json:"purchaseLocation,omitempty"`

	// Epoch millisecondes.
	AddedAt   int64 `json:"addedAt"`
	UpdatedAt int64 `json:"updatedAt"`

	Snapshot CatalogRecord `json:"vn"`
}

// Key renvoie l'identifiant catalogue, en retombant sur vn.id pour les
// sauvegardes produites avant l'introduction de catalogId.
func (e LibraryEntry) Key() string {
	if id := strings.TrimSpace(e.CatalogID); id != "" {
		return id
	}
	return strings.TrimSpace(e.Snapshot.ID)
}

func (e LibraryEntry) PurchasedAt() string {
	if e.PurchaseLocation == nil {
		return ""
	}
	return *e.PurchaseLocation
}

type PurchaseSource struct {
	Name string `json:"name"`
}

// DefaultPurchaseSources sont semées au premier lancement.
var DefaultPurchaseSources = []string{"Steam", "DMM", "Package"}
