package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
)

type LibraryStore interface {
	Put(ctx context.Context, entry domain.LibraryEntry) error
	// Get renvoie ErrNotFound si l'entrée n'existe pas.
	Get(ctx context.Context, catalogID string) (domain.LibraryEntry, error)
	GetAll(ctx context.Context) ([]domain.LibraryEntry, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.LibraryEntry, error)
	// Delete est idempotent : supprimer une clé absente n'est pas une erreur.
	Delete(ctx context.Context, catalogID string) error
}

type PurchaseSourceStore interface {
	ListPurchaseSources(ctx context.Context) ([]domain.PurchaseSource, error)
	AddPurchaseSource(ctx context.Context, name string) error
	// RenamePurchaseSource renomme la source et réécrit, dans la même transaction,
	// toutes les entrées qui la référencent. Renvoie les entrées réécrites.
	RenamePurchaseSource(ctx context.Context, oldName, newName string) ([]domain.LibraryEntry, error)
	DeletePurchaseSource(ctx context.Context, name string) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// ResponseCache mémorise les réponses du catalogue pour la session.
// Un échec d'écriture n'est jamais remonté à l'appelant.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}
