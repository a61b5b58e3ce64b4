package app

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
)

type SortOption string

const (
	SortAddedDesc    SortOption = "added_desc"
	SortAddedAsc     SortOption = "added_asc"
	SortScoreDesc    SortOption = "score_desc"
	SortScoreAsc     SortOption = "score_asc"
	SortReleasedDesc SortOption = "released_desc"
	SortReleasedAsc  SortOption = "released_asc"
	SortRatingDesc   SortOption = "rating_desc"
	SortRatingAsc    SortOption = "rating_asc"
	SortTitleAsc     SortOption = "title_asc"
	SortTitleDesc    SortOption = "title_desc"
	SortVoteDesc     SortOption = "vote_desc"
	SortVoteAsc      SortOption = "vote_asc"
)

var SortOptions = []SortOption{
	SortAddedDesc, SortAddedAsc,
	SortScoreDesc, SortScoreAsc,
	SortReleasedDesc, SortReleasedAsc,
	SortRatingDesc, SortRatingAsc,
	SortTitleAsc, SortTitleDesc,
	SortVoteDesc, SortVoteAsc,
}

// ParseSortOption : vide => added_desc (ordre par défaut de l'étagère).
func ParseSortOption(v string) (SortOption, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return SortAddedDesc, nil
	}
	if slices.Contains(SortOptions, SortOption(v)) {
		return SortOption(v), nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, v)
}

// SortEntries renvoie une copie triée (tri stable).
func SortEntries(entries []domain.LibraryEntry, option SortOption) []domain.LibraryEntry {
	out := slices.Clone(entries)
	var less func(a, b domain.LibraryEntry) int
	switch option {
	case SortAddedAsc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(a.AddedAt, b.AddedAt) }
	case SortScoreDesc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(b.Score, a.Score) }
	case SortScoreAsc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(a.Score, b.Score) }
	case SortReleasedDesc:
		less = func(a, b domain.LibraryEntry) int { return strings.Compare(b.Snapshot.Released, a.Snapshot.Released) }
	case SortReleasedAsc:
		less = func(a, b domain.LibraryEntry) int { return strings.Compare(a.Snapshot.Released, b.Snapshot.Released) }
	case SortRatingDesc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(b.Snapshot.Rating, a.Snapshot.Rating) }
	case SortRatingAsc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(a.Snapshot.Rating, b.Snapshot.Rating) }
	case SortTitleAsc:
		less = func(a, b domain.LibraryEntry) int { return compareTitles(a, b) }
	case SortTitleDesc:
		less = func(a, b domain.LibraryEntry) int { return compareTitles(b, a) }
	case SortVoteDesc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(b.Snapshot.VoteCount, a.Snapshot.VoteCount) }
	case SortVoteAsc:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(a.Snapshot.VoteCount, b.Snapshot.VoteCount) }
	default:
		less = func(a, b domain.LibraryEntry) int { return cmp.Compare(b.AddedAt, a.AddedAt) }
	}
	slices.SortStableFunc(out, less)
	return out
}

func compareTitles(a, b domain.LibraryEntry) int {
	return strings.Compare(strings.ToLower(a.Snapshot.Title), strings.ToLower(b.Snapshot.Title))
}

// FilterByStatus : statut vide => toutes les entrées.
func FilterByStatus(entries []domain.LibraryEntry, status domain.Status) []domain.LibraryEntry {
	if status == "" {
		return slices.Clone(entries)
	}
	out := make([]domain.LibraryEntry, 0)
	for _, e := range entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// Ranking : entrées notées uniquement, meilleure note d'abord.
func Ranking(entries []domain.LibraryEntry) []domain.LibraryEntry {
	out := make([]domain.LibraryEntry, 0)
	for _, e := range entries {
		if e.Score > 0 {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.LibraryEntry) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

// Picker est satisfait par *rand.Rand (math/rand/v2).
type Picker interface {
	IntN(n int) int
}

// PickRoulette tire au sort parmi les titres à jouer, ou parmi tous si aucun n'est prévu.
func PickRoulette(entries []domain.LibraryEntry, rng Picker) (domain.LibraryEntry, error) {
	pool := FilterByStatus(entries, domain.StatusPlanToPlay)
	if len(pool) == 0 {
		pool = entries
	}
	if len(pool) == 0 {
		return domain.LibraryEntry{}, ErrNotFound
	}
	return pool[rng.IntN(len(pool))], nil
}
