package app

import (
	"cmp"
	"slices"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
)

const topTagsLimit = 6

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LibraryStats struct {
	Total          int                   `json:"total"`
	ByStatus       map[domain.Status]int `json:"byStatus"`
	AverageScore   float64               `json:"averageScore"`
	PlaytimeHours  float64               `json:"playtimeHours"`
	TopTags        []TagCount            `json:"topTags"`
	SensitiveCount int                   `json:"sensitiveCount"`
}

// ComputeStats agrège la bibliothèque.
//
// Temps de jeu : les titres "watched" sont exclus ; le temps saisi prime, sinon la
// durée estimée du catalogue, sauf pour "plan_to_play".
func ComputeStats(entries []domain.LibraryEntry) LibraryStats {
	st := LibraryStats{
		Total:    len(entries),
		ByStatus: make(map[domain.Status]int, len(domain.Statuses)),
		TopTags:  []TagCount{},
	}
	for _, s := range domain.Statuses {
		st.ByStatus[s] = 0
	}

	scored, scoreSum := 0, 0
	minutes := 0
	tags := map[string]int{}
	for _, e := range entries {
		st.ByStatus[e.Status]++
		if e.Score > 0 {
			scored++
			scoreSum += e.Score
		}
		minutes += playMinutes(e)
		for _, t := range e.Snapshot.Tags {
			if t.Name != "" {
				tags[t.Name]++
			}
		}
		if e.Snapshot.IsSensitive() {
			st.SensitiveCount++
		}
	}
	if scored > 0 {
		st.AverageScore = float64(scoreSum) / float64(scored)
	}
	st.PlaytimeHours = float64(minutes) / 60

	for name, count := range tags {
		st.TopTags = append(st.TopTags, TagCount{Name: name, Count: count})
	}
	slices.SortFunc(st.TopTags, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(st.TopTags) > topTagsLimit {
		st.TopTags = st.TopTags[:topTagsLimit]
	}
	return st
}

func playMinutes(e domain.LibraryEntry) int {
	if e.Status == domain.StatusWatched {
		return 0
	}
	if e.PlayTimeMinutes != nil && *e.PlayTimeMinutes > 0 {
		return *e.PlayTimeMinutes
	}
	if e.Status == domain.StatusPlanToPlay {
		return 0
	}
	return e.Snapshot.EstimatedMinutes()
}
