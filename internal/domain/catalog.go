package domain

// AdultMinAge est l'âge minimum à partir duquel une release marque le titre comme sensible.
const AdultMinAge = 18

// ExplicitSexualRating est la valeur maximale de l'échelle "sexual" des images VNDB.
const ExplicitSexualRating = 2

type CatalogImage struct {
	ID       string  `json:"id,omitempty"`
	URL      string  `json:"url"`
	Dims     [2]int  `json:"dims,omitempty"`
	Sexual   float64 `json:"sexual"`
	Violence float64 `json:"violence"`
}

type CatalogTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type CatalogDeveloper struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Original string `json:"original,omitempty"`
}

type CatalogScreenshot struct {
	URL       string  `json:"url"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Sexual    float64 `json:"sexual"`
	Violence  float64 `json:"violence"`
}

type CatalogLink struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Label string `json:"label"`
	Name  string `json:"name,omitempty"`
}

type ReleaseVN struct {
	ID string `json:"id"`
}

// ReleaseRecord porte la classification d'âge d'une release.
type ReleaseRecord struct {
	ID     string      `json:"id"`
	MinAge *int        `json:"minage"`
	VNs    []ReleaseVN `json:"vns"`
}

func (r ReleaseRecord) References(vnID string) bool {
	for _, v := range r.VNs {
		if v.ID == vnID {
			return true
		}
	}
	return false
}

// CatalogRecord est un titre tel que renvoyé par le catalogue distant (lecture seule).
// Les listes sont sérialisées même vides : une liste vide relue reste vide, pas nil.
type CatalogRecord struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Released      string              `json:"released,omitempty"`
	Languages     []string            `json:"languages"`
	Platforms     []string            `json:"platforms"`
	Image         *CatalogImage       `json:"image"`
	Description   string              `json:"description,omitempty"`
	Rating        float64             `json:"rating"`
	VoteCount     int                 `json:"votecount"`
	LengthMinutes *int                `json:"length_minutes"`
	Tags          []CatalogTag        `json:"tags"`
	Developers    []CatalogDeveloper  `json:"developers"`
	Screenshots   []CatalogScreenshot `json:"screenshots"`
	ExtLinks      []CatalogLink       `json:"extlinks"`
	Releases      []ReleaseRecord     `json:"releases"`
}

// IsSensitive indique un contenu adulte : image explicite ou release 18+.
func (r CatalogRecord) IsSensitive() bool {
	if r.Image != nil && r.Image.Sexual >= ExplicitSexualRating {
		return true
	}
	for _, rel := range r.Releases {
		if rel.MinAge != nil && *rel.MinAge >= AdultMinAge {
			return true
		}
	}
	return false
}

func (r CatalogRecord) EstimatedMinutes() int {
	if r.LengthMinutes == nil || *r.LengthMinutes < 0 {
		return 0
	}
	return *r.LengthMinutes
}
