package domain

import "testing"

func TestCatalogRecord_IsSensitive(t *testing.T) {
	age := func(v int) *int { return &v }

	cases := []struct {
		name string
		rec  CatalogRecord
		want bool
	}{
		{"no image no release", CatalogRecord{ID: "v1"}, false},
		{"suggestive image", CatalogRecord{Image: &CatalogImage{Sexual: 1.4}}, false},
		{"explicit image", CatalogRecord{Image: &CatalogImage{Sexual: 2}}, true},
		{"all ages release", CatalogRecord{Releases: []ReleaseRecord{{MinAge: age(12)}}}, false},
		{"unknown minage", CatalogRecord{Releases: []ReleaseRecord{{MinAge: nil}}}, false},
		{"adult release", CatalogRecord{Releases: []ReleaseRecord{{MinAge: age(15)}, {MinAge: age(18)}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.IsSensitive(); got != tc.want {
				t.Fatalf("IsSensitive: want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestReleaseRecord_References(t *testing.T) {
	r := ReleaseRecord{ID: "r1", VNs: []ReleaseVN{{ID: "v1"}, {ID: "v2"}}}
	if !r.References("v2") || r.References("v3") {
		t.Fatalf("unexpected References result for %+v", r)
	}
}
