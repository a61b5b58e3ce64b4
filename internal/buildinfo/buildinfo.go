package buildinfo

// Ces variables sont typiquement injectées à la compilation via -ldflags.
// Exemple :
//
//	-X github.com/Guilhem-Bonnet/vnshelf/internal/buildinfo.Version=v0.1.0
//	-X github.com/Guilhem-Bonnet/vnshelf/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/vnshelf/internal/buildinfo.Date=2026-10-16
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
