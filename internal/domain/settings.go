package domain

type Settings struct {
	// Floute les jaquettes des titres sensibles côté UI.
	NSFWBlur bool `json:"nsfwBlur"`

	// URL d'image de fond choisie par l'utilisateur (vide = aucune).
	BackgroundImage string `json:"backgroundImage"`

	Language string `json:"language"`
}

var SupportedLanguages = []string{"en", "ja", "ko", "zh"}

func DefaultSettings() Settings {
	return Settings{
		NSFWBlur: true,
		Language: "en",
	}
}
