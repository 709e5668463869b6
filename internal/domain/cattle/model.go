package cattle

import "time"

// Species define las especies soportadas; la gestación depende de esto.
type Species string

const (
	SpeciesCow     Species = "cow"
	SpeciesBuffalo Species = "buffalo"
)

// Razas aceptadas por especie.
var cowBreeds = []string{
	"Holstein Friesian", "Jersey", "Sahiwal", "Gir", "Red Sindhi",
	"Tharparkar", "Rathi", "Kankrej", "Hariana", "Ongole",
}

var buffaloBreeds = []string{
	"Murrah", "Nili-Ravi", "Surti", "Mehsana", "Jaffarabadi",
	"Bhadawari", "Nagpuri", "Pandharpuri", "Marathwada", "Toda",
}

// ValidBreed indica si la raza corresponde a la especie.
func ValidBreed(sp Species, breed string) bool {
	var list []string
	switch sp {
	case SpeciesCow:
		list = cowBreeds
	case SpeciesBuffalo:
		list = buffaloBreeds
	default:
		return false
	}
	for _, b := range list {
		if b == breed {
			return true
		}
	}
	return false
}

// Cattle es el sujeto reproductivo registrado por un usuario. Inmutable tras
// la creación, salvo por el propio flujo de registro.
type Cattle struct {
	ID          string
	OwnerUserID string

	Type      Species
	Breed     string
	TagNumber string
	NickName  string

	// Fecha de calendario (medianoche UTC); de acá nacen los eventos iniciales.
	DateOfLastDelivery time.Time

	CreatedAt time.Time
}
