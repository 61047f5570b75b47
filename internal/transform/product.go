package transform

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openretail/pos-reconciler/internal/vocab"
)

// Candidate is one product observation parsed out of a product line.
// Its (Name, Flavour, Size, Price) tuple is the identity key used by
// the entity registry.
type Candidate struct {
	Name    string
	Flavour string
	Size    string
	Price   float64
}

// Product-line grammar: entries separated by ", ", each entry
// "<name/size> - [<flavour> -] <price>".
const (
	entrySeparator = ", "
	partSeparator  = " - "
)

var titleCaser = cases.Title(language.English)

// ParseProductLine parses the delimiter-separated products string of an
// order into individual candidates. The size vocabulary is consulted
// before the flavour vocabulary; within each table the first enumerated
// member found wins. An explicit flavour segment is kept verbatim;
// flavour text is never normalized, so case or whitespace variants
// stay distinct entities.
func ParseProductLine(raw string, v vocab.Vocabulary) ([]Candidate, error) {
	var candidates []Candidate

	for _, entry := range strings.Split(raw, entrySeparator) {
		parts := strings.Split(entry, partSeparator)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		if len(parts) < 2 {
			return nil, validationErr("products", entry, "incomplete product entry")
		}

		price, err := strconv.ParseFloat(parts[len(parts)-1], 64)
		if err != nil {
			return nil, validationErr("products", entry, "price is not a decimal amount")
		}

		nameText := parts[0]

		size, remainder, ok := v.MatchSize(nameText)
		if !ok {
			size = v.DefaultSize
			remainder = nameText
		}

		flavour := ""
		if len(parts) == 3 {
			// Explicit flavour segment, verbatim.
			flavour = parts[1]
		} else if embedded, rest, ok := v.MatchFlavour(remainder); ok {
			flavour = embedded
			remainder = rest
		} else {
			flavour = v.DefaultFlavour
		}

		name := titleCaser.String(v.StripNoise(remainder))
		if name == "" {
			return nil, validationErr("products", entry, "no product name left after parsing")
		}

		candidates = append(candidates, Candidate{
			Name:    name,
			Flavour: flavour,
			Size:    size,
			Price:   price,
		})
	}

	return candidates, nil
}
