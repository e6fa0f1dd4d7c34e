package identity

import (
	"errors"
	"fmt"
	"strings"
)

// AreaOrder is the order in which the source sheet groups its regions.
var AreaOrder = []string{
	"Schleswig-Holstein", "Hamburg", "Niedersachsen", "Bremen",
	"Nordrhein-Westfalen", "Hessen", "Rheinland-Pfalz", "Baden-Württemberg",
	"Bayern", "Saarland", "Berlin", "Brandenburg", "Mecklenburg-Vorpommern",
	"Sachsen", "Sachsen-Anhalt", "Thüringen",
}

var (
	// ErrAreaMismatch is returned when the declared area column does not line
	// up with the region names.
	ErrAreaMismatch = errors.New("area column does not match region rows")

	// ErrAreaOverflow is returned by OrderInversion when the names contain
	// more sort inversions than there are areas.
	ErrAreaOverflow = errors.New("more order inversions than known areas")
)

// AreaStrategy assigns a parent area to every region name. declared holds
// the area column as fetched from the source and may be empty.
type AreaStrategy interface {
	Areas(names, declared []string) ([]string, error)
}

// ExplicitColumn trusts the area column fetched alongside the names.
type ExplicitColumn struct{}

// Areas implements AreaStrategy.
func (ExplicitColumn) Areas(names, declared []string) ([]string, error) {
	if len(declared) != len(names) {
		return nil, fmt.Errorf("%w: %d names, %d areas", ErrAreaMismatch, len(names), len(declared))
	}
	out := make([]string, len(names))
	for i, a := range declared {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, fmt.Errorf("%w: row %d has no area", ErrAreaMismatch, i)
		}
		out[i] = a
	}
	return out, nil
}

// OrderInversion is the legacy heuristic for sheets without an area column.
// It relies on the sheet listing regions alphabetically within each area and
// the areas in Order: whenever a name sorts below its predecessor the next
// area begins.
type OrderInversion struct {
	Order []string
}

// Areas implements AreaStrategy.
func (o OrderInversion) Areas(names, _ []string) ([]string, error) {
	order := o.Order
	if len(order) == 0 {
		order = AreaOrder
	}
	out := make([]string, 0, len(names))
	idx := 0
	prev := ""
	for i, name := range names {
		folded := foldForOrder(name)
		if folded < prev {
			idx++
			if idx >= len(order) {
				return nil, fmt.Errorf("%w: row %d (%q)", ErrAreaOverflow, i, name)
			}
		}
		out = append(out, order[idx])
		prev = folded
	}
	return out, nil
}

var orderFold = strings.NewReplacer("ö", "o", "ä", "a", "ü", "u")

func foldForOrder(s string) string { return orderFold.Replace(s) }

// StrategyFor prefers the explicit column when every row declares an area
// and falls back to OrderInversion otherwise.
func StrategyFor(names, declared []string) AreaStrategy {
	if len(declared) == len(names) && len(names) > 0 {
		complete := true
		for _, a := range declared {
			if strings.TrimSpace(a) == "" {
				complete = false
				break
			}
		}
		if complete {
			return ExplicitColumn{}
		}
	}
	return OrderInversion{Order: AreaOrder}
}
