package measure

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// areaUnitSwitch is the boundary (m²) above which areas render in km².
const areaUnitSwitch = 1_000_000

var displayPrinter = message.NewPrinter(language.English)

// Display renders the result as the string the viewer shows next to the
// drawn geometry. Distances are kilometers with two decimals. Areas below
// one square kilometer are whole square meters with thousands separators;
// larger areas are square kilometers with two decimals. None renders as
// the empty string.
func (r Result) Display() string {
	switch r.Kind {
	case Distance:
		return fmt.Sprintf("%.2f km", r.Km)
	case Area:
		if r.SquareMeters < areaUnitSwitch {
			return displayPrinter.Sprintf("%d m²", int64(math.Round(r.SquareMeters)))
		}
		return fmt.Sprintf("%.2f km²", r.SquareMeters/areaUnitSwitch)
	default:
		return ""
	}
}
