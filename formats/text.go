package formats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/arthur-debert/nanostate/types"
)

// Text renders one line per event: the event summary followed by its items
// and changed fields, e.g.
//
//	move 0->1 (reconciled) new=[{name: b}]
var Text = &EventFormat{
	Name:      "text",
	Extension: ".txt",
	Serialize: func(ev types.Event) (string, error) {
		var b strings.Builder
		b.WriteString(ev.String())

		newItems, err := plainItems(ev.NewItems)
		if err != nil {
			return "", err
		}
		oldItems, err := plainItems(ev.OldItems)
		if err != nil {
			return "", err
		}
		if len(newItems) > 0 {
			b.WriteString(" new=")
			b.WriteString(formatValue(newItems))
		}
		if len(oldItems) > 0 && ev.Action != types.ActionMove {
			b.WriteString(" old=")
			b.WriteString(formatValue(oldItems))
		}
		if len(ev.Changes) > 0 {
			positions := make([]int, 0, len(ev.Changes))
			for pos := range ev.Changes {
				positions = append(positions, pos)
			}
			sort.Ints(positions)
			parts := make([]string, len(positions))
			for i, pos := range positions {
				parts[i] = strconv.Itoa(pos) + ":" + strings.Join(ev.Changes[pos], "|")
			}
			b.WriteString(" changes=")
			b.WriteString(strings.Join(parts, ","))
		}
		return b.String(), nil
	},
}

func init() {
	mustRegister(Text)
}
