package formats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/nanostate/types"
)

// fieldIterator is implemented by entities
type fieldIterator interface {
	Each(fn func(name string, value any) bool) error
}

// itemsIterator is implemented by collections
type itemsIterator interface {
	Items() []any
}

// eventView is the structured form used by the json and yaml formats
type eventView struct {
	Action   string           `json:"action" yaml:"action"`
	Reason   string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	NewIndex int              `json:"newIndex" yaml:"newIndex"`
	OldIndex int              `json:"oldIndex" yaml:"oldIndex"`
	NewItems []any            `json:"newItems,omitempty" yaml:"newItems,omitempty"`
	OldItems []any            `json:"oldItems,omitempty" yaml:"oldItems,omitempty"`
	Changes  map[int][]string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

func viewOf(ev types.Event) (eventView, error) {
	newItems, err := plainItems(ev.NewItems)
	if err != nil {
		return eventView{}, err
	}
	oldItems, err := plainItems(ev.OldItems)
	if err != nil {
		return eventView{}, err
	}
	return eventView{
		Action:   ev.Action.String(),
		Reason:   string(ev.Reason),
		NewIndex: ev.NewIndex,
		OldIndex: ev.OldIndex,
		NewItems: newItems,
		OldItems: oldItems,
		Changes:  ev.Changes,
	}, nil
}

func plainItems(items []any) ([]any, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := plainValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// plainValue turns entities into field maps and collections into lists so
// that encoders see plain data
func plainValue(v any) (any, error) {
	switch t := v.(type) {
	case fieldIterator:
		fields := make(map[string]any)
		var inner error
		err := t.Each(func(name string, value any) bool {
			fields[name], inner = plainValue(value)
			return inner == nil
		})
		if err != nil {
			return nil, err
		}
		return fields, inner
	case itemsIterator:
		return plainItems(t.Items())
	}
	return v, nil
}

// formatValue converts a value to string representation
func formatValue(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case string:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
