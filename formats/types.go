package formats

import (
	"sort"
	"strings"

	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
)

// EventFormat defines how collection events are rendered for output
type EventFormat struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".txt", ".json")
	Extension string

	// Separator is written between rendered events
	Separator string

	// Serialize renders one event
	Serialize func(ev types.Event) (string, error)
}

// registry holds all available event formats
var registry = make(map[string]*EventFormat)

// Register adds a new event format to the registry
func Register(format *EventFormat) error {
	if !isValidFormatName(format.Name) {
		return errors.Newf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}

	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}
	if format.Separator == "" {
		format.Separator = "\n"
	}

	if _, exists := registry[format.Name]; exists {
		return errors.Newf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns an event format by name
func Get(name string) (*EventFormat, error) {
	format, exists := registry[name]
	if !exists {
		return nil, errors.WithHintf(errors.Newf("unknown format %q", name),
			"available formats: %s", strings.Join(List(), ", "))
	}
	return format, nil
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render serializes events with format, one after the other
func Render(format *EventFormat, events []types.Event) (string, error) {
	var b strings.Builder
	for i, ev := range events {
		out, err := format.Serialize(ev)
		if err != nil {
			return "", errors.Wrapf(err, "failed to render event %d as %s", i, format.Name)
		}
		if i > 0 {
			b.WriteString(format.Separator)
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func mustRegister(format *EventFormat) {
	if err := Register(format); err != nil {
		panic(errors.Wrapf(err, "failed to register %s format", format.Name))
	}
}
