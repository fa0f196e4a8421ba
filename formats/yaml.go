package formats

import (
	"strings"

	"github.com/arthur-debert/nanostate/types"
	"gopkg.in/yaml.v3"
)

// YAML renders each event as its own YAML document
var YAML = &EventFormat{
	Name:      "yaml",
	Extension: ".yaml",
	Separator: "---\n",
	Serialize: func(ev types.Event) (string, error) {
		view, err := viewOf(ev)
		if err != nil {
			return "", err
		}
		data, err := yaml.Marshal(view)
		if err != nil {
			return "", err
		}
		if !strings.HasSuffix(string(data), "\n") {
			data = append(data, '\n')
		}
		return string(data), nil
	},
}

func init() {
	mustRegister(YAML)
}
