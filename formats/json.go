package formats

import (
	"github.com/arthur-debert/nanostate/types"
	json "github.com/goccy/go-json"
)

// JSON renders each event as one compact JSON object per line
var JSON = &EventFormat{
	Name:      "json",
	Extension: ".jsonl",
	Serialize: func(ev types.Event) (string, error) {
		view, err := viewOf(ev)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(view)
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
}

func init() {
	mustRegister(JSON)
}
