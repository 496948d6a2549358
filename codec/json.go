package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// JSON encodes records with encoding/json. Its output is readable by any
// JSON tool.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }

// GoJSON produces the same bytes as JSON using github.com/goccy/go-json,
// which is considerably faster on the append path.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }
