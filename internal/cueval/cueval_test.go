// SPDX-License-Identifier: MPL-2.0

package cueval

import (
	"fmt"
	"strings"
	"testing"
)

const testSchema = `
#Thing: {
	name:  string & !=""
	count: int & >=0
	tags?: [...string]
}
`

func TestDecodeToMap(t *testing.T) {
	data := []byte(`
name:  "widget"
count: 3
`)

	out, err := DecodeToMap([]byte(testSchema), "#Thing", data, "thing.cue")
	if err != nil {
		t.Fatalf("DecodeToMap() error = %v", err)
	}
	if out["name"] != "widget" {
		t.Errorf("name = %v", out["name"])
	}
	if got := fmt.Sprint(out["count"]); got != "3" {
		t.Errorf("count = %v", out["count"])
	}
}

func TestDecodeToMap_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "syntax error", data: `name: "x`, want: "thing.cue"},
		{name: "wrong type", data: `{name: "x", count: "many"}`, want: "count"},
		{name: "empty name", data: `{name: "", count: 1}`, want: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToMap([]byte(testSchema), "#Thing", []byte(tt.data), "thing.cue")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	if err := ValidateJSON([]byte(testSchema), "#Thing", []byte(`{"name":"widget","count":1,"tags":["a"]}`), "thing.json"); err != nil {
		t.Errorf("ValidateJSON() error = %v", err)
	}
}

func TestValidateJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `nope`},
		{name: "missing required field", data: `{"name":"widget"}`},
		{name: "constraint violation", data: `{"name":"widget","count":-1}`},
		{name: "wrong type", data: `{"name":1,"count":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateJSON([]byte(testSchema), "#Thing", []byte(tt.data), "thing.json"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateJSON_InputTooLarge(t *testing.T) {
	big := make([]byte, maxInputSize+1)
	if err := ValidateJSON([]byte(testSchema), "#Thing", big, "thing.json"); err == nil {
		t.Error("expected size limit error")
	}
}

func TestUnify_MissingDefinition(t *testing.T) {
	if err := ValidateJSON([]byte(testSchema), "#Nope", []byte(`{}`), "thing.json"); err == nil {
		t.Error("expected error for unknown schema definition")
	}
}
