// SPDX-License-Identifier: MPL-2.0

// Package cueval validates user-provided data against embedded CUE
// schemas. The flow is always the same three steps: compile the
// schema, build the user data, unify and validate. Validation errors
// carry the CUE path of the offending field so messages read like
// "config.cue: modrinth.base_url: conflicting values".
package cueval

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// maxInputSize caps the size of validated inputs. Schema inputs here
// are config files and pack indexes; anything beyond this is a mistake.
const maxInputSize = 4 << 20

// DecodeToMap compiles data as CUE, validates it against the schema
// definition at defPath, and decodes the result into a generic map
// suitable for merging into viper.
func DecodeToMap(schema []byte, defPath string, data []byte, filename string) (map[string]any, error) {
	unified, err := unify(schema, defPath, func(ctx *cue.Context) (cue.Value, error) {
		v := ctx.CompileBytes(data, cue.Filename(filename))
		if v.Err() != nil {
			return cue.Value{}, formatError(v.Err(), filename)
		}
		return v, nil
	}, filename, len(data))
	if err != nil {
		return nil, err
	}

	if err := unified.Validate(); err != nil {
		return nil, formatError(err, filename)
	}

	out := map[string]any{}
	if err := unified.Decode(&out); err != nil {
		return nil, formatError(err, filename)
	}
	return out, nil
}

// ValidateJSON checks a JSON document against the schema definition at
// defPath, requiring all fields to be concrete.
func ValidateJSON(schema []byte, defPath string, data []byte, filename string) error {
	unified, err := unify(schema, defPath, func(ctx *cue.Context) (cue.Value, error) {
		expr, extractErr := cuejson.Extract(filename, data)
		if extractErr != nil {
			return cue.Value{}, formatError(extractErr, filename)
		}
		v := ctx.BuildExpr(expr)
		if v.Err() != nil {
			return cue.Value{}, formatError(v.Err(), filename)
		}
		return v, nil
	}, filename, len(data))
	if err != nil {
		return err
	}

	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatError(err, filename)
	}
	return nil
}

// unify compiles the schema, builds the user value via build, and
// unifies the two.
func unify(schema []byte, defPath string, build func(*cue.Context) (cue.Value, error), filename string, size int) (cue.Value, error) {
	if size > maxInputSize {
		return cue.Value{}, fmt.Errorf("%s: input exceeds %d bytes", filename, maxInputSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(defPath))
	if schemaRoot.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", defPath, schemaRoot.Err())
	}

	userValue, err := build(ctx)
	if err != nil {
		return cue.Value{}, err
	}

	return schemaRoot.Unify(userValue), nil
}

// formatError rewrites CUE errors as "<file>: <path>: <message>" lines.
func formatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(cueErrs))
	for _, e := range cueErrs {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", path, msg))
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s:\n  %s", filename, strings.Join(lines, "\n  "))
}
