package functions

import (
	"pipeline-builder/internal/common/utils"
	"pipeline-builder/internal/shape"
)

// BuildTemplate returns the default argument bag for fn. Every declared
// argument gets its default when one is present, otherwise the empty value
// for its inferred shape. Unknown functions, or functions without a declared
// argument list, yield an empty bag.
//
// Defaults are deep-copied so callers may mutate the result freely.
func BuildTemplate(fn string, reg Registry) map[string]interface{} {
	out := map[string]interface{}{}

	spec, ok := reg[fn]
	if !ok || spec.Args == nil {
		return out
	}

	for _, arg := range spec.Args {
		if arg.HasDefault() {
			out[arg.Name] = utils.DeepCopy(arg.Default)
			continue
		}
		out[arg.Name] = shape.EmptyValue(arg.Shape())
	}
	return out
}
