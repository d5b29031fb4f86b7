package record

import "fmt"

// varName builds the "prefix[unit,t]" variable name convention every
// component builder in package builder uses.
func varName(prefix, unit string, t int) string {
	return fmt.Sprintf("%s[%s,%d]", prefix, unit, t)
}

// flowVarName builds the "prefix[source-sink,t]" convention
// builder.SystemBuilder uses for line flow variables.
func flowVarName(prefix, source, sink string, t int) string {
	return fmt.Sprintf("%s[%s-%s,%d]", prefix, source, sink, t)
}

// hourVarName builds the "prefix[t]" convention builder.SystemBuilder
// uses for variables with no node/edge identity.
func hourVarName(prefix string, t int) string {
	return fmt.Sprintf("%s[%d]", prefix, t)
}
