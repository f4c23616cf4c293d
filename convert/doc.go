// Package convert negotiates the converters that turn call arguments into
// wire strings and bodies, and response bodies back into values.
//
// A Registry holds an ordered list of factories. Lookups ask each factory in
// turn and use the first non-nil converter:
//
//	built-ins (raw bodies, Void) → Optional wrapper → user factories
//
// Formats live in sub-packages (jsonconv, yamlconv, msgpackconv) and are
// plugged in as user factories:
//
//	reg := convert.NewRegistry(convert.Text(), jsonconv.New())
package convert
