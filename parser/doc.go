// Package parser extracts structured content from model completions.
//
// Completions produced under the chat adapter are split into named sections
// by field markers:
//
//	[[ ## reasoning ## ]]
//	Strawberry is spelled s-t-r-a-w-b-e-r-r-y.
//
//	[[ ## answer ## ]]
//	3
//
//	[[ ## completed ## ]]
//
// The remaining helpers pull JSON, YAML, code and lists out of free text,
// which small local models tend to wrap in prose or code fences.
//
// Example usage:
//
//	fields := parser.FieldMap(completion)
//	answer := fields["answer"]
//
//	obj := parser.ExtractJSON(completion)
//	raw, ok := parser.ExtractJSONValue(completion)
//	items := parser.ExtractItems(completion)
package parser
