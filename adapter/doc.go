// Package adapter turns a signature plus input values into chat messages,
// and a model completion back into typed output values.
//
// Two adapters are provided:
//
//   - ChatAdapter frames every field with a [[ ## name ## ]] marker and asks
//     the model to answer in the same structure, ending with
//     [[ ## completed ## ]]. It works with any chat model.
//   - JSONAdapter asks for a single JSON object keyed by output field name
//     and constrains the backend with a JSON schema of the outputs.
//
// Small local models often break the marker structure; callers typically
// retry a failed ChatAdapter parse once with JSONAdapter.
//
// Parsed values are coerced to the field type: string, int, float64, bool,
// []string or json.RawMessage.
package adapter
