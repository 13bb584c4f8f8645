// Package signature declares the inputs and outputs of a model call.
//
// A Signature names typed input fields, typed output fields and the
// instructions the model receives. It can be written as a compact string:
//
//	sig := signature.MustParse("context, question -> response")
//	sig := signature.MustParse("question -> answer: float")
//
// or derived from a struct whose fields carry sig and desc tags:
//
//	type BasicAnswer struct {
//	    Question string `sig:"input"`
//	    Answer   string `sig:"output" desc:"often between 1 and 5 words"`
//	}
//
//	sig, err := signature.FromStruct[BasicAnswer]("Answer questions with short factoid answers.")
//
// Struct, map and non-string slice fields become JSON fields with a schema
// generated from the Go type, which adapters show to the model.
//
// Signatures are values: Prepend, Append and WithInstructions return
// modified copies and never change the receiver.
package signature
