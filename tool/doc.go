// Package tool wraps Go functions as tools a ReAct agent, or a backend with
// native tool calling, can invoke.
//
// A tool takes one argument struct, decoded from JSON, and returns any
// value; its parameter schema is reflected from the argument type:
//
//	type args struct {
//	    Word   string `json:"word" jsonschema:"description=the word to search in"`
//	    Letter string `json:"letter"`
//	}
//	t := tool.MustNew("count_letter", "Counts occurrences of a letter in a word",
//	    func(ctx context.Context, a args) (int, error) {
//	        return tool.CountLetter(a.Word, a.Letter), nil
//	    })
//
// Call renders the result as text: strings verbatim, everything else JSON.
package tool
