package evaluator

// InitialSource is the sample program a fresh component starts with.
const InitialSource = `let hello_world = "Hello World!"; puts(hello_world);`

// State is the complete state of the playground: the program being edited and
// the output of the most recent operation.
//
// Source and Result have independent lifecycles. Diagnostic describes the last
// failed operation and is cleared by the next successful one.
type State struct {
	Source     string `json:"source"`
	Result     string `json:"result"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Initial returns the state of a freshly mounted component.
func Initial() State {
	return State{Source: InitialSource}
}

// ApplyEdit replaces the source text wholesale.
func ApplyEdit(s State, text string) State {
	s.Source = text
	return s
}

// ApplyActionResult replaces the result with the text an operation returned.
func ApplyActionResult(s State, text string) State {
	s.Result = text
	s.Diagnostic = ""
	return s
}

// ApplyFailure records a diagnostic and keeps the previous result.
func ApplyFailure(s State, diagnostic string) State {
	s.Diagnostic = diagnostic
	return s
}
