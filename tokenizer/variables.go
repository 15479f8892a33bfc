package tokenizer

// Delimiters for text placeholders and bind placeholders.
const (
	VariableOpen  = "${"
	VariableClose = "}"
	ParamOpen     = "#{"
	ParamClose    = "}"
)

// VariableScanner scans ${name} placeholders.
var VariableScanner = NewScanner(VariableOpen, VariableClose)

// ParamScanner scans #{expression} bind placeholders.
var ParamScanner = NewScanner(ParamOpen, ParamClose)

// Substitute replaces ${name} placeholders with values from variables.
// Names missing from variables are left as they were, delimiters included.
func Substitute(text string, variables map[string]string) string {
	return VariableScanner.Scan(text, func(content string) string {
		if value, ok := variables[content]; ok {
			return value
		}

		return VariableOpen + content + VariableClose
	})
}

// HasVariables reports whether text still contains a ${} placeholder.
func HasVariables(text string) bool {
	return VariableScanner.HasToken(text)
}
