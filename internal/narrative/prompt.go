package narrative

import (
	"fmt"
	"strings"
)

// BuildPrompt combines the project code, retrieved passages and the user's
// question into a generation prompt. With no passages the context section is
// left empty.
func BuildPrompt(projectCode string, passages []string, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following information about carbon offset project %s, ", projectCode)
	fmt.Fprintf(&sb, "please provide a concise analysis focusing on: %s\n\n", strings.TrimSpace(query))
	sb.WriteString("Project Context:\n")
	sb.WriteString(strings.Join(passages, "\n\n"))
	sb.WriteString("\n\nPlease provide a clear, factual analysis based only on the information provided above.")
	return sb.String()
}

// clean removes an echoed prompt from model output. Completion-style models
// often repeat their input before answering.
func clean(output, prompt string) string {
	output = strings.TrimSpace(output)
	if rest, ok := strings.CutPrefix(output, strings.TrimSpace(prompt)); ok {
		output = rest
	}
	return strings.TrimSpace(output)
}
