package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// PromptData holds the parameters for template rendering
type PromptData struct {
	Count int
	Files string
	Diff  string
}

// RenderPrompt renders a prompt template with the provided data
func RenderPrompt(name, tmplStr string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("error parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error executing template %s: %w", name, err)
	}

	return buf.String(), nil
}

const (
	systemInstructionEN = "You generate Git commit messages."
	systemInstructionES = "Generás mensajes de commit de Git. Respondé siempre en español."

	commitPromptTemplateEN = `You are writing Git commit messages for the staged changes below.
{{if .Files}}
Files changed:
{{.Files}}
{{end}}
Diff:
{{.Diff}}

Write exactly {{.Count}} alternative commit messages.
- One message per line, nothing else.
- No bullets, no numbering, no quotes, no emoji.
- Each message is a single line in the imperative mood.
- Describe the overall intent of the change as a whole, not a list of the files it touches.`

	commitPromptTemplateES = `Estás escribiendo mensajes de commit de Git para los cambios preparados (staged) que siguen.
{{if .Files}}
Archivos modificados:
{{.Files}}
{{end}}
Diff:
{{.Diff}}

Escribí exactamente {{.Count}} mensajes de commit alternativos.
- Un mensaje por línea, nada más.
- Sin viñetas, sin numeración, sin comillas, sin emojis.
- Cada mensaje es una sola línea en modo imperativo.
- Describí la intención general del cambio en conjunto, no una lista de los archivos que toca.`
)

// GetCommitPromptTemplate returns the commit prompt for a language, English
// by default.
func GetCommitPromptTemplate(lang string) string {
	switch lang {
	case "es":
		return commitPromptTemplateES
	default:
		return commitPromptTemplateEN
	}
}

// GetSystemInstruction returns the system instruction for a language.
func GetSystemInstruction(lang string) string {
	switch lang {
	case "es":
		return systemInstructionES
	default:
		return systemInstructionEN
	}
}

// FormatFilesForPrompt renders paths as a bulleted block.
func FormatFilesForPrompt(files []string) string {
	if len(files) == 0 {
		return ""
	}
	formatted := make([]string, len(files))
	for i, file := range files {
		formatted[i] = fmt.Sprintf("- %s", file)
	}
	return strings.Join(formatted, "\n")
}

// BuildCommitPrompt renders the commit prompt for the given diff and files.
func BuildCommitPrompt(lang string, count int, diff string, files []string) (string, error) {
	return RenderPrompt("commit", GetCommitPromptTemplate(lang), PromptData{
		Count: count,
		Files: FormatFilesForPrompt(files),
		Diff:  diff,
	})
}
