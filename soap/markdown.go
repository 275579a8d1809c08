package soap

import (
	"bytes"
	"fmt"
	"strings"
)

// Markdownable représente un objet pouvant se transformer en Markdown
type Markdownable interface {
	ToMarkdown() string
}

// ToMarkdown convertit l'action et ses arguments en Markdown lisible
func (ar *ActionRequest) ToMarkdown() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "➡️ SOAP Action: %s\n\n", ar.Name)

	for _, arg := range ar.Args {
		fmt.Fprintf(&buf, "- **%s**: ", arg.Name)

		content := arg.Value
		if strings.Contains(content, "\n") || len(content) > 60 {
			fmt.Fprintf(&buf, "`%s`\n", firstLineOrTruncate(content, 60))
			buf.WriteString("<details>\n\n")
			buf.WriteString(content)
			if !strings.HasSuffix(content, "\n") {
				buf.WriteString("\n")
			}
			buf.WriteString("</details>\n\n")
			continue
		}

		fmt.Fprintf(&buf, "`%s`\n", content)
	}

	return buf.String()
}

// Tronque la première ligne si elle est trop longue
func firstLineOrTruncate(s string, max int) string {
	first, _, _ := strings.Cut(s, "\n")
	if len(first) > max {
		return first[:max] + "…"
	}
	return first
}
