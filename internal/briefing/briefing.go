// Package briefing renders interview answers into the briefing document.
package briefing

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	Title       = "# Briefing Inicial"
	Summary     = "## Resumo da Entrevista"
	EmptyNotice = "_Nenhuma resposta registrada nesta sessão._"
	Footer      = "_Gerado automaticamente pelo Assistente de Requisitos (MVP)_"
)

// Item is one answered question.
type Item struct {
	Question string
	Answer   string
}

// Markdown builds the briefing for a session from its answers in order.
func Markdown(sessionID string, items []Item) string {
	lines := []string{
		Title,
		"",
		fmt.Sprintf("**Sessão:** `%s`", sessionID),
		"",
		Summary,
	}
	if len(items) == 0 {
		lines = append(lines, EmptyNotice)
	} else {
		for i, item := range items {
			lines = append(lines,
				fmt.Sprintf("### %d. %s", i+1, item.Question),
				fmt.Sprintf("- **Resposta:** %s", item.Answer),
				"",
			)
		}
	}
	lines = append(lines, "---", Footer)
	return strings.Join(lines, "\n")
}

var (
	mdOnce sync.Once
	md     goldmark.Markdown
)

func converter() goldmark.Markdown {
	mdOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return md
}

// RenderHTML converts briefing markdown into an HTML fragment. Raw HTML in
// answers is omitted by the renderer.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := converter().Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("briefing: render html: %w", err)
	}
	return buf.String(), nil
}

// HTMLPage wraps a rendered fragment in a minimal standalone document.
func HTMLPage(title, fragment string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(htmlEscaper.Replace(title))
	b.WriteString("</title>\n</head>\n<body>\n")
	b.WriteString(fragment)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")
