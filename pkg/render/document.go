package render

import (
	"bytes"
	"html/template"

	"github.com/pkg/errors"

	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

var documentTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{ .Title }}</title></head>
<body>
<div class="chat-messages">
{{- range .Nodes }}
{{- if eq .Role "user" }}
<div class="message user">
  <div class="message-content"><div class="message-bubble">{{ .Body }}</div></div>
  <div class="message-avatar user-avatar-msg">{{ $.UserInitials }}</div>
</div>
{{- else }}
<div class="message ai">
  <div class="message-avatar ai-avatar"><img src="{{ $.AssistantAvatar }}" alt="AI Avatar"></div>
  <div class="message-content"><div class="message-bubble markdown-content">{{ .Body }}</div></div>
</div>
{{- end }}
{{- end }}
</div>
</body>
</html>
`))

type documentNode struct {
	Role string
	Body template.HTML
}

// Document renders nodes as a standalone HTML page. Node bodies are already
// safe HTML and are embedded as-is; typing placeholders are skipped.
func Document(title string, nodes []transcript.Node, chat config.ChatConfig) (string, error) {
	data := struct {
		Title           string
		UserInitials    string
		AssistantAvatar string
		Nodes           []documentNode
	}{
		Title:           title,
		UserInitials:    chat.UserInitials,
		AssistantAvatar: chat.AssistantAvatar,
	}
	for _, n := range nodes {
		if n.Kind != transcript.KindTurn {
			continue
		}
		// #nosec G203 -- bodies are escaped or sanitized by the renderer
		data.Nodes = append(data.Nodes, documentNode{Role: string(n.Role), Body: template.HTML(n.HTML)})
	}
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render transcript document")
	}
	return buf.String(), nil
}
