package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Context is the data every notification email template receives.
type Context struct {
	Recipient string
	Title     string
	Body      string
	ActionURL string
	SiteName  string
}

const htmlLayout = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.Title}}</h2>
  <p>Hello {{.Recipient}},</p>
  <p>{{.Body}}</p>
  {{- if .ActionURL}}
  <p><a href="{{.ActionURL}}">View Details</a></p>
  {{- end}}
  <p>Thank you,<br>{{.SiteName}}</p>
</body>
</html>`

const textLayout = `Hello {{.Recipient}},

{{.Body}}
{{if .ActionURL}}
View details: {{.ActionURL}}
{{end}}
Thank you,
{{.SiteName}}`

// Renderer turns a Context into an email subject and bodies.
type Renderer struct {
	html *template.Template
	text *texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	h, err := template.New("notification.html").Parse(htmlLayout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	t, err := texttemplate.New("notification.txt").Parse(textLayout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	return &Renderer{html: h, text: t}, nil
}

// MustRenderer panics if the built-in templates fail to parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render returns subject, html and plain-text bodies.
func (r *Renderer) Render(data Context) (subject, html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := r.html.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render html email: %w", err)
	}
	if err := r.text.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render text email: %w", err)
	}

	subject = data.Title
	if data.SiteName != "" {
		subject = fmt.Sprintf("%s - %s", data.Title, data.SiteName)
	}
	return subject, hb.String(), tb.String(), nil
}
