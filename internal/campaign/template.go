package campaign

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Template holds the outreach email copy. Placeholders use {{name}} syntax:
// {{first_name}}, {{company}}, {{job_title}}, {{sender_name}}.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// DefaultTemplate is used when no template file is configured.
func DefaultTemplate() Template {
	return Template{
		Subject: "Re: {{job_title}} Position at {{company}}",
		Body: `Hi {{first_name}},

I noticed {{company}} is hiring for a {{job_title}} role. We place pre-vetted candidates for exactly this kind of position and typically present a shortlist within a week.

Would you be open to a quick call this week?

Best,
{{sender_name}}`,
	}
}

// LoadTemplate reads a YAML template file. An empty path returns the
// built-in default; a missing subject or body falls back field by field.
func LoadTemplate(path string) (Template, error) {
	tmpl := DefaultTemplate()
	if path == "" {
		return tmpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, eris.Wrapf(err, "campaign: read template %s", path)
	}

	var loaded Template
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Template{}, eris.Wrapf(err, "campaign: parse template %s", path)
	}
	if loaded.Subject != "" {
		tmpl.Subject = loaded.Subject
	}
	if loaded.Body != "" {
		tmpl.Body = loaded.Body
	}
	return tmpl, nil
}

// Render substitutes placeholders in both subject and body.
func (t Template) Render(vars map[string]string) (subject, body string) {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body)
}
