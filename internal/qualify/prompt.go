package qualify

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/zulandar/leadyard/internal/models"
)

// unknown is printed for unset fields in prompts.
const unknown = "unknown"

const extractTemplate = `Extract structured CRM data from the conversation below.
Only update fields the buyer explicitly mentioned.
Return ONLY valid JSON.

Schema:
{
  "budget": number or null,
  "location": string or null,
  "property_type": string or null,
  "timeline_months": number or null
}

Conversation:
{{ range .Transcript }}{{ .Speaker }}: {{ .Text }}
{{ end }}
JSON:`

const judgeTemplate = `Decide if the buyer conversation is complete.

Complete only if:
- Budget known
- Timeline known
- Property type known
- Buyer clearly confirms no more questions

Return ONLY:
{ "chat_completed": true or false }

Structured:
Budget: {{ .Budget }}
Timeline: {{ .Timeline }}
Property Type: {{ .PropertyType }}

Conversation:
{{ range .Transcript }}{{ .Speaker }}: {{ .Text }}
{{ end }}
JSON:`

const replyTemplate = `You are an intelligent real estate AI agent inside a CRM.

Rules:
- Ask ONE important question at a time.
- Be concise.
- Keep replies under 4 sentences.

Lead Data:
Budget: {{ .Budget }}
Timeline: {{ .Timeline }}
Property Type: {{ .PropertyType }}
Location: {{ .Location }}
Recommended Action: {{ .RecommendedAction }}

Conversation:
{{ range .Transcript }}{{ .Speaker }}: {{ .Text }}
{{ end }}
Assistant:`

var (
	extractPrompt = template.Must(template.New("extract").Parse(extractTemplate))
	judgePrompt   = template.Must(template.New("judge").Parse(judgeTemplate))
	replyPrompt   = template.Must(template.New("reply").Parse(replyTemplate))
)

// promptLine is one role-labelled transcript line.
type promptLine struct {
	Speaker string
	Text    string
}

// promptData is the view of a lead every prompt renders from.
type promptData struct {
	Budget            string
	Timeline          string
	PropertyType      string
	Location          string
	RecommendedAction string
	Transcript        []promptLine
}

func newPromptData(l *models.Lead) promptData {
	d := promptData{
		Budget:            formatNumber(l.Budget),
		Timeline:          formatNumber(l.TimelineMonths),
		PropertyType:      formatText(l.PropertyType),
		Location:          formatText(l.Location),
		RecommendedAction: formatText(l.RecommendedAction),
		Transcript:        make([]promptLine, 0, len(l.Conversation)),
	}
	for _, m := range l.Conversation {
		d.Transcript = append(d.Transcript, promptLine{Speaker: speaker(m.Role), Text: m.Text})
	}
	return d
}

func speaker(role string) string {
	if role == models.RoleBuyer {
		return "Buyer"
	}
	return "Assistant"
}

func render(tmpl *template.Template, l *models.Lead) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newPromptData(l)); err != nil {
		return "", fmt.Errorf("qualify: render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// formatNumber prints v without a trailing ".0", or "unknown" when unset.
func formatNumber(v *float64) string {
	if v == nil {
		return unknown
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatText(v *string) string {
	if v == nil || *v == "" {
		return unknown
	}
	return *v
}
