package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"execbrief/internal/core"
)

// documentData is the template payload for the exportable document.
type documentData struct {
	Title         string
	Date          string
	TimeRange     string
	Sections      []documentSection
	SourcesUsed   string
	RejectedCount int
	ItemCount     int
}

// documentSection is one topic-group section of the document.
type documentSection struct {
	Heading string
	Items   []core.ScoredItem
}

var sectionHeadings = map[core.TopicGroup]string{
	core.TopicStrategy:   "Strategy",
	core.TopicRisk:       "Risk & Governance",
	core.TopicOperations: "Operations",
	core.TopicTechnology: "Technology",
}

// Item text is untrusted external content. Escaping happens in exactly one
// place: html/template's contextual auto-escaping as this template executes.
// No field may bypass it with template.HTML.
const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif; max-width: 720px; margin: 0 auto; padding: 24px; color: #1e293b; }
  h1 { color: #2563eb; border-bottom: 2px solid #e2e8f0; padding-bottom: 8px; }
  h2 { color: #334155; margin-top: 32px; }
  .meta { color: #64748b; font-size: 14px; }
  .item { border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px; margin: 12px 0; }
  .item h3 { margin: 0 0 4px 0; font-size: 16px; }
  .score { display: inline-block; background: #2563eb; color: #ffffff; border-radius: 12px; padding: 1px 10px; font-size: 13px; }
  .why { font-style: italic; color: #475569; margin-top: 8px; }
  .source { color: #64748b; font-size: 13px; }
  footer { margin-top: 32px; color: #64748b; font-size: 13px; border-top: 1px solid #e2e8f0; padding-top: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.Date}} &middot; Range {{.TimeRange}} &middot; {{.ItemCount}} items</p>
{{range .Sections}}
<h2>{{.Heading}}</h2>
{{range .Items}}
<div class="item">
  <h3>{{.Title}} <span class="score">{{.ImportanceScore}}</span></h3>
  <p>{{.Synthesis}}</p>
  {{if .WhyItMatters}}<p class="why">Why it matters: {{.WhyItMatters}}</p>{{end}}
  <p class="source"><a href="{{.URL}}" rel="noopener">{{.SourceName}}</a>{{if not .Published.IsZero}} &middot; {{.Published.Format "Jan 2, 2006"}}{{end}}</p>
</div>
{{end}}
{{end}}
<footer>Sources: {{.SourcesUsed}}. {{.RejectedCount}} items were screened out below the importance threshold.</footer>
</body>
</html>
`

var documentTmpl = template.Must(template.New("document").Parse(documentTemplate))

// RenderHTML renders a brief as a self-contained static HTML document.
// The brief must already have passed Validate.
func RenderHTML(brief *core.Brief) (string, error) {
	if err := Validate(brief); err != nil {
		return "", err
	}

	// Group from the flat item list rather than trusting a posted
	// GroupedItems map to agree with it.
	grouped := make(map[core.TopicGroup][]core.ScoredItem)
	for _, item := range brief.Items {
		grouped[item.TopicGroup] = append(grouped[item.TopicGroup], item)
	}

	var sections []documentSection
	for _, group := range core.TopicGroupOrder {
		items := grouped[group]
		if len(items) == 0 {
			continue
		}
		sections = append(sections, documentSection{
			Heading: sectionHeadings[group],
			Items:   items,
		})
	}

	data := documentData{
		Title:         fmt.Sprintf("Executive AI Brief - %s", brief.GeneratedAt.Format("January 2, 2006")),
		Date:          brief.GeneratedAt.Format("January 2, 2006 15:04 UTC"),
		TimeRange:     brief.TimeRange,
		Sections:      sections,
		SourcesUsed:   strings.Join(brief.SourcesUsed, ", "),
		RejectedCount: brief.RejectedCount,
		ItemCount:     len(brief.Items),
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}
