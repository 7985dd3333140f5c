// Package report renders evidence bundles for people: a Markdown report and
// a GeoJSON map payload. Renderers only read the bundle.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/exposure"
	"oact/internal/signal"
)

// NoSMEsAffected is printed when the exposure set is empty.
const NoSMEsAffected = "No SMEs affected within the impact radius."

var markdownTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"km":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"cell": cell,
	"ts":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`# Resilience Report: {{ cell .Signal.Location }}
{{ if .Decision.IsHighPriority }}
> **HIGH PRIORITY**: {{ .Decision.Tier }} decision at risk score {{ .Decision.Score }}. Immediate action required.
{{ end }}
| Field | Value |
|---|---|
| Bundle | {{ .ID }} |
| Assessed at | {{ ts .CreatedAt }} |
| Registry version | {{ .RegistryVersion }} |
| Primary driver | {{ cell .Signal.PrimaryDriver }} |
| Estimated impact | {{ cell .Signal.EstimatedImpact }} |
| Risk score | {{ .Decision.Score }} |
| Decision | {{ .Decision.Tier }} ({{ .Decision.Priority }}) |
| Epicenter | {{ .Signal.GeoCenter.Latitude }}, {{ .Signal.GeoCenter.Longitude }} |
| Impact radius | {{ km .Signal.GeoCenter.ImpactRadiusKm }} km |

## Affected SMEs ({{ len .Exposures }})

{{ if .Exposures -}}
| SME ID | Name | Sector | County | Distance (km) |
|---|---|---|---|---|
{{ range .Exposures -}}
| {{ cell .Entry.ID }} | {{ cell .Entry.Name }} | {{ cell .Entry.Sector }} | {{ cell .Entry.County }} | {{ km .DistanceKm }} |
{{ end -}}
{{ else -}}
` + NoSMEsAffected + `
{{ end -}}
{{ if .Routes }}
## Delivery routes

| SME ID | Route | Status | Distance (km) |
|---|---|---|---|
{{ range .Routes -}}
| {{ cell .SMEID }} | {{ cell .Origin }} -> {{ cell .Destination }} | {{ if .Interrupted }}INTERRUPTED{{ else }}clear{{ end }} | {{ km .DistanceKm }} |
{{ end -}}
{{ end -}}
`))

type markdownView struct {
	ID              string
	CreatedAt       time.Time
	RegistryVersion string
	Signal          signal.RiskSignal
	Decision        decision.Result
	Exposures       []exposure.Match
	Routes          []exposure.RouteImpact
}

// Markdown renders the bundle as a Markdown report. Distances are rounded to
// two decimals for display only; the bundle keeps full precision.
func Markdown(b *evidence.Bundle) (string, error) {
	view := markdownView{
		ID:              b.ID(),
		CreatedAt:       b.CreatedAt(),
		RegistryVersion: b.RegistryVersion(),
		Signal:          b.Signal(),
		Decision:        b.Decision(),
		Exposures:       b.Exposures(),
		Routes:          b.Routes(),
	}

	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering report for bundle %s: %w", b.ID(), err)
	}
	return buf.String(), nil
}

// cell keeps free text from breaking a Markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
