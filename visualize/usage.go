// Package visualize renders usage charts for the debug dashboard.
package visualize

import (
	"bytes"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ghiac/modelrelay/model"
)

// modelUsage aggregates accounting for one display model.
type modelUsage struct {
	Model    string
	Sessions int
	Tokens   int
}

// aggregateUsage groups sessions by the model recorded in their
// metadata. Sessions that never completed a request have no model and
// are grouped under "unknown".
func aggregateUsage(sessions []*model.Session) []modelUsage {
	byModel := make(map[string]*modelUsage)
	for _, s := range sessions {
		name := s.Metadata["model"]
		if name == "" {
			name = "unknown"
		}
		u, ok := byModel[name]
		if !ok {
			u = &modelUsage{Model: name}
			byModel[name] = u
		}
		u.Sessions++
		u.Tokens += s.TotalTokensUsed
	}

	out := make([]modelUsage, 0, len(byModel))
	for _, u := range byModel {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tokens > out[j].Tokens })
	return out
}

// UsageChart builds a bar chart of token usage per model.
func UsageChart(sessions []*model.Session, title string) *charts.Bar {
	usage := aggregateUsage(sessions)

	models := make([]string, 0, len(usage))
	tokens := make([]opts.BarData, 0, len(usage))
	counts := make([]opts.BarData, 0, len(usage))
	for _, u := range usage {
		models = append(models, u.Model)
		tokens = append(tokens, opts.BarData{Value: u.Tokens})
		counts = append(counts, opts.BarData{Value: u.Sessions})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Aggregated from stored sessions",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "1200px",
			Height: "600px",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
	)

	bar.SetXAxis(models).
		AddSeries("tokens", tokens).
		AddSeries("sessions", counts)

	return bar
}

// RenderUsageChart renders the usage chart as a standalone HTML page.
func RenderUsageChart(sessions []*model.Session, title string) (string, error) {
	bar := UsageChart(sessions, title)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}

	// The default asset host is not always reachable; serve echarts from
	// a public CDN instead.
	html := strings.Replace(buf.String(),
		`<script src="https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"></script>`,
		`<script src="https://cdn.jsdelivr.net/npm/echarts@5/dist/echarts.min.js"></script>`,
		-1)

	return html, nil
}
