package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

type section struct {
	heading string
	fields  []string
}

// businessPlanSections orders the synthesized business plan fields.
var businessPlanSections = []section{
	{"Problem & Solution", []string{"problem", "painPoints", "solution", "uniqueValueProp"}},
	{"Market Analysis", []string{"marketSize", "marketGrowth", "marketDescription", "targetCustomer", "marketTrends"}},
	{"Competitive Landscape", []string{"competitors", "marketSaturation", "barriersToEntry"}},
	{"Revenue Model", []string{"revenueModel", "pricingStrategy", "pricePoints", "pricingRationale", "revenueStreams"}},
	{"Go-to-Market", []string{"channels", "marketingStrategy", "salesStrategy", "timeline", "marketingBudget"}},
	{"Financial Projections", []string{"keyMetrics", "costStructure", "fundingNeeds"}},
	{"Risks & Opportunities", []string{"riskFactors", "opportunities", "nextSteps"}},
}

// headerFields are rendered as the document title and tagline.
var headerFields = []string{"title", "tagline"}

// Title derives a document title from the run's idea and industry.
func Title(params map[string]any) string {
	idea, _ := params["idea"].(string)
	industry, _ := params["industry"].(string)
	return agent.Title(idea, industry)
}

// RenderMarkdown renders a run as a Markdown document: the artifact's fields
// by section when the run has one, otherwise each usable stage result.
func RenderMarkdown(def *orchestrator.Definition, run *orchestrator.PipelineRun) string {
	var sb strings.Builder
	var fields map[string]any
	if run.Artifact != nil {
		fields = run.Artifact.Fields
	}
	title, ok := fields["title"].(string)
	if !ok {
		title = Title(run.Params)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if tagline, ok := fields["tagline"].(string); ok {
		fmt.Fprintf(&sb, "_%s_\n\n", tagline)
	} else if industry, _ := run.Params["industry"].(string); industry != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", agent.Tagline(industry))
	}
	fmt.Fprintf(&sb, "Pipeline `%s`, run `%s`: **%s** (%.0f%%)\n\n", run.DefinitionID, run.ID, run.Outcome, run.OverallProgress)

	if a := run.Artifact; a != nil {
		done := make(map[string]bool)
		for _, f := range headerFields {
			done[f] = true
		}
		for _, sec := range businessPlanSections {
			writeSection(&sb, sec, a.Fields, done)
		}
		var rest []string
		for k := range a.Fields {
			if !done[k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		writeSection(&sb, section{"Additional Insights", rest}, a.Fields, done)

		fmt.Fprintf(&sb, "## Confidence\n\n%d%%\n\n", a.Confidence)
		if len(a.DataSources) > 0 {
			sb.WriteString("## Data Sources\n\n")
			for _, s := range a.DataSources {
				fmt.Fprintf(&sb, "- %s (%s, %d%%)\n", s.Name, s.Type, s.Confidence)
			}
			sb.WriteString("\n")
		}
	} else {
		for _, id := range def.StageIDs() {
			res, ok := run.Results[id]
			if !ok || !run.Statuses[id].IsUsable() {
				continue
			}
			fmt.Fprintf(&sb, "## %s\n\n", humanize(string(id)))
			writeMap(&sb, res.Payload, 0)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Stages\n\n| Stage | Status | Confidence |\n|---|---|---|\n")
	for _, id := range def.StageIDs() {
		conf := "-"
		if res, ok := run.Results[id]; ok {
			conf = fmt.Sprintf("%d%%", res.Confidence)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", id, run.Statuses[id], conf)
	}
	return sb.String()
}

// RenderHTML converts Markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}
	return buf.String(), nil
}

func writeSection(sb *strings.Builder, sec section, fields map[string]any, done map[string]bool) {
	var present []string
	for _, f := range sec.fields {
		if _, ok := fields[f]; ok && !done[f] {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", sec.heading)
	for _, f := range present {
		done[f] = true
		fmt.Fprintf(sb, "### %s\n\n", humanize(f))
		writeValue(sb, fields[f], 0)
		sb.WriteString("\n")
	}
}

func writeValue(sb *strings.Builder, v any, depth int) {
	switch val := v.(type) {
	case []string:
		for _, s := range val {
			fmt.Fprintf(sb, "%s- %s\n", indent(depth), s)
		}
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				fmt.Fprintf(sb, "%s- %s\n", indent(depth), describe(m))
				continue
			}
			fmt.Fprintf(sb, "%s- %v\n", indent(depth), item)
		}
	case map[string]any:
		writeMap(sb, val, depth)
	case orchestrator.Payload:
		writeMap(sb, val, depth)
	default:
		fmt.Fprintf(sb, "%s%v\n", indent(depth), val)
	}
}

func writeMap(sb *strings.Builder, m map[string]any, depth int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case []string, []any, map[string]any:
			fmt.Fprintf(sb, "%s- **%s**:\n", indent(depth), humanize(k))
			writeValue(sb, v, depth+1)
		default:
			fmt.Fprintf(sb, "%s- **%s**: %v\n", indent(depth), humanize(k), v)
		}
	}
}

// describe renders a named record (a competitor, a plan) on one line.
func describe(m map[string]any) string {
	name, ok := m["name"]
	if !ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %v", k, m[k])
		}
		return strings.Join(parts, ", ")
	}
	line := fmt.Sprintf("**%v**", name)
	if d, ok := m["description"]; ok {
		line += fmt.Sprintf(": %v", d)
	}
	var extra []string
	for _, k := range []string{"funding", "stage"} {
		if v, ok := m[k]; ok {
			extra = append(extra, fmt.Sprint(v))
		}
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	return line
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// humanize turns a camelCase key into a sentence-case label.
func humanize(key string) string {
	var sb strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte(' ')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
