// Package report builds ticker sentiment reports from analysis results.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/store"
)

// Source is the read side of the store a report needs.
type Source interface {
	TickerSummary(ctx context.Context, f store.SummaryFilter) ([]store.TickerSummary, error)
	StatusCounts(ctx context.Context, tag string) (store.StatusCounts, error)
	LatestModelForTag(ctx context.Context, tag string) (string, error)
	CountRecords(ctx context.Context) (int, error)
}

// Report is a compiled ticker report ready for rendering.
type Report struct {
	Tag         string                `json:"tag"`
	Model       string                `json:"model,omitempty"`
	Records     int                   `json:"records"`
	Counts      store.StatusCounts    `json:"counts"`
	Subreddits  []string              `json:"subreddits,omitempty"`
	Since       time.Time             `json:"since,omitzero"`
	Rows        []store.TickerSummary `json:"rows"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Builder creates reports from the store
type Builder struct {
	src      Source
	topN     int
	template *template.Template
	now      func() time.Time
}

// New creates a report builder that keeps the topN highest scoring tickers.
func New(src Source, topN int) (*Builder, error) {
	tmpl, err := template.New("report").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if topN <= 0 {
		topN = 25
	}
	return &Builder{src: src, topN: topN, template: tmpl, now: time.Now}, nil
}

// Build compiles the report for f.Tag. f.Limit overrides the builder's
// top N when set.
func (b *Builder) Build(ctx context.Context, f store.SummaryFilter) (*Report, error) {
	if f.Tag == "" {
		return nil, fmt.Errorf("no analysis tag to report on")
	}
	if f.Limit <= 0 {
		f.Limit = b.topN
	}

	rows, err := b.src.TickerSummary(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("summarise tickers: %w", err)
	}
	counts, err := b.src.StatusCounts(ctx, f.Tag)
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	records, err := b.src.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	model, err := b.src.LatestModelForTag(ctx, f.Tag)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("latest model: %w", err)
	}

	return &Report{
		Tag:         f.Tag,
		Model:       model,
		Records:     records,
		Counts:      counts,
		Subreddits:  f.Subreddits,
		Since:       f.Since,
		Rows:        rows,
		GeneratedAt: b.now(),
	}, nil
}

// WriteHTML renders r as a standalone HTML page.
func (b *Builder) WriteHTML(w io.Writer, r *Report) error {
	var buf bytes.Buffer
	if err := b.template.Execute(&buf, r); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Ticker sentiment: {{.Tag}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #16858e; margin-bottom: 5px; }
        .meta { color: #666; margin-bottom: 20px; font-size: 14px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 6px 10px; text-align: right; border-bottom: 1px solid #eee; }
        th:nth-child(2), td:nth-child(2) { text-align: left; }
        .pos { color: #1e9e6a; }
        .neg { color: #e74c3c; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Ticker sentiment: {{.Tag}}</h1>
        <div class="meta">
            {{if .Model}}Model {{.Model}} · {{end}}{{.Records}} records · {{.Counts.OK}} ok · {{.Counts.Skipped}} skipped · {{.Counts.Error}} errors
            {{if .Subreddits}}<br>Subreddits: {{range $i, $s := .Subreddits}}{{if $i}}, {{end}}r/{{$s}}{{end}}{{end}}
            {{if not .Since.IsZero}}<br>Since {{.Since.Format "2006-01-02 15:04"}}{{end}}
        </div>
        {{if .Rows}}
        <table>
            <tr><th>#</th><th>Ticker</th><th>Bullish</th><th>Bearish</th><th>Neutral</th><th>Mentions</th><th>Score</th></tr>
            {{range $i, $r := .Rows}}
            <tr>
                <td>{{inc $i}}</td><td>{{$r.Ticker}}</td><td>{{$r.Bullish}}</td><td>{{$r.Bearish}}</td><td>{{$r.Neutral}}</td><td>{{$r.Mentions}}</td>
                <td class="{{if gt $r.Score 0}}pos{{else if lt $r.Score 0}}neg{{end}}">{{$r.Score}}</td>
            </tr>
            {{end}}
        </table>
        {{else}}
        <p>No mentions recorded for this tag yet.</p>
        {{end}}
        <div class="footer">Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}} by stock-sentiment</div>
    </div>
</body>
</html>`
