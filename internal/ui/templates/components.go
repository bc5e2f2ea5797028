// Package templates holds the dashboard page and the fragments patched
// into it over SSE. Every piece is a templ.Component.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

// component adapts a parsed template to templ.Component.
func component(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return t.Execute(w, data)
	})
}

// MetricsID is the element id of the headline metrics inside tab.
func MetricsID(tab string) string {
	return "metrics-" + tab
}

var metricsTemplate = template.Must(template.New("metrics").Parse(
	`<div id="{{.ID}}" class="metrics">` +
		`<div class="metric"><span class="metric-label">Receita</span><strong>{{.Revenue}}</strong></div>` +
		`<div class="metric"><span class="metric-label">Quantidade de vendas</span><strong>{{.Count}}</strong></div>` +
		`</div>`))

// Metrics renders the two headline figures of one tab.
func Metrics(tab, revenue, count string) templ.Component {
	return component(metricsTemplate, struct{ ID, Revenue, Count string }{MetricsID(tab), revenue, count})
}

var sellerSelectTemplate = template.Must(template.New("sellers").Parse(
	`<select id="vendedores" multiple size="8" data-bind:vendedores data-on:change="@get('/sse/dashboard')">` +
		`{{range .}}<option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>{{end}}` +
		`</select>`))

type sellerOption struct {
	Name     string
	Selected bool
}

// SellerSelect renders the salesperson multiselect with the given
// options, keeping the current choices selected.
func SellerSelect(names, selected []string) templ.Component {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	options := make([]sellerOption, 0, len(names))
	for _, n := range names {
		options = append(options, sellerOption{Name: n, Selected: chosen[n]})
	}
	return component(sellerSelectTemplate, options)
}

var errorBannerTemplate = template.Must(template.New("error").Parse(
	`<div id="page-error"{{if .}} class="page-error" role="alert"{{end}}>{{.}}</div>`))

// ErrorBanner renders the page-level error slot. An empty message clears it.
func ErrorBanner(message string) templ.Component {
	return component(errorBannerTemplate, message)
}
