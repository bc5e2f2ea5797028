package templates

import (
	"encoding/json"
	"html/template"

	"github.com/a-h/templ"
)

// Tab ids; the labels are what the page shows.
const (
	TabRevenue = "receita"
	TabCount   = "vendas"
	TabSellers = "vendedores"
)

var Tabs = []struct{ ID, Label string }{
	{TabRevenue, "Receita"},
	{TabCount, "Quantidade de vendas"},
	{TabSellers, "Vendedores"},
}

// Page configures the dashboard shell. Charts lists, per tab, the chart
// ids whose options arrive in the _charts signal.
type Page struct {
	Regions     []string
	MinYear     int
	MaxYear     int
	DefaultTopN int
	MinTopN     int
	MaxTopN     int
	Charts      map[string][]string
	// MapScript registers the ECharts map used by bubble charts.
	MapScript string
}

type pageData struct {
	Page
	Signals string
	Tabs    []tabData
}

type tabData struct {
	ID, Label string
	Charts    []string
	Sellers   bool
}

// Dashboard renders the full page. Data arrives later through
// /sse/dashboard, triggered on load.
func Dashboard(p Page) (templ.Component, error) {
	charts := make(map[string]string)
	for _, ids := range p.Charts {
		for _, id := range ids {
			charts[id] = ""
		}
	}

	signals, err := json.Marshal(map[string]any{
		"regiao":     p.Regions[0],
		"todosAnos":  true,
		"ano":        p.MaxYear,
		"vendedores": []string{},
		"topN":       p.DefaultTopN,
		"_tab":       TabRevenue,
		"_charts":    charts,
	})
	if err != nil {
		return nil, err
	}

	data := pageData{Page: p, Signals: string(signals)}
	for _, t := range Tabs {
		data.Tabs = append(data.Tabs, tabData{
			ID:      t.ID,
			Label:   t.Label,
			Charts:  p.Charts[t.ID],
			Sellers: t.ID == TabSellers,
		})
	}
	return component(pageTemplate, data), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dashboard de vendas</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/echarts@5.5.1/dist/echarts.min.js"></script>
{{with .MapScript}}<script src="{{.}}"></script>
{{end}}<script>
window.renderChart = function (el, option) {
  if (!option) { return; }
  var chart = echarts.getInstanceByDom(el) || echarts.init(el);
  chart.setOption(JSON.parse(option), true);
};
window.addEventListener("resize", function () {
  document.querySelectorAll(".chart").forEach(function (el) {
    var chart = echarts.getInstanceByDom(el);
    if (chart) { chart.resize(); }
  });
});
</script>
<style>
body { margin: 0; font-family: system-ui, sans-serif; display: flex; min-height: 100vh; }
aside { width: 260px; padding: 1rem; background: #f1f5f9; }
aside label { display: block; margin-top: 1rem; font-weight: 600; }
aside select, aside input[type=range] { width: 100%; }
main { flex: 1; padding: 1rem 2rem; }
.tabs button { padding: .5rem 1rem; border: 0; background: none; cursor: pointer; }
.tabs button.active { border-bottom: 2px solid #ef4444; font-weight: 600; }
.metrics { display: flex; gap: 3rem; margin: 1rem 0; }
.metric strong { display: block; font-size: 1.8rem; }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 1rem; }
.chart { height: 380px; }
.page-error { padding: .75rem 1rem; background: #fee2e2; color: #991b1b; border-radius: 4px; }
.stepper button { width: 2rem; }
</style>
</head>
<body data-signals="{{.Signals}}" data-init="@get('/sse/dashboard')">
<aside>
<h2>Filtros</h2>
<label for="regiao">Região</label>
<select id="regiao" data-bind:regiao data-on:change="@get('/sse/dashboard')">
{{range .Regions}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
<label><input type="checkbox" data-bind:todos-anos data-on:change="@get('/sse/dashboard')"> Dados de todo o período</label>
<div data-show="!$todosAnos">
<label for="ano">Ano <span data-text="$ano"></span></label>
<input id="ano" type="range" min="{{.MinYear}}" max="{{.MaxYear}}" step="1" data-bind:ano data-on:change="@get('/sse/dashboard')">
</div>
<label for="vendedores">Vendedores</label>
<select id="vendedores" multiple size="8" data-bind:vendedores data-on:change="@get('/sse/dashboard')"></select>
</aside>
<main>
<h1>Dashboard de vendas</h1>
<div id="page-error"></div>
<nav class="tabs">
{{range .Tabs}}<button data-class:active="$_tab == '{{.ID}}'" data-on:click="$_tab = '{{.ID}}'">{{.Label}}</button>
{{end}}</nav>
{{range .Tabs}}<section id="tab-{{.ID}}" data-show="$_tab == '{{.ID}}'">
<div id="metrics-{{.ID}}" class="metrics"></div>
{{if .Sellers}}<div class="stepper">
<label>Quantidade de vendedores</label>
<button data-on:click="$topN = Math.max({{$.MinTopN}}, $topN - 1); @get('/sse/sellers')">-</button>
<span data-text="$topN"></span>
<button data-on:click="$topN = Math.min({{$.MaxTopN}}, $topN + 1); @get('/sse/sellers')">+</button>
</div>{{end}}
<div class="grid">
{{range .Charts}}<div id="chart-{{.}}" class="chart" data-effect="renderChart(el, $_charts.{{.}})"></div>
{{end}}</div>
</section>
{{end}}</main>
</body>
</html>
`))
