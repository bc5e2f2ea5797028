// Package charts turns summary tables into ECharts options. The options
// are built with go-echarts and rendered by ECharts in the browser.
package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/datasets"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

// Chart ids, also used as the client-side signal keys.
const (
	MapRevenue        = "mapRevenue"
	MapCount          = "mapCount"
	MonthlyRevenue    = "monthlyRevenue"
	MonthlyCount      = "monthlyCount"
	LocationsRevenue  = "locationsRevenue"
	LocationsCount    = "locationsCount"
	CategoriesRevenue = "categoriesRevenue"
	CategoriesCount   = "categoriesCount"
	SellersRevenue    = "sellersRevenue"
	SellersCount      = "sellersCount"
)

const (
	maxWorkers = 4

	geoMap  = "world"
	mapZoom = 4

	minSymbol = 8
	maxSymbol = 50
)

// MapScript registers the map the bubble charts are drawn on. It must
// load after ECharts.
var MapScript = "https://go-echarts.github.io/go-echarts-assets/assets/maps/" + datasets.MapFileNames[geoMap] + ".js"

var (
	mapCenter = [2]float64{-55, -15}

	yearColors = []string{"#5470c6", "#ee6666", "#91cc75", "#fac858", "#73c0de", "#9a60b4"}
	yearDashes = []string{"solid", "dashed", "dotted"}
)

// Chart is one ECharts option document.
type Chart struct {
	ID     string          `json:"id"`
	Option json.RawMessage `json:"option"`
}

type option interface {
	Validate()
	JSON() map[string]interface{}
}

type builder struct {
	id    string
	build func() option
}

// Dashboard builds every chart of a view, in the order the page shows them.
func Dashboard(ctx context.Context, view *services.View) ([]Chart, error) {
	t := view.Tables
	return buildAll(ctx, []builder{
		{MapRevenue, func() option { return geo(t.Revenue.ByLocation, models.MetricRevenue, "Receita por estado") }},
		{LocationsRevenue, func() option {
			return locations(t.Revenue.ByLocation, models.MetricRevenue, "Top estados (receita)", "Receita")
		}},
		{MonthlyRevenue, func() option { return monthly(t.Revenue.ByMonth, models.MetricRevenue, "Receita mensal", "Receita") }},
		{CategoriesRevenue, func() option {
			return categories(t.Revenue.ByCategory, models.MetricRevenue, "Receita por categoria", "Receita")
		}},
		{MapCount, func() option { return geo(t.Count.ByLocation, models.MetricCount, "Vendas por estado") }},
		{LocationsCount, func() option {
			return locations(t.Count.ByLocation, models.MetricCount, "Top 5 estados", "Quantidade de vendas")
		}},
		{MonthlyCount, func() option {
			return monthly(t.Count.ByMonth, models.MetricCount, "Quantidade de vendas mensal", "Quantidade de vendas")
		}},
		{CategoriesCount, func() option {
			return categories(t.Count.ByCategory, models.MetricCount, "Vendas por categoria", "Quantidade de vendas")
		}},
		{SellersRevenue, func() option { return sellers(view.TopByRevenue, models.MetricRevenue, view.Selection.TopN) }},
		{SellersCount, func() option { return sellers(view.TopByCount, models.MetricCount, view.Selection.TopN) }},
	})
}

// Sellers builds only the two top-N seller charts.
func Sellers(ctx context.Context, view *services.View) ([]Chart, error) {
	return buildAll(ctx, []builder{
		{SellersRevenue, func() option { return sellers(view.TopByRevenue, models.MetricRevenue, view.Selection.TopN) }},
		{SellersCount, func() option { return sellers(view.TopByCount, models.MetricCount, view.Selection.TopN) }},
	})
}

func buildAll(ctx context.Context, builders []builder) ([]Chart, error) {
	out := make([]Chart, len(builders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, b := range builders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := render(b.build())
			if err != nil {
				return fmt.Errorf("chart %s: %w", b.id, err)
			}
			out[i] = Chart{ID: b.id, Option: raw}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func render(c option) (json.RawMessage, error) {
	c.Validate()
	return json.Marshal(c.JSON())
}

func baseOpts(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

// geoScope adds the viewport ECharts needs to frame South America;
// go-echarts only models the map name and style.
type geoScope struct {
	opts.GeoComponent
	Center [2]float64 `json:"center"`
	Zoom   float64    `json:"zoom"`
	Roam   bool       `json:"roam"`
}

// geoChart is a go-echarts Geo whose geo component carries geoScope.
type geoChart struct {
	*charts.Geo
}

func (g geoChart) JSON() map[string]interface{} {
	obj := g.Geo.JSON()
	obj["geo"] = geoScope{GeoComponent: g.GeoComponent, Center: mapCenter, Zoom: mapZoom, Roam: true}
	return obj
}

// geoPoint is a scatter item on the map with its own bubble size.
type geoPoint struct {
	Name       string    `json:"name"`
	Value      []float64 `json:"value"`
	SymbolSize int       `json:"symbolSize"`
}

// geo is a bubble map of locations. Bubble area grows with the metric.
func geo(rows []models.LocationSummary, m models.Metric, title string) geoChart {
	g := charts.NewGeo()
	g.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGeoComponentOpts(opts.GeoComponent{
			Map:       geoMap,
			ItemStyle: &opts.ItemStyle{AreaColor: "#e2e8f0", BorderColor: "#94a3b8"},
		}),
	)

	peak := 0.0
	for _, r := range rows {
		peak = math.Max(peak, r.Value(m))
	}

	points := make([]geoPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, geoPoint{
			Name:       r.Location.Name,
			Value:      []float64{r.Location.Lon, r.Location.Lat, r.Value(m)},
			SymbolSize: symbolSize(r.Value(m), peak),
		})
	}
	g.AddSeries(title, types.ChartScatter, nil,
		charts.WithSeriesOpts(func(s *charts.SingleSeries) { s.Data = points }),
	)
	return geoChart{g}
}

func symbolSize(v, peak float64) int {
	if peak <= 0 || v <= 0 {
		return minSymbol
	}
	return minSymbol + int(math.Round(float64(maxSymbol-minSymbol)*math.Sqrt(v/peak)))
}

// monthly draws one line per year over the month names. Each year gets
// its own color and dash pattern.
func monthly(rows []models.MonthSummary, m models.Metric, title, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOpts(title),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Mês"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)...)

	months := make([]time.Month, 0, 12)
	years := make([]int, 0)
	values := make(map[int]map[time.Month]float64)
	for _, r := range rows {
		month := r.MonthEnd.Month()
		if !slices.Contains(months, month) {
			months = append(months, month)
		}
		if _, ok := values[r.Year]; !ok {
			years = append(years, r.Year)
			values[r.Year] = make(map[time.Month]float64)
		}
		values[r.Year][month] = r.Value(m)
	}
	slices.Sort(months)

	names := make([]string, len(months))
	for i, month := range months {
		names[i] = month.String()
	}
	line.SetXAxis(names)

	for i, year := range years {
		data := make([]opts.LineData, len(months))
		for j, month := range months {
			if v, ok := values[year][month]; ok {
				data[j] = opts.LineData{Value: v}
			} else {
				data[j] = opts.LineData{Value: nil}
			}
		}
		color := yearColors[i%len(yearColors)]
		line.AddSeries(fmt.Sprint(year), data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: color, Type: yearDashes[i%len(yearDashes)]}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}
	return line
}

func locations(rows []models.LocationSummary, m models.Metric, title, yName string) *charts.Bar {
	rows = rows[:min(len(rows), services.TopLocations)]
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, r := range rows {
		names[i] = r.Location.Name
		data[i] = opts.BarData{Name: r.Location.Name, Value: r.Value(m)}
	}
	return bar(title, yName, names, data, false)
}

func categories(rows []models.CategorySummary, m models.Metric, title, yName string) *charts.Bar {
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, r := range rows {
		names[i] = r.Category
		data[i] = opts.BarData{Name: r.Category, Value: r.Value(m)}
	}
	return bar(title, yName, names, data, false)
}

func sellers(rows []models.SellerSummary, m models.Metric, n int) *charts.Bar {
	n = services.ClampTopN(n)
	title := fmt.Sprintf("Top %d vendedores (receita)", n)
	if m == models.MetricCount {
		title = fmt.Sprintf("Top %d vendedores (quantidade de vendas)", n)
	}

	// horizontal bars read top to bottom, so the largest goes last
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, r := range rows {
		j := len(rows) - 1 - i
		names[j] = r.Seller
		data[j] = opts.BarData{Name: r.Seller, Value: r.Value(m)}
	}
	return bar(title, "", names, data, true)
}

func bar(title, valueName string, names []string, data []opts.BarData, horizontal bool) *charts.Bar {
	b := charts.NewBar()
	b.SetGlobalOptions(append(baseOpts(title),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Name: valueName, AxisLabel: &opts.AxisLabel{Show: opts.Bool(true)}}),
	)...)
	position := "top"
	if horizontal {
		position = "right"
	}
	b.SetXAxis(names).AddSeries(title, data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: position}),
	)
	if horizontal {
		b.XYReversal()
	}
	return b
}
