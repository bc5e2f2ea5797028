// Package export writes the summary tables of a view as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/services"
)

const (
	SheetSummary    = "Resumo"
	SheetLocations  = "Estados"
	SheetMonths     = "Meses"
	SheetCategories = "Categorias"
	SheetSellers    = "Vendedores"
)

// Workbook builds one sheet per summary table plus a cover sheet with the
// selection and headline metrics.
func Workbook(view *services.View) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(view)},
		{SheetLocations, locationRows(view)},
		{SheetMonths, monthRows(view)},
		{SheetCategories, categoryRows(view)},
		{SheetSellers, sellerRows(view)},
	}

	for _, s := range sheets {
		if s.name != SheetSummary {
			if _, err := f.NewSheet(s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write sheet %s: %w", s.name, err)
		}
	}

	return f, nil
}

// Write streams the workbook of view to w.
func Write(w io.Writer, view *services.View) error {
	f, err := Workbook(view)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any, header int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return err
	}
	if len(rows) > 0 {
		last, err := excelize.ColumnNumberToName(len(rows[0]))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(view *services.View) [][]any {
	sel := view.Selection
	region := sel.Region
	if region == "" {
		region = "Brasil"
	}
	year := "Todos"
	if sel.Year != 0 {
		year = fmt.Sprint(sel.Year)
	}
	sellers := "Todos"
	if len(sel.Sellers) > 0 {
		sellers = strings.Join(sel.Sellers, ", ")
	}

	return [][]any{
		{"Campo", "Valor"},
		{"Região", region},
		{"Ano", year},
		{"Vendedores", sellers},
		{"Registros obtidos", view.Fetched},
		{"Receita", view.Tables.Totals.Revenue.InexactFloat64()},
		{"Quantidade de vendas", view.Tables.Totals.Count},
		{"Receita (formatada)", view.Metrics.Revenue},
	}
}

func locationRows(view *services.View) [][]any {
	rows := [][]any{{"Local", "Lat", "Lon", "Receita", "Quantidade de vendas"}}
	for _, r := range view.Tables.Revenue.ByLocation {
		rows = append(rows, []any{r.Location.Name, r.Location.Lat, r.Location.Lon, r.Revenue.InexactFloat64(), r.Count})
	}
	return rows
}

func monthRows(view *services.View) [][]any {
	rows := [][]any{{"Fim do mês", "Ano", "Mês", "Receita", "Quantidade de vendas"}}
	for _, r := range view.Tables.Revenue.ByMonth {
		rows = append(rows, []any{r.MonthEnd.Format("2006-01-02"), r.Year, r.MonthName, r.Revenue.InexactFloat64(), r.Count})
	}
	return rows
}

func categoryRows(view *services.View) [][]any {
	rows := [][]any{{"Categoria", "Receita", "Quantidade de vendas"}}
	for _, r := range view.Tables.Revenue.ByCategory {
		rows = append(rows, []any{r.Category, r.Revenue.InexactFloat64(), r.Count})
	}
	return rows
}

func sellerRows(view *services.View) [][]any {
	rows := [][]any{{"Vendedor", "Receita", "Quantidade de vendas"}}
	for _, r := range view.Tables.BySeller {
		rows = append(rows, []any{r.Seller, r.Revenue.InexactFloat64(), r.Count})
	}
	return rows
}
