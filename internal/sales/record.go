package sales

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const purchaseDateLayout = "02/01/2006"

// wireSale mirrors one object of the data API response.
type wireSale struct {
	Category string          `json:"Categoria do Produto"`
	Product  string          `json:"Produto"`
	Price    decimal.Decimal `json:"Preço"`
	Date     string          `json:"Data da Compra"`
	Location string          `json:"Local da compra"`
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	Seller   string          `json:"Vendedor"`
}

func (w wireSale) toSale() (models.Sale, error) {
	date, err := time.Parse(purchaseDateLayout, strings.TrimSpace(w.Date))
	if err != nil {
		return models.Sale{}, fmt.Errorf("parse purchase date %q: %w", w.Date, err)
	}
	return models.Sale{
		Category:     w.Category,
		Product:      w.Product,
		Price:        w.Price,
		PurchaseDate: date,
		Location: models.Location{
			Name: w.Location,
			Lat:  w.Lat,
			Lon:  w.Lon,
		},
		Seller: w.Seller,
	}, nil
}

// DecodeSales reads a JSON array of sale objects.
func DecodeSales(r io.Reader) ([]models.Sale, error) {
	dec := json.NewDecoder(r)
	var raw []wireSale
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode sales: body is not a JSON array")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode sales: trailing data after array")
	}

	sales := make([]models.Sale, 0, len(raw))
	for i, w := range raw {
		s, err := w.toSale()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		sales = append(sales, s)
	}
	return sales, nil
}
