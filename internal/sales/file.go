package sales

import (
	"context"
	"fmt"
	"os"

	"sales-dashboard/internal/models"
)

// FileSource serves records from a local JSON file that uses the data
// API schema. Region and year filtering happen in memory.
type FileSource struct {
	path    string
	records []models.Sale
}

func LoadFile(ctx context.Context, path string) (*FileSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	records, err := DecodeSales(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &FileSource{path: path, records: records}, nil
}

// NewMemorySource wraps records already in memory.
func NewMemorySource(records []models.Sale) *FileSource {
	return &FileSource{path: "memory", records: records}
}

func (s *FileSource) Fetch(ctx context.Context, q models.Query) ([]models.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Sale, 0, len(s.records))
	for _, r := range s.records {
		if q.Year != 0 && r.PurchaseDate.Year() != q.Year {
			continue
		}
		if q.Region != "" {
			region, ok := RegionOf(r.Location.Name)
			if !ok || region != q.Region {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *FileSource) Len() int { return len(s.records) }
