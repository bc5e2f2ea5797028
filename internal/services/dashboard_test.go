package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/cache"
	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	records []models.Sale
	err     error
}

func (s *countingSource) Fetch(ctx context.Context, q models.Query) ([]models.Sale, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDashboard(src *countingSource) *Dashboard {
	return NewDashboard(src, cache.NewLRU[[]models.Sale](8, time.Minute), discardLogger())
}

func TestNormalizeSelection(t *testing.T) {
	tests := []struct {
		name    string
		in      models.Selection
		want    models.Selection
		wantErr bool
	}{
		{
			name: "country wide defaults",
			in:   models.Selection{Query: models.Query{Region: "Brasil"}},
			want: models.Selection{Query: models.Query{Region: ""}, Sellers: []string{}, TopN: DefaultTopN},
		},
		{
			name: "region case and sellers tidied",
			in: models.Selection{
				Query:   models.Query{Region: "sudeste", Year: 2022},
				Sellers: []string{" Ana ", "Ana", "", "Bruno"},
				TopN:    3,
			},
			want: models.Selection{
				Query:   models.Query{Region: "Sudeste", Year: 2022},
				Sellers: []string{"Ana", "Bruno"},
				TopN:    3,
			},
		},
		{name: "unknown region", in: models.Selection{Query: models.Query{Region: "Atlantis"}}, wantErr: true},
		{name: "year too early", in: models.Selection{Query: models.Query{Year: 2019}}, wantErr: true},
		{name: "year too late", in: models.Selection{Query: models.Query{Year: 2024}}, wantErr: true},
		{name: "top-N too small", in: models.Selection{TopN: 1}, wantErr: true},
		{name: "top-N too large", in: models.Selection{TopN: 11}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSelection(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if appErr := apperrors.As(err); appErr.Code != apperrors.CodeValidation {
					t.Errorf("code = %s, want %s", appErr.Code, apperrors.CodeValidation)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDashboard_RecordsCachedPerQuery(t *testing.T) {
	src := &countingSource{records: createTestRecords()}
	d := newTestDashboard(src)
	ctx := context.Background()

	q := models.Query{Region: "Sudeste", Year: 2021}
	for range 3 {
		records, err := d.Records(ctx, q)
		if err != nil {
			t.Fatalf("Records: %v", err)
		}
		if len(records) != len(src.records) {
			t.Fatalf("records = %d, want %d", len(records), len(src.records))
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	if _, err := d.Records(ctx, models.Query{Region: "Sul"}); err != nil {
		t.Fatalf("Records: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("fetches after a new query = %d, want 2", got)
	}

	stats := d.Stats()
	if stats["fetches"].(int64) != 2 {
		t.Errorf("stats fetches = %v, want 2", stats["fetches"])
	}
	if stats["last_fetch"].(time.Time).IsZero() {
		t.Error("last_fetch should be set")
	}
}

func TestDashboard_ConcurrentFetchesCollapse(t *testing.T) {
	src := &countingSource{records: createTestRecords(), release: make(chan struct{})}
	d := newTestDashboard(src)
	q := models.Query{Region: "Nordeste"}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Records(context.Background(), q)
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Records: %v", err)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestDashboard_FetchErrorIsUpstream(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	d := newTestDashboard(src)

	_, err := d.View(context.Background(), models.Selection{TopN: DefaultTopN})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := apperrors.As(err)
	if appErr.Code != apperrors.CodeUpstream {
		t.Errorf("code = %s, want %s", appErr.Code, apperrors.CodeUpstream)
	}
	if !errors.Is(err, src.err) {
		t.Error("fetch error should stay in the chain")
	}

	// failures are not cached
	d.View(context.Background(), models.Selection{TopN: DefaultTopN})
	if got := src.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
}

func TestDashboard_View(t *testing.T) {
	src := &countingSource{records: createTestRecords()}
	d := newTestDashboard(src)

	sel := models.Selection{Sellers: []string{"Pedro Gomes"}, TopN: 2}
	view, err := d.View(context.Background(), sel)
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if view.Fetched != 6 {
		t.Errorf("fetched = %d, want 6", view.Fetched)
	}
	if len(view.SellerNames) != 4 {
		t.Errorf("seller options = %v, want all 4 sellers of the fetched set", view.SellerNames)
	}
	if view.Metrics.Revenue != "R$ 1.05 mil" {
		t.Errorf("revenue metric = %q, want %q", view.Metrics.Revenue, "R$ 1.05 mil")
	}
	if view.Metrics.Count != "2.00" {
		t.Errorf("count metric = %q, want %q", view.Metrics.Count, "2.00")
	}
	if len(view.TopByRevenue) != 1 || len(view.TopByCount) != 1 {
		t.Errorf("top sellers = %d/%d, want 1/1", len(view.TopByRevenue), len(view.TopByCount))
	}
}

func TestBuildView_Empty(t *testing.T) {
	view := BuildView(nil, models.Selection{})

	if view.Metrics.Revenue != "R$ 0.00" || view.Metrics.Count != "0.00" {
		t.Errorf("metrics = %+v", view.Metrics)
	}
	if view.SellerNames == nil || view.TopByRevenue == nil {
		t.Error("empty view should carry empty, non-nil lists")
	}
}

func TestBuildView_DropsUnknownSellers(t *testing.T) {
	records := createTestRecords()

	view := BuildView(records, models.Selection{Sellers: []string{"Pedro Gomes", "Nobody"}, TopN: 2})
	if diff := cmp.Diff([]string{"Pedro Gomes"}, view.Selection.Sellers); diff != "" {
		t.Errorf("selected sellers mismatch (-want +got):\n%s", diff)
	}
	if view.Metrics.Revenue != "R$ 1.05 mil" {
		t.Errorf("revenue metric = %q, want %q", view.Metrics.Revenue, "R$ 1.05 mil")
	}

	view = BuildView(records, models.Selection{Sellers: []string{"Nobody"}, TopN: 2})
	if view.Selection.Sellers == nil || len(view.Selection.Sellers) != 0 {
		t.Errorf("selected sellers = %#v, want empty", view.Selection.Sellers)
	}
	if view.Tables.Totals.Count != len(records) {
		t.Errorf("count = %d, want every record once the filter is reset", view.Tables.Totals.Count)
	}
}
