package pagination_test

import (
	"testing"

	"github.com/mwhitfield/assay/pkg/pagination"
)

func testConfig() pagination.Config {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		panic(err)
	}
	return cfg
}

func TestNormalize(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name string
		in   pagination.PageRequest
		want pagination.PageRequest
	}{
		{"zero values get defaults", pagination.PageRequest{}, pagination.PageRequest{Page: 1, PageSize: 20}},
		{"negative page clamped", pagination.PageRequest{Page: -3, PageSize: 10}, pagination.PageRequest{Page: 1, PageSize: 10}},
		{"oversized page size clamped", pagination.PageRequest{Page: 2, PageSize: 500}, pagination.PageRequest{Page: 2, PageSize: 100}},
		{"valid request untouched", pagination.PageRequest{Page: 3, PageSize: 25}, pagination.PageRequest{Page: 3, PageSize: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize(cfg)
			if tt.in != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", tt.in, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	r := pagination.PageRequest{Page: 3, PageSize: 20}
	if got := r.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestNewPageResult(t *testing.T) {
	t.Run("partial last page", func(t *testing.T) {
		result := pagination.NewPageResult([]int{1, 2, 3}, 23, 1, 10)
		if result.TotalPages != 3 {
			t.Errorf("TotalPages = %d, want 3", result.TotalPages)
		}
	})

	t.Run("empty data is never nil", func(t *testing.T) {
		result := pagination.NewPageResult[int](nil, 0, 1, 10)
		if result.Data == nil {
			t.Error("Data is nil, want empty slice")
		}
		if result.TotalPages != 1 {
			t.Errorf("TotalPages = %d, want 1", result.TotalPages)
		}
	})
}

func TestConfigValidation(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("Finalize() accepted default page size above max")
	}
}
