package resort_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/powderlines/powderlines/internal/resort"
)

func TestApplyStatusRewrite(t *testing.T) {
	now := time.Date(2025, time.November, 20, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      resort.Status
		openingDate any
		want        resort.Status
	}{
		{
			name:        "opened ten days ago forces open",
			status:      resort.StatusClosed,
			openingDate: "2025-11-10",
			want:        resort.StatusOpen,
		},
		{
			name:        "opened exactly fifty days ago still forces open",
			status:      resort.StatusClosed,
			openingDate: "2025-10-01",
			want:        resort.StatusOpen,
		},
		{
			name:        "opened fifty-one days ago leaves provider status",
			status:      resort.StatusPartial,
			openingDate: "2025-09-30",
			want:        resort.StatusPartial,
		},
		{
			name:        "future opening date forces closed",
			status:      resort.StatusOpen,
			openingDate: "2025-12-06",
			want:        resort.StatusClosed,
		},
		{
			name:        "opening today counts as open",
			status:      resort.StatusClosed,
			openingDate: "2025-11-20",
			want:        resort.StatusOpen,
		},
		{
			name:        "timestamp value is trimmed to its date",
			status:      resort.StatusClosed,
			openingDate: "2025-11-10T00:00:00",
			want:        resort.StatusOpen,
		},
		{
			name:        "malformed date is ignored",
			status:      resort.StatusPartial,
			openingDate: "soon",
			want:        resort.StatusPartial,
		},
		{
			name:        "non-string value is ignored",
			status:      resort.StatusPartial,
			openingDate: 20251110,
			want:        resort.StatusPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &resort.View{
				Status: tt.status,
				Extra:  map[string]any{resort.ExtraOpeningDate: tt.openingDate},
			}
			resort.ApplyStatusRewrite(v, now)
			assert.Equal(t, tt.want, v.Status)
		})
	}
}

func TestApplyStatusRewrite_NoExtra(t *testing.T) {
	now := time.Date(2025, time.November, 20, 14, 30, 0, 0, time.UTC)

	v := &resort.View{Status: resort.StatusPartial}
	resort.ApplyStatusRewrite(v, now)
	assert.Equal(t, resort.StatusPartial, v.Status)

	v.Extra = map[string]any{resort.ExtraClosingDate: "2026-04-20"}
	resort.ApplyStatusRewrite(v, now)
	assert.Equal(t, resort.StatusPartial, v.Status)

	// A nil view must not panic.
	resort.ApplyStatusRewrite(nil, now)
}

func TestApplyStatusRewrite_Idempotent(t *testing.T) {
	now := time.Date(2025, time.November, 20, 9, 0, 0, 0, time.UTC)

	v := &resort.View{
		Status: resort.StatusClosed,
		Extra:  map[string]any{resort.ExtraOpeningDate: "2025-11-10"},
	}
	resort.ApplyStatusRewrite(v, now)
	first := *v
	resort.ApplyStatusRewrite(v, now)
	assert.Equal(t, first, *v)
}
