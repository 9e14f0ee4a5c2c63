package settings_test

import (
	"encoding/json"
	"testing"

	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMerge: частичный снимок накладывается на дефолты, мусор вычищается
func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    settings.Settings
		wantErr bool
	}{
		{
			name: "empty snapshot gives defaults",
			raw:  "",
			want: settings.Defaults(),
		},
		{
			name: "partial snapshot keeps defaults for the rest",
			raw:  `{"dateFormat":"YYYY-MM-DD"}`,
			want: settings.Settings{
				DateFormat:           settings.DateISO,
				TimeFormat:           settings.Time24h,
				DefaultPriority:      task.PriorityMedium,
				DefaultEstimatedTime: 60,
			},
		},
		{
			name: "full snapshot wins everywhere",
			raw:  `{"dateFormat":"MM/DD/YYYY","timeFormat":"12h","defaultPriority":"high","defaultEstimatedTime":90}`,
			want: settings.Settings{
				DateFormat:           settings.DateUS,
				TimeFormat:           settings.Time12h,
				DefaultPriority:      task.PriorityHigh,
				DefaultEstimatedTime: 90,
			},
		},
		{
			name: "unknown values fall back to defaults",
			raw:  `{"dateFormat":"DD.MM","timeFormat":"48h","defaultPriority":"urgent","defaultEstimatedTime":-5}`,
			want: settings.Defaults(),
		},
		{
			name:    "broken json",
			raw:     `{не json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settings.Merge(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, settings.Defaults(), got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
