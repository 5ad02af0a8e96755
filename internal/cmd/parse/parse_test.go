package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clambin/energyua-monitor/internal/configuration"
	"github.com/clambin/energyua-monitor/internal/parser"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const page = `<html><body><div class="periods_items">
<span><b>10:00</b> - <b>12:00</b></span>
<span><b>1O:00</b> - <b>14:00</b></span>
</div></body></html>`

func TestParse(t *testing.T) {
	now := time.Date(2024, time.May, 1, 9, 50, 0, 0, time.UTC)
	pretrigger := schedule.Pretrigger{Threshold: 10, Mode: schedule.ModeEquals}

	var out bytes.Buffer
	require.NoError(t, Parse(page, parser.IntervalParser{}, now, pretrigger, yaml.NewEncoder(&out)))
	body := out.String()
	for _, want := range []string{
		"strategy: container",
		"dropped: 1",
		"minutes_until: 10",
		"countdown_hm: \"00:10\"",
		"pretrigger: true",
		"label: 10:00 - 12:00",
	} {
		assert.Contains(t, body, want)
	}

	out.Reset()
	require.NoError(t, Parse(page, parser.IntervalParser{}, now, pretrigger, json.NewEncoder(&out)))
	var r struct {
		Snapshot schedule.Snapshot
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, 10, r.Snapshot.MinutesUntil)
}

func Test_read(t *testing.T) {
	ctx := context.Background()

	raw, err := read(ctx, "-", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, page, raw)

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	raw, err = read(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, page, raw)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer s.Close()
	raw, err = read(ctx, s.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, page, raw)

	_, err = read(ctx, filepath.Join(t.TempDir(), "missing.html"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_evaluationTime(t *testing.T) {
	at, err := evaluationTime("2024-05-01T09:50:00+03:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 6, at.Hour())
	assert.Equal(t, time.UTC, at.Location())

	kyiv := time.FixedZone("EEST", 3*60*60)
	at, err = evaluationTime("2024-05-01T06:50:00Z", kyiv)
	require.NoError(t, err)
	assert.Equal(t, 9, at.Hour())

	_, err = evaluationTime("yesterday", time.UTC)
	assert.Error(t, err)

	at, err = evaluationTime("", kyiv)
	require.NoError(t, err)
	assert.Equal(t, kyiv, at.Location())
	assert.WithinDuration(t, time.Now(), at, time.Minute)
}

func TestCmd_Configuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	testCases := []struct {
		name    string
		values  map[string]any
		wantErr error
		want    string
	}{
		{
			name:   "local time in timezone",
			values: map[string]any{"timezone": "UTC", "parse.at": "2024-05-01T12:50:00+03:00", "pretrigger.threshold": 10},
			want:   "minutes_until: 10",
		},
		{
			name:    "threshold out of range",
			values:  map[string]any{"timezone": "UTC", "parse.at": "2024-05-01T12:50:00+03:00", "pretrigger.threshold": 0},
			wantErr: configuration.ErrInvalidConfiguration,
		},
		{
			name:    "unknown timezone",
			values:  map[string]any{"timezone": "Mars/Olympus_Mons"},
			wantErr: configuration.ErrInvalidConfiguration,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			require.NoError(t, configuration.SetDefaults(viper.GetViper()))
			for key, value := range tt.values {
				viper.Set(key, value)
			}

			var out bytes.Buffer
			Cmd.SetOut(&out)
			err := Cmd.RunE(&Cmd, []string{path})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
