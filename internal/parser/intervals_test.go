package parser

import (
	"embed"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

//go:embed testdata/*
var testdataFS embed.FS

func mustPage(t *testing.T, filename string) *Page {
	t.Helper()
	body, err := testdataFS.ReadFile("testdata/" + filename)
	require.NoError(t, err)
	return NewPage(string(body))
}

func TestExtractIntervals(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		strategy Strategy
		want     []schedule.RawInterval
	}{
		{
			name:     "container",
			filename: "periods.html",
			strategy: StrategyContainer,
			want: []schedule.RawInterval{
				{Start: "08:00", End: "12:00", Label: "08:00 - 12:00 відключення"},
				{Start: "16:00", End: "20:00", Label: "16:00 - 20:00 відключення"},
				{Start: "23:00", End: "01:00", Label: "23:00 - 01:00 відключення"},
			},
		},
		{
			name:     "loose items",
			filename: "loose.html",
			strategy: StrategyLooseItems,
			want: []schedule.RawInterval{
				{Start: "10:00", End: "14:00", Label: "10:00 – 14:00"},
				{Start: "18:00", End: "22:00", Label: "18:00 – 22:00"},
			},
		},
		{
			name:     "item phrases",
			filename: "phrases.html",
			strategy: StrategyItemPhrases,
			want: []schedule.RawInterval{
				{Start: "09:00", End: "13:00", Label: "З 09:00 до 13:00"},
				{Start: "17:00", End: "21:00", Label: "З 17:00 до 21:00"},
			},
		},
		{
			name:     "text phrases",
			filename: "text.txt",
			strategy: StrategyTextPhrases,
			want: []schedule.RawInterval{
				{Start: "07:00", End: "11:00", Label: "З 07:00 до 11:00"},
				{Start: "19:00", End: "23:00", Label: "З 19:00 до 23:00"},
			},
		},
		{
			name:     "no intervals",
			filename: "none.html",
			strategy: StrategyNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw, strategy := ExtractIntervals(mustPage(t, tt.filename))
			assert.Equal(t, tt.strategy, strategy)
			assert.Equal(t, tt.want, raw)
		})
	}
}

func TestExtractIntervals_Priority(t *testing.T) {
	p := mustPage(t, "periods.html")

	// the later strategies would find the phrase outside the container
	phrases := fromTextPhrases(p)
	require.NotEmpty(t, phrases)
	assert.Equal(t, "18:00", phrases[0].Start)

	raw, strategy := ExtractIntervals(p)
	assert.Equal(t, StrategyContainer, strategy)
	for _, r := range raw {
		assert.NotEqual(t, "18:00", r.Start)
	}
}

func TestExtractIntervals_WithoutDocument(t *testing.T) {
	p := &Page{Raw: "Відключення з 07:00 до 11:00"}
	raw, strategy := ExtractIntervals(p)
	assert.Equal(t, StrategyTextPhrases, strategy)
	assert.Equal(t, []schedule.RawInterval{{Start: "07:00", End: "11:00", Label: "З 07:00 до 11:00"}}, raw)
}

func TestPage_Text(t *testing.T) {
	p := NewPage("<p>З<b>10:00</b>до<b>12:00</b></p><script>ignored()</script>")
	assert.Equal(t, "З 10:00 до 12:00", p.Text())
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "container", StrategyContainer.String())
	assert.Equal(t, "countdown-text", StrategyCountdownText.String())
	assert.Equal(t, "unknown", Strategy(-1).String())
}
