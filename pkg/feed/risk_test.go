package feed

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testAssessor() *Assessor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAssessor(DefaultAssessConfig(), logger)
}

func TestAssessor_Score(t *testing.T) {
	a := testAssessor()
	tests := []struct {
		name   string
		window []WeatherSample
		want   int
	}{
		{"empty window", nil, 0},
		{"calm", []WeatherSample{{Wind: 10, Visibility: 15000, Precipitation: 0}}, 5},
		{"worst hour dominates", []WeatherSample{
			{Wind: 10, Visibility: 15000, Precipitation: 0},
			{Wind: 65, Visibility: 800, Precipitation: 12},
		}, 80},
		{"moderate mix", []WeatherSample{{Wind: 30, Visibility: 6000, Precipitation: 1}}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Score(tt.window); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAssessor_Level(t *testing.T) {
	a := testAssessor()
	tests := []struct {
		score int
		want  string
	}{
		{0, StatusLow},
		{29, StatusLow},
		{30, StatusModerate},
		{59, StatusModerate},
		{60, StatusHigh},
		{80, StatusHigh},
	}
	for _, tt := range tests {
		if got := a.Level(tt.score); got != tt.want {
			t.Errorf("Level(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDifficultyScore(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{0, 0},
		{25, 31},
		{40, 50},
		{80, 100},
	}
	for _, tt := range tests {
		if got := DifficultyScore(tt.score); got != tt.want {
			t.Errorf("DifficultyScore(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestDifficultyLabel(t *testing.T) {
	tests := []struct {
		tdi  int
		want string
	}{
		{0, "Routine"},
		{19, "Routine"},
		{20, "Caution"},
		{40, "Challenging"},
		{60, "Hazardous"},
		{80, "Severe"},
		{100, "Severe"},
	}
	for _, tt := range tests {
		if got := DifficultyLabel(tt.tdi); got != tt.want {
			t.Errorf("DifficultyLabel(%d) = %q, want %q", tt.tdi, got, tt.want)
		}
	}
}

func TestLevelColor(t *testing.T) {
	if got := LevelColor(StatusLow); got != "#2ECC71" {
		t.Errorf("LevelColor(LOW) = %q", got)
	}
	if got := LevelColor(StatusModerate); got != "#F1C40F" {
		t.Errorf("LevelColor(MODERATE) = %q", got)
	}
	if got := LevelColor(StatusHigh); got != "#E74C3C" {
		t.Errorf("LevelColor(HIGH) = %q", got)
	}
	if got := LevelColor("SEVERE"); got != "" {
		t.Errorf("LevelColor(unknown) = %q, want empty", got)
	}
}

func TestAssessor_Outlook(t *testing.T) {
	a := testAssessor()

	flat := func(wind, vis, precip float64, n int) []WeatherSample {
		window := make([]WeatherSample, n)
		for i := range window {
			window[i] = WeatherSample{Wind: wind, Visibility: vis, Precipitation: precip}
		}
		return window
	}

	t.Run("short window is stable", func(t *testing.T) {
		got := a.Outlook(flat(50, 500, 15, 3))
		if !strings.Contains(got, "Stable") {
			t.Errorf("Outlook() = %q, want stable wording", got)
		}
	})

	t.Run("rising wind deteriorates", func(t *testing.T) {
		window := append(flat(10, 10000, 0, 3), flat(30, 10000, 0, 3)...)
		got := a.Outlook(window)
		if !strings.Contains(got, "deteriorating") {
			t.Errorf("Outlook() = %q, want deteriorating wording", got)
		}
	})

	t.Run("clearing visibility improves", func(t *testing.T) {
		window := append(flat(10, 2000, 0, 3), flat(10, 9000, 0, 3)...)
		got := a.Outlook(window)
		if !strings.Contains(got, "improving") {
			t.Errorf("Outlook() = %q, want improving wording", got)
		}
	})

	t.Run("opposing trends are mixed", func(t *testing.T) {
		window := append(flat(10, 2000, 0, 3), flat(30, 9000, 0, 3)...)
		got := a.Outlook(window)
		if !strings.Contains(got, "Mixed") {
			t.Errorf("Outlook() = %q, want mixed wording", got)
		}
	})
}

func TestAssessor_Assess_FillsEmptyFields(t *testing.T) {
	a := testAssessor()
	dash := &Dashboard{
		Points: []Point{{
			Name: "Strait of Malacca",
			Forecast: []ForecastHour{
				{Time: "2026-05-01T00:00:00Z", Wind: "45", Visibility: "900", Precipitation: "11"},
				{Time: "2026-05-01T01:00:00Z", Wind: "46", Visibility: "900", Precipitation: "11"},
			},
		}},
	}
	a.Assess(dash)

	p := dash.Points[0]
	// wind 30 + vis 20 + precip 20 = 70
	if p.StatusLabel != StatusHigh {
		t.Errorf("StatusLabel = %q, want HIGH", p.StatusLabel)
	}
	if p.DifficultyScore != "88" {
		t.Errorf("DifficultyScore = %q, want 88", p.DifficultyScore)
	}
	if p.DifficultyLabel != "Severe" {
		t.Errorf("DifficultyLabel = %q, want Severe", p.DifficultyLabel)
	}
	if p.Outlook == "" || p.Impact == "" {
		t.Error("expected outlook and impact to be filled")
	}
	if len(p.RiskStrip) != len(p.Forecast) {
		t.Errorf("RiskStrip has %d cells, want %d", len(p.RiskStrip), len(p.Forecast))
	}

	if dash.RiskIndex != "70" {
		t.Errorf("RiskIndex = %q, want 70", dash.RiskIndex)
	}
	if dash.RiskLabel != StatusHigh {
		t.Errorf("RiskLabel = %q, want HIGH", dash.RiskLabel)
	}
	if !strings.Contains(dash.HighestRisk, "Strait of Malacca") {
		t.Errorf("HighestRisk = %q, want it to name the worst point", dash.HighestRisk)
	}
	if dash.Counts.High != 1 {
		t.Errorf("Counts = %+v, want one HIGH", dash.Counts)
	}
}

func TestAssessor_Assess_PreservesExistingFields(t *testing.T) {
	a := testAssessor()
	dash := &Dashboard{
		RiskLabel: StatusLow,
		Points: []Point{{
			Name:        "Bosporus",
			StatusLabel: StatusModerate,
			Outlook:     "Authored outlook.",
			Forecast: []ForecastHour{
				{Wind: "5", Visibility: "15000", Precipitation: "0"},
			},
		}},
	}
	a.Assess(dash)

	if dash.Points[0].StatusLabel != StatusModerate {
		t.Errorf("StatusLabel overwritten: %q", dash.Points[0].StatusLabel)
	}
	if dash.Points[0].Outlook != "Authored outlook." {
		t.Errorf("Outlook overwritten: %q", dash.Points[0].Outlook)
	}
	if dash.RiskLabel != StatusLow {
		t.Errorf("RiskLabel overwritten: %q", dash.RiskLabel)
	}
}

func TestAssessor_Assess_NoForecastData(t *testing.T) {
	a := testAssessor()
	dash := &Dashboard{
		Points: []Point{{Name: "Panama Canal"}},
	}
	a.Assess(dash)

	if dash.Points[0].StatusLabel != "" {
		t.Errorf("StatusLabel = %q, want empty for a point with no forecast", dash.Points[0].StatusLabel)
	}
	if dash.RiskIndex != "" {
		t.Errorf("RiskIndex = %q, want empty when nothing was assessed", dash.RiskIndex)
	}
}
