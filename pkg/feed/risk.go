package feed

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// AssessConfig holds the tunable thresholds for the weather risk model.
// The bucket scores themselves are fixed; these knobs control where the
// aggregate score tips between levels and what counts as a trend.
type AssessConfig struct {
	// ModerateScore is the aggregate score at which LOW becomes MODERATE.
	ModerateScore int `json:"moderate_score"`

	// HighScore is the aggregate score at which MODERATE becomes HIGH.
	HighScore int `json:"high_score"`

	// WindDelta is the km/h change across the 6-hour window that marks a
	// worsening or improving wind trend.
	WindDelta float64 `json:"wind_delta"`

	// VisDelta is the visibility change in metres that marks a trend.
	VisDelta float64 `json:"vis_delta"`

	// PrecipDelta is the precipitation change in mm that marks a trend.
	PrecipDelta float64 `json:"precip_delta"`
}

// DefaultAssessConfig returns the standard thresholds of the risk model.
func DefaultAssessConfig() *AssessConfig {
	return &AssessConfig{
		ModerateScore: 30,
		HighScore:     60,
		WindDelta:     5,
		VisDelta:      2000,
		PrecipDelta:   2,
	}
}

// WeatherSample is one hour of forecast conditions at a chokepoint.
type WeatherSample struct {
	Wind          float64 // km/h
	Visibility    float64 // metres
	Precipitation float64 // mm
}

// maxFactorScore is the highest aggregate score the three factor buckets
// can produce (40 wind + 20 visibility + 20 precipitation). The transit
// difficulty index is the aggregate score rescaled against it.
const maxFactorScore = 40 + 20 + 20

// Assessor turns raw forecast numbers into risk scores, levels, and
// operational guidance text for dashboard feeds that carry only weather.
type Assessor struct {
	config *AssessConfig
	logger *slog.Logger
}

// NewAssessor creates an assessor with the given thresholds.
func NewAssessor(config *AssessConfig, logger *slog.Logger) *Assessor {
	return &Assessor{
		config: config,
		logger: logger,
	}
}

func windRisk(maxWind float64) int {
	switch {
	case maxWind < 20:
		return 5
	case maxWind < 40:
		return 15
	case maxWind < 60:
		return 30
	default:
		return 40
	}
}

func visRisk(minVis float64) int {
	switch {
	case minVis > 10000:
		return 0
	case minVis > 5000:
		return 5
	case minVis > 1000:
		return 10
	default:
		return 20
	}
}

func precipRisk(maxPrecip float64) int {
	switch {
	case maxPrecip == 0:
		return 0
	case maxPrecip < 2:
		return 5
	case maxPrecip < 10:
		return 10
	default:
		return 20
	}
}

// Score aggregates a forecast window into a single 0-80 risk score using
// the worst wind, the worst visibility, and the worst precipitation seen
// anywhere in the window.
func (a *Assessor) Score(window []WeatherSample) int {
	if len(window) == 0 {
		return 0
	}
	maxWind, minVis, maxPrecip := window[0].Wind, window[0].Visibility, window[0].Precipitation
	for _, s := range window[1:] {
		maxWind = math.Max(maxWind, s.Wind)
		minVis = math.Min(minVis, s.Visibility)
		maxPrecip = math.Max(maxPrecip, s.Precipitation)
	}
	return windRisk(maxWind) + visRisk(minVis) + precipRisk(maxPrecip)
}

// Level buckets an aggregate score into one of the three status labels.
func (a *Assessor) Level(score int) string {
	switch {
	case score < a.config.ModerateScore:
		return StatusLow
	case score < a.config.HighScore:
		return StatusModerate
	default:
		return StatusHigh
	}
}

// DifficultyScore rescales an aggregate risk score to the 0-100 transit
// difficulty index.
func DifficultyScore(score int) int {
	return int(math.Round(float64(score) / maxFactorScore * 100))
}

// DifficultyLabel names a transit difficulty index.
func DifficultyLabel(tdi int) string {
	switch {
	case tdi < 20:
		return "Routine"
	case tdi < 40:
		return "Caution"
	case tdi < 60:
		return "Challenging"
	case tdi < 80:
		return "Hazardous"
	default:
		return "Severe"
	}
}

// LevelColor returns the display color associated with a status label.
func LevelColor(label string) string {
	switch label {
	case StatusLow:
		return "#2ECC71"
	case StatusModerate:
		return "#F1C40F"
	case StatusHigh:
		return "#E74C3C"
	}
	return ""
}

// Outlook compares the first three hours of a window against the next
// three and describes the trend.
func (a *Assessor) Outlook(window []WeatherSample) string {
	if len(window) < 6 {
		return "Stable conditions expected over the next 6 hours."
	}

	avg := func(samples []WeatherSample, pick func(WeatherSample) float64) float64 {
		var sum float64
		for _, s := range samples {
			sum += pick(s)
		}
		return sum / float64(len(samples))
	}

	wind := func(s WeatherSample) float64 { return s.Wind }
	vis := func(s WeatherSample) float64 { return s.Visibility }
	precip := func(s WeatherSample) float64 { return s.Precipitation }

	dWind := avg(window[3:6], wind) - avg(window[0:3], wind)
	dVis := avg(window[3:6], vis) - avg(window[0:3], vis)
	dPrecip := avg(window[3:6], precip) - avg(window[0:3], precip)

	worsening := dWind > a.config.WindDelta || dVis < -a.config.VisDelta || dPrecip > a.config.PrecipDelta
	improving := dWind < -a.config.WindDelta || dVis > a.config.VisDelta || dPrecip < -a.config.PrecipDelta

	switch {
	case worsening && !improving:
		return "Conditions deteriorating over the next 6 hours."
	case improving && !worsening:
		return "Conditions improving over the next 6 hours."
	case worsening && improving:
		return "Mixed signals: some factors improving, others deteriorating."
	default:
		return "Stable conditions expected over the next 6 hours."
	}
}

// Impact assembles the operational impact sentence from the per-factor
// scores. Factor scores, not raw values, drive the wording so the text
// always agrees with the numeric assessment.
func (a *Assessor) Impact(wind, vis, precip int, level string) string {
	var impacts []string

	if wind >= 30 {
		impacts = append(impacts, "High winds may affect vessel maneuverability and transit safety.")
	} else if wind >= 15 {
		impacts = append(impacts, "Elevated winds could require increased caution during transits.")
	}

	if vis >= 10 {
		impacts = append(impacts, "Reduced visibility may slow traffic and increase collision risk.")
	} else if vis >= 5 {
		impacts = append(impacts, "Visibility degradation may require speed reductions and tighter traffic control.")
	}

	if precip >= 10 {
		impacts = append(impacts, "Heavy precipitation may degrade sensor performance and complicate navigation.")
	} else if precip >= 5 {
		impacts = append(impacts, "Precipitation may reduce situational awareness and increase workload on bridge teams.")
	}

	if len(impacts) == 0 {
		if level == StatusLow {
			return "No significant weather-driven operational impacts are expected at this chokepoint."
		}
		return "Weather conditions may require routine caution but are not assessed as significantly disruptive."
	}
	return strings.Join(impacts, " ")
}

// Assess fills in the derived fields of a dashboard from raw forecast
// numbers. Only empty fields are written, so feeds that already carry an
// assessment pass through untouched; points without forecast data are
// left alone. The result depends only on the input, never on the clock.
func (a *Assessor) Assess(dash *Dashboard) {
	var (
		maxScore    = -1
		highestName string
		counts      StatusCounts
		assessedAny bool
	)

	for i := range dash.Points {
		p := &dash.Points[i]
		window := forecastWindow(p.Forecast)
		if len(window) == 0 {
			continue
		}
		assessedAny = true

		score := a.Score(window)
		level := a.Level(score)

		maxWind, minVis, maxPrecip := window[0].Wind, window[0].Visibility, window[0].Precipitation
		for _, s := range window[1:] {
			maxWind = math.Max(maxWind, s.Wind)
			minVis = math.Min(minVis, s.Visibility)
			maxPrecip = math.Max(maxPrecip, s.Precipitation)
		}

		if p.StatusLabel == "" {
			p.StatusLabel = level
		}
		if p.DifficultyScore == "" {
			p.DifficultyScore = strconv.Itoa(DifficultyScore(score))
		}
		if p.DifficultyLabel == "" {
			p.DifficultyLabel = DifficultyLabel(DifficultyScore(score))
		}
		if p.Outlook == "" {
			p.Outlook = a.Outlook(window)
		}
		if p.Impact == "" {
			p.Impact = a.Impact(windRisk(maxWind), visRisk(minVis), precipRisk(maxPrecip), level)
		}
		if len(p.RiskStrip) == 0 {
			for _, s := range window {
				p.RiskStrip = append(p.RiskStrip, a.Level(a.Score([]WeatherSample{s})))
			}
		}

		switch p.StatusLabel {
		case StatusLow:
			counts.Low++
		case StatusModerate:
			counts.Moderate++
		case StatusHigh:
			counts.High++
		}
		if score > maxScore {
			maxScore = score
			highestName = p.Name
		}

		a.logger.Debug("Assessed chokepoint",
			"point", p.Name,
			"score", score,
			"level", p.StatusLabel,
		)
	}

	if !assessedAny {
		return
	}

	globalLevel := a.Level(maxScore)
	if dash.RiskIndex == "" {
		dash.RiskIndex = strconv.Itoa(maxScore)
	}
	if dash.RiskLabel == "" {
		dash.RiskLabel = globalLevel
	}
	if dash.Description == "" {
		dash.Description = postureLine(globalLevel)
	}
	if dash.HighestRisk == "" && highestName != "" {
		dash.HighestRisk = fmt.Sprintf("Highest operational risk: %s (Score %d, %s risk).", highestName, maxScore, globalLevel)
	}
	if dash.Counts == (StatusCounts{}) {
		dash.Counts = counts
	}
}

func postureLine(level string) string {
	switch level {
	case StatusLow:
		return "Overall chokepoint risk remains low. Moderate conditions are limited and localized. No high-risk weather disruptions are expected within the next 24 hours."
	case StatusModerate:
		return "Global chokepoint risk is elevated to moderate. Weather-driven constraints may impact operations at select locations. No widespread high-risk disruptions are currently assessed."
	default:
		return "Global chokepoint risk is high. Weather conditions at one or more locations may significantly impact maritime operations within the next 24 hours."
	}
}

// forecastWindow converts forecast rows to numeric samples. Rows with no
// parseable numbers at all are skipped rather than scored as zero.
func forecastWindow(hours []ForecastHour) []WeatherSample {
	var window []WeatherSample
	for _, h := range hours {
		wind, errW := strconv.ParseFloat(h.Wind, 64)
		vis, errV := strconv.ParseFloat(h.Visibility, 64)
		precip, errP := strconv.ParseFloat(h.Precipitation, 64)
		if errW != nil && errV != nil && errP != nil {
			continue
		}
		window = append(window, WeatherSample{Wind: wind, Visibility: vis, Precipitation: precip})
	}
	return window
}
