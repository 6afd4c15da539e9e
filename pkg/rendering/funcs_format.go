package rendering

import (
	"strconv"

	"github.com/CTAG07/Tidewatch/pkg/feed"
)

// clockTime returns the HH:MM portion of an ISO-style timestamp, or ""
// for timestamps too short to carry one.
func clockTime(ts string) string {
	return feed.ClockTime(ts)
}

// statusClass builds the CSS class for a status label by prepending the
// configured prefix, e.g. "risk-" + "HIGH" = "risk-HIGH". An empty label
// yields an empty class rather than a bare prefix.
//
// Called during template execution, which already holds the read lock, so
// the config is read directly.
func (m *Manager) statusClass(label string) string {
	if label == "" {
		return ""
	}
	return m.config.StatusClassPrefix + label
}

// riskColor returns the display color for a status label, or "" for
// labels outside the known set.
func riskColor(label string) string {
	return feed.LevelColor(label)
}

// difficultyLabel names a transit difficulty index given as a string, the
// form it takes in feed documents. Unparseable input yields "".
func difficultyLabel(score string) string {
	n, err := strconv.Atoi(score)
	if err != nil {
		return ""
	}
	return feed.DifficultyLabel(n)
}
