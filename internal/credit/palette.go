package credit

import "strings"

// RiskColor 风险等级对应的展示颜色
func RiskColor(level string) string {
	switch strings.TrimSpace(level) {
	case string(RiskLow):
		return "#4caf50"
	case string(RiskMedium):
		return "#ff9800"
	case string(RiskHigh):
		return "#f44336"
	case string(RiskCritical):
		return "#b71c1c"
	default:
		return "#757575"
	}
}

var ratingColors = []struct {
	prefix string
	color  string
}{
	{"AAA", "#1976d2"},
	{"AA", "#2196f3"},
	{"A", "#03a9f4"},
	{"BBB", "#00bcd4"},
	{"BB", "#ff9800"},
	{"B", "#ff5722"},
	{"CCC", "#d32f2f"},
	{"CC", "#b71c1c"},
}

// RatingColor 评级对应的展示颜色，按前缀匹配
func RatingColor(rating string) string {
	for _, rc := range ratingColors {
		if strings.HasPrefix(rating, rc.prefix) {
			return rc.color
		}
	}
	return "#f44336"
}
