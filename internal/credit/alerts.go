package credit

import "strings"

// Alerts 用于界面强调的提示标记，彼此不互斥
type Alerts struct {
	HighRisk  bool `json:"high_risk"`
	Attention bool `json:"attention"`
	Excellent bool `json:"excellent"`
}

// Evaluate 计算提示标记，风险标签先去除首尾空白
func Evaluate(score float64, riskLevel string) Alerts {
	level := strings.TrimSpace(riskLevel)
	high := isHighRisk(level)

	return Alerts{
		HighRisk:  high,
		Attention: isMediumRisk(level) || (score < StandardScore && !high),
		Excellent: score >= PreferredScore && isLowRisk(level),
	}
}

// Any 是否存在任一标记
func (a Alerts) Any() bool {
	return a.HighRisk || a.Attention || a.Excellent
}
