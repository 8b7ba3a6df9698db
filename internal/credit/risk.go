package credit

import "strings"

// RiskLevel 风险等级标签
type RiskLevel string

// 规范风险等级
const (
	RiskLow      RiskLevel = "低"
	RiskMedium   RiskLevel = "中"
	RiskHigh     RiskLevel = "高"
	RiskCritical RiskLevel = "极高"
)

// 各处界面出现过的同义写法
const (
	riskVeryLow   = "极低"
	riskMediumAlt = "中等"
)

// KnownRiskLevels 规范标签集合，按风险由低到高排列
var KnownRiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// NormalizeRiskLevel 去除首尾空白并把同义写法归一到规范标签。
// 未知标签返回 ok=false，由调用方决定拒绝还是继续。
func NormalizeRiskLevel(label string) (RiskLevel, bool) {
	switch strings.TrimSpace(label) {
	case string(RiskLow), riskVeryLow:
		return RiskLow, true
	case string(RiskMedium), riskMediumAlt:
		return RiskMedium, true
	case string(RiskHigh):
		return RiskHigh, true
	case string(RiskCritical):
		return RiskCritical, true
	default:
		return "", false
	}
}

// RiskAliases 规范标签的同义写法
func RiskAliases(level RiskLevel) []string {
	switch level {
	case RiskLow:
		return []string{riskVeryLow}
	case RiskMedium:
		return []string{riskMediumAlt}
	default:
		return nil
	}
}

func isHighRisk(trimmed string) bool {
	return trimmed == string(RiskHigh) || trimmed == string(RiskCritical)
}

func isMediumRisk(trimmed string) bool {
	return trimmed == string(RiskMedium) || trimmed == riskMediumAlt
}

func isLowRisk(trimmed string) bool {
	return trimmed == string(RiskLow) || trimmed == riskVeryLow
}
