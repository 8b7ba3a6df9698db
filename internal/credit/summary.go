package credit

import (
	"sort"
	"strings"

	"creditlens/internal/model"
)

// HighCreditRatings 投资级评级
var HighCreditRatings = []string{"AAA", "AA", "A", "BBB"}

var highCreditRatings = map[string]bool{"AAA": true, "AA": true, "A": true, "BBB": true}

// HighCredit 筛选投资级（BBB 及以上）企业
func HighCredit(companies []model.Company) []model.Company {
	return filter(companies, func(c model.Company) bool {
		return highCreditRatings[c.CreditRating]
	})
}

// HighRisk 筛选高风险与极高风险企业
func HighRisk(companies []model.Company) []model.Company {
	return filter(companies, func(c model.Company) bool {
		return isHighRisk(strings.TrimSpace(c.RiskLevel))
	})
}

func filter(companies []model.Company, keep func(model.Company) bool) []model.Company {
	out := make([]model.Company, 0, len(companies))
	for _, c := range companies {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// SortByScore 返回按评分排序的副本
func SortByScore(companies []model.Company, desc bool) []model.Company {
	out := append([]model.Company(nil), companies...)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CreditScore > out[j].CreditScore
		}
		return out[i].CreditScore < out[j].CreditScore
	})
	return out
}

// Stats 企业列表统计
type Stats struct {
	Total          int     `json:"total"`
	AverageScore   float64 `json:"average_score"`
	HighRiskCount  int     `json:"high_risk_count"`
	ExcellentCount int     `json:"excellent_count"` // AAA / AA
	TierCounts     [4]int  `json:"tier_counts"`     // 按 Tier 1..4
}

// Summarize 计算列表统计
func Summarize(companies []model.Company) Stats {
	var st Stats
	st.Total = len(companies)
	if st.Total == 0 {
		return st
	}

	sum := 0.0
	for _, c := range companies {
		sum += c.CreditScore
		if isHighRisk(strings.TrimSpace(c.RiskLevel)) {
			st.HighRiskCount++
		}
		if strings.HasPrefix(c.CreditRating, "AA") {
			st.ExcellentCount++
		}
		st.TierCounts[Strategy(c.CreditScore, c.RiskLevel)-1]++
	}
	st.AverageScore = sum / float64(st.Total)
	return st
}
