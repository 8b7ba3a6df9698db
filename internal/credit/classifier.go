// Package credit 信用评分、评级与授信策略
package credit

import "creditlens/internal/model"

// Tier 授信策略档位，数值越大越保守
type Tier int

const (
	TierPreferred  Tier = iota + 1 // 高额度、低利率、长期还款
	TierStandard                   // 中额度、标准利率、分阶段还款
	TierRestricted                 // 低额度、加息、短期还款或担保
	TierDecline                    // 不授信或仅提供融资担保
)

// 阈值
const (
	PreferredScore = 85.0
	StandardScore  = 70.0
)

var tierText = map[Tier]string{
	TierPreferred:  "高额度、低利率、长期还款",
	TierStandard:   "中额度、标准利率、分阶段还款",
	TierRestricted: "低额度、加息、短期还款或担保",
	TierDecline:    "不授信或仅提供融资担保",
}

var tierSummary = map[Tier]string{
	TierPreferred:  "high limit, preferential rate, long tenor",
	TierStandard:   "moderate limit, standard rate, staged repayment",
	TierRestricted: "reduced limit, rate surcharge, short tenor or collateral required",
	TierDecline:    "decline credit or offer financing-guarantee only",
}

// Text 策略建议（中文）
func (t Tier) Text() string {
	if s, ok := tierText[t]; ok {
		return s
	}
	return tierText[TierDecline]
}

// Summary 策略建议（英文）
func (t Tier) Summary() string {
	if s, ok := tierSummary[t]; ok {
		return s
	}
	return tierSummary[TierDecline]
}

func (t Tier) String() string {
	switch t {
	case TierPreferred:
		return "preferred"
	case TierStandard:
		return "standard"
	case TierRestricted:
		return "restricted"
	default:
		return "decline"
	}
}

// Strategy 按顺序匹配授信策略，先命中者生效。
// 风险标签按原样比较；未知标签落入最保守的 TierDecline。
func Strategy(score float64, riskLevel string) Tier {
	low := riskLevel == string(RiskLow)
	medium := riskLevel == string(RiskMedium)

	switch {
	case low && score >= PreferredScore:
		return TierPreferred
	case (low && score < PreferredScore) || (medium && score >= StandardScore):
		return TierStandard
	case (medium && score < StandardScore) || riskLevel == string(RiskHigh):
		return TierRestricted
	default:
		return TierDecline
	}
}

// Classification 一家企业的完整分类结果
type Classification struct {
	Tier     Tier   `json:"tier"`
	Strategy string `json:"strategy"`
	Summary  string `json:"summary"`
	Alerts   Alerts `json:"alerts"`
}

// Classify 计算策略档位与提示标记，不修改入参
func Classify(score float64, riskLevel string) Classification {
	tier := Strategy(score, riskLevel)
	return Classification{
		Tier:     tier,
		Strategy: tier.Text(),
		Summary:  tier.Summary(),
		Alerts:   Evaluate(score, riskLevel),
	}
}

// ClassifyCompany 对已评分企业分类
func ClassifyCompany(c model.Company) Classification {
	return Classify(c.CreditScore, c.RiskLevel)
}
