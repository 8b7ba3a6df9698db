package credit

import (
	"math"
	"time"

	"creditlens/internal/model"
)

// 各维度满分，用于归一化展示
const (
	financialMax   = 40.0
	innovationMax  = 30.0
	supplyChainMax = 20.0
	riskMax        = 10.0
	riskFloor      = 2.0
)

type band struct {
	min    float64
	points float64
}

// pick 返回第一个 v >= min 的档位分值
func pick(v float64, bands []band, fallback float64) float64 {
	for _, b := range bands {
		if v >= b.min {
			return b.points
		}
	}
	return fallback
}

var (
	profitMarginBands = []band{{0.15, 15}, {0.10, 12}, {0.05, 8}, {0, 5}}
	assetBands        = []band{{50000, 10}, {20000, 8}, {10000, 6}, {5000, 4}}
	rdBands           = []band{{15, 15}, {10, 12}, {5, 8}, {3, 5}}
	patentBands       = []band{{50, 15}, {20, 12}, {10, 9}, {5, 6}, {1, 3}}
	upstreamBands     = []band{{5, 10}, {3, 8}, {2, 6}, {1, 4}}
	downstreamBands   = []band{{20, 10}, {10, 8}, {5, 6}, {3, 4}}
)

// 行业调整分
var industryAdjustment = map[string]float64{
	"人工智能": 5, "新能源": 5, "生物医药": 5, "新材料": 5,
	"高端制造": 3, "信息技术": 3, "节能环保": 3,
	"传统制造": -3, "房地产": -3,
	"高污染": -5, "高能耗": -5,
}

// debtPoints 资产负债率越低得分越高
func debtPoints(ratio float64) float64 {
	switch {
	case ratio <= 30:
		return 15
	case ratio <= 50:
		return 12
	case ratio <= 70:
		return 8
	case ratio <= 85:
		return 4
	default:
		return 0
	}
}

// penaltyCount 扣分次数限制在 [0, 5]
func penaltyCount(n int) float64 {
	return math.Min(math.Max(float64(n), 0), 5)
}

// Score 根据原始财务数据计算信用评分（0-100）与归一化的分项得分
func Score(d model.CompanyData) (float64, model.ScoreDetails) {
	margin := 0.0
	if d.Revenue > 0 {
		margin = d.NetProfit / d.Revenue
	}

	financial := pick(margin, profitMarginBands, 0) +
		debtPoints(d.DebtToAssetRatio) +
		pick(d.TotalAssets, assetBands, 2)

	innovation := pick(d.RAndDRatio, rdBands, 2) +
		pick(float64(d.PatentCount), patentBands, 0)

	supply := pick(float64(d.UpstreamCoreCompanies), upstreamBands, 0) +
		pick(float64(d.DownstreamCustomers), downstreamBands, 2)

	risk := riskMax
	risk -= 2 * math.Sqrt(penaltyCount(d.OverdueCount))
	risk -= 3 * math.Sqrt(penaltyCount(d.LegalDisputesCount))
	risk = math.Max(risk, riskFloor)

	industry := industryAdjustment[d.Industry]

	total := financial + innovation + supply + risk + industry
	total = math.Min(math.Max(total, 0), 100)

	return total, model.ScoreDetails{
		FinancialScore:     financial / financialMax * 100,
		InnovationScore:    innovation / innovationMax * 100,
		SupplyChainScore:   supply / supplyChainMax * 100,
		RiskScore:          risk / riskMax * 100,
		IndustryAdjustment: industry,
	}
}

// Rating 评分对应的评级、建议额度与风险等级
type Rating struct {
	Rating    string    `json:"credit_rating"`
	Limit     string    `json:"credit_limit"`
	RiskLevel RiskLevel `json:"risk_level"`
}

var ratingLadder = []struct {
	min float64
	Rating
}{
	{90, Rating{"AAA", "1000万以上", RiskLow}},
	{85, Rating{"AA", "800-1000万", RiskLow}},
	{80, Rating{"A", "500-800万", RiskLow}},
	{70, Rating{"BBB", "300-500万", RiskMedium}},
	{60, Rating{"BB", "100-300万", RiskMedium}},
	{50, Rating{"B", "50-100万", RiskHigh}},
	{40, Rating{"CCC", "50万以下", RiskHigh}},
	{30, Rating{"CC", "需要担保", RiskCritical}},
}

// Rate 评分映射到评级阶梯
func Rate(score float64) Rating {
	for _, step := range ratingLadder {
		if score >= step.min {
			return step.Rating
		}
	}
	return Rating{"C", "拒绝授信", RiskCritical}
}

// KnownRatings 评级阶梯中的全部评级，由高到低
func KnownRatings() []string {
	out := make([]string, 0, len(ratingLadder)+1)
	for _, step := range ratingLadder {
		out = append(out, step.Rating.Rating)
	}
	return append(out, "C")
}

// IsKnownRating 是否为评级阶梯中的评级
func IsKnownRating(rating string) bool {
	for _, r := range KnownRatings() {
		if r == rating {
			return true
		}
	}
	return false
}

// Assess 对原始数据评分并生成完整的企业记录
func Assess(d model.CompanyData) model.Company {
	score, details := Score(d)
	r := Rate(score)
	return model.Company{
		CompanyData:  d,
		CreditScore:  score,
		CreditRating: r.Rating,
		CreditLimit:  r.Limit,
		RiskLevel:    string(r.RiskLevel),
		ScoreDetails: details,
		UpdatedAt:    time.Now(),
	}
}
