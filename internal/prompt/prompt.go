// Package prompt 构建发送给模型的提示词
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"creditlens/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Kind 快捷分析类型
type Kind string

const (
	KindFreeText       Kind = ""
	KindCreditAnalysis Kind = "credit_analysis"
	KindAlgorithmCheck Kind = "algorithm_check"
)

// Shortcut 快捷分析入口
type Shortcut struct {
	Kind        Kind   `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var shortcuts = []Shortcut{
	{KindCreditAnalysis, "根据原始数据分析信贷", "基于原始财务数据进行独立信贷评估"},
	{KindAlgorithmCheck, "验证算法准确性", "对比原始数据与算法结果"},
}

// Shortcuts 返回快捷分析列表
func Shortcuts() []Shortcut {
	return append([]Shortcut(nil), shortcuts...)
}

// Lookup 按类型查找快捷分析
func Lookup(kind Kind) (Shortcut, bool) {
	for _, s := range shortcuts {
		if s.Kind == kind {
			return s, true
		}
	}
	return Shortcut{}, false
}

// System 系统提示词；快捷分析会附加对应的分析要求
func System(kind Kind) string {
	out, err := render("system.tmpl", struct{ Kind Kind }{kind})
	if err != nil {
		// 模板在编译期嵌入，只有模板本身有误时才会走到这里
		panic(err)
	}
	return out
}

// CreditAnalysis 企业原始数据档案，用于开放式信贷分析
func CreditAnalysis(c model.Company) (string, error) {
	return render("credit_analysis.tmpl", newDossier(c))
}

// AlgorithmCheck 原始数据与评分结果对照，用于让模型复核评分
func AlgorithmCheck(c model.Company) (string, error) {
	return render("algorithm_check.tmpl", newDossier(c))
}

// Build 按类型生成用户消息正文
func Build(kind Kind, c model.Company) (string, error) {
	switch kind {
	case KindCreditAnalysis:
		return CreditAnalysis(c)
	case KindAlgorithmCheck:
		return AlgorithmCheck(c)
	default:
		return "", fmt.Errorf("unknown prompt kind: %q", kind)
	}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// dossier 模板所需的已格式化字段
type dossier struct {
	Name, ID, Industry                  string
	Revenue, NetProfit, ProfitMargin    string
	TotalAssets, TotalLiabilities       string
	NetAssets, NetAssetRatio, DebtRatio string
	RDRatio                             string
	Patents, Upstream, Downstream       int
	Overdue, Disputes                   int
	Score, Rating, Limit, RiskLevel     string
}

func newDossier(c model.Company) dossier {
	d := c.CompanyData
	netAssets := d.TotalAssets - d.TotalLiabilities

	margin, netRatio := "0.00", "0.00"
	if d.Revenue > 0 {
		margin = fixed(d.NetProfit/d.Revenue*100, 2)
	}
	if d.TotalAssets > 0 {
		netRatio = fixed(netAssets/d.TotalAssets*100, 2)
	}

	return dossier{
		Name:             d.CompanyName,
		ID:               d.CompanyID,
		Industry:         d.Industry,
		Revenue:          grouped(d.Revenue),
		NetProfit:        grouped(d.NetProfit),
		ProfitMargin:     margin,
		TotalAssets:      grouped(d.TotalAssets),
		TotalLiabilities: grouped(d.TotalLiabilities),
		NetAssets:        grouped(decimal.NewFromFloat(netAssets).Round(2).InexactFloat64()),
		NetAssetRatio:    netRatio,
		DebtRatio:        plain(d.DebtToAssetRatio),
		RDRatio:          plain(d.RAndDRatio),
		Patents:          d.PatentCount,
		Upstream:         d.UpstreamCoreCompanies,
		Downstream:       d.DownstreamCustomers,
		Overdue:          d.OverdueCount,
		Disputes:         d.LegalDisputesCount,
		Score:            fixed(c.CreditScore, 1),
		Rating:           c.CreditRating,
		Limit:            c.CreditLimit,
		RiskLevel:        c.RiskLevel,
	}
}

var printer = message.NewPrinter(language.SimplifiedChinese)

// grouped 千分位分组，最多保留三位小数
func grouped(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// fixed 固定小数位
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// plain 最短表示
func plain(v float64) string {
	return decimal.NewFromFloat(v).String()
}
