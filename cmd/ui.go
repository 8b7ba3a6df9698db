package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"creditlens/internal/credit"
	"creditlens/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(10)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)
)

func colored(hex, text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true).Render(text)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func score1(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// renderClassification 策略档位与提示标记
func renderClassification(score float64, riskLevel string, c credit.Classification) string {
	rows := []string{
		row("信用评分", score1(score)),
		row("风险等级", colored(credit.RiskColor(riskLevel), riskLevel)),
		row("授信策略", fmt.Sprintf("Tier %d  %s", c.Tier, c.Strategy)),
		row("", hintStyle.Render(c.Summary)),
	}
	if flags := alertLabels(c.Alerts); flags != "" {
		rows = append(rows, row("提示", flags))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func alertLabels(a credit.Alerts) string {
	var out []string
	if a.HighRisk {
		out = append(out, colored("#f44336", "高风险"))
	}
	if a.Attention {
		out = append(out, colored("#ff9800", "需关注"))
	}
	if a.Excellent {
		out = append(out, colored("#4caf50", "优质企业"))
	}
	return strings.Join(out, "  ")
}

// renderCompany 企业评分卡片
func renderCompany(c model.Company) string {
	cls := credit.ClassifyCompany(c)
	d := c.ScoreDetails
	rows := []string{
		titleStyle.Render(fmt.Sprintf("%s (%s)", c.Name(), c.ID())),
		row("行业", c.CompanyData.Industry),
		row("信用评分", score1(c.CreditScore)),
		row("信用评级", colored(credit.RatingColor(c.CreditRating), c.CreditRating)),
		row("授信额度", c.CreditLimit),
		row("风险等级", colored(credit.RiskColor(c.RiskLevel), c.RiskLevel)),
		row("分项得分", fmt.Sprintf("财务 %s  创新 %s  供应链 %s  风险 %s  行业调整 %s",
			score1(d.FinancialScore), score1(d.InnovationScore), score1(d.SupplyChainScore),
			score1(d.RiskScore), score1(d.IndustryAdjustment))),
		row("授信策略", fmt.Sprintf("Tier %d  %s", cls.Tier, cls.Strategy)),
	}
	if flags := alertLabels(cls.Alerts); flags != "" {
		rows = append(rows, row("提示", flags))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
