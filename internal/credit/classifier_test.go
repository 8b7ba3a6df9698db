package credit

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"creditlens/internal/model"
)

func TestStrategy(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		risk  string
		want  Tier
	}{
		{"低风险 85 分落入第一档", 85, "低", TierPreferred},
		{"低风险略低于 85", 84.99, "低", TierStandard},
		{"中风险 70 分落入第二档", 70, "中", TierStandard},
		{"中风险略低于 70", 69.99, "中", TierRestricted},
		{"极高风险高分仍拒绝", 90, "极高", TierDecline},
		{"高风险不看分数", 99, "高", TierRestricted},
		{"高风险低分", 10, "高", TierRestricted},
		{"低风险超过 100 不截断", 130, "低", TierPreferred},
		{"未知标签最保守", 95, "unknown", TierDecline},
		{"中等不是规范标签", 95, "中等", TierDecline},
		{"策略比较不去空白", 95, " 低 ", TierDecline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strategy(tt.score, tt.risk); got != tt.want {
				t.Errorf("Strategy(%v, %q) = %v, want %v", tt.score, tt.risk, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	Convey("Classify 同时给出策略与提示标记", t, func() {
		Convey("第一档文本", func() {
			c := Classify(85, "低")
			So(c.Tier, ShouldEqual, TierPreferred)
			So(c.Strategy, ShouldEqual, "高额度、低利率、长期还款")
			So(c.Summary, ShouldEqual, "high limit, preferential rate, long tenor")
			So(c.Alerts.Excellent, ShouldBeTrue)
		})

		Convey("第四档文本", func() {
			c := Classify(90, "极高")
			So(c.Tier, ShouldEqual, TierDecline)
			So(c.Strategy, ShouldEqual, "不授信或仅提供融资担保")
			So(c.Alerts.HighRisk, ShouldBeTrue)
		})

		Convey("不修改企业记录", func() {
			company := model.Company{CreditScore: 72, RiskLevel: " 中 "}
			before := company
			_ = ClassifyCompany(company)
			So(company, ShouldResemble, before)
		})
	})

	Convey("Tier 越界时回落到最保守文本", t, func() {
		So(Tier(0).Text(), ShouldEqual, TierDecline.Text())
		So(Tier(9).String(), ShouldEqual, "decline")
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Evaluate 计算提示标记", t, func() {
		Convey("去除空白后识别高风险", func() {
			a := Evaluate(90, " 高 ")
			So(a.HighRisk, ShouldBeTrue)
			So(a.Excellent, ShouldBeFalse)
			So(a.Attention, ShouldBeFalse)
		})

		Convey("中风险总是需要关注", func() {
			So(Evaluate(95, "中").Attention, ShouldBeTrue)
			So(Evaluate(95, "中等").Attention, ShouldBeTrue)
		})

		Convey("低分非高风险需要关注", func() {
			a := Evaluate(60, "低")
			So(a.Attention, ShouldBeTrue)
			So(a.Excellent, ShouldBeFalse)
		})

		Convey("低分高风险只标记高风险", func() {
			a := Evaluate(40, "极高")
			So(a.HighRisk, ShouldBeTrue)
			So(a.Attention, ShouldBeFalse)
		})

		Convey("极低风险高分为优秀", func() {
			a := Evaluate(88, "极低")
			So(a.Excellent, ShouldBeTrue)
			So(a.Attention, ShouldBeFalse)
			So(a.Any(), ShouldBeTrue)
		})

		Convey("低风险 85 以下无标记", func() {
			So(Evaluate(80, "低").Any(), ShouldBeFalse)
		})
	})
}

func TestNormalizeRiskLevel(t *testing.T) {
	Convey("NormalizeRiskLevel 归一同义写法", t, func() {
		level, ok := NormalizeRiskLevel(" 中等 ")
		So(ok, ShouldBeTrue)
		So(level, ShouldEqual, RiskMedium)

		level, ok = NormalizeRiskLevel("极低")
		So(ok, ShouldBeTrue)
		So(level, ShouldEqual, RiskLow)

		_, ok = NormalizeRiskLevel("medium")
		So(ok, ShouldBeFalse)
	})
}
