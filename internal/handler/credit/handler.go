package credit

import (
	"github.com/gin-gonic/gin"

	"creditlens/internal/handler"
	"creditlens/internal/model"
	"creditlens/internal/service"
)

// Handler 信贷分类与评分处理器（无状态）
type Handler struct {
	companies *service.CompanyService
}

// NewHandler 创建处理器
func NewHandler(companies *service.CompanyService) *Handler {
	return &Handler{companies: companies}
}

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	CreditScore *float64 `json:"credit_score" binding:"required"`
	RiskLevel   string   `json:"risk_level"`
}

// Classify 信贷策略分类
// @Summary      信贷策略分类
// @Description  按评分与风险等级给出策略档位与提示标记
// @Tags         信贷
// @Accept       json
// @Produce      json
// @Param        request  body      ClassifyRequest  true  "评分与风险等级"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  handler.ErrorResponse
// @Router       /api/v1/credit/classify [post]
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}
	handler.OK(c, h.companies.Classify(*req.CreditScore, req.RiskLevel))
}

// Score 按原始数据评分
// @Summary      企业评分
// @Description  由原始财务数据计算评分、评级、授信额度与风险等级，不写入目录
// @Tags         信贷
// @Accept       json
// @Produce      json
// @Param        request  body      model.CompanyData  true  "企业原始数据"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  handler.ErrorResponse
// @Router       /api/v1/credit/score [post]
func (h *Handler) Score(c *gin.Context) {
	var req model.CompanyData
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}

	scored, err := h.companies.Score(req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{
		"company":        scored,
		"classification": h.companies.Classify(scored.CreditScore, scored.RiskLevel),
	})
}
