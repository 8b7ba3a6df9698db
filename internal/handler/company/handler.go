package company

import (
	"github.com/gin-gonic/gin"

	"creditlens/internal/credit"
	"creditlens/internal/handler"
	"creditlens/internal/model"
	httputil "creditlens/internal/pkg/http"
	"creditlens/internal/repository"
	"creditlens/internal/service"
)

// Handler 企业目录处理器
type Handler struct {
	companies *service.CompanyService
}

// NewHandler 创建企业目录处理器
func NewHandler(companies *service.CompanyService) *Handler {
	return &Handler{companies: companies}
}

// CompanyURI 企业路径参数
type CompanyURI struct {
	CompanyID string `uri:"company_id" binding:"required"`
}

// ImportRequest 导入请求
type ImportRequest struct {
	Companies []model.CompanyData `json:"companies" binding:"required,min=1"`
}

// UpdateRequest 人工调整评估结果
type UpdateRequest struct {
	CompanyName  string   `json:"company_name"`
	CreditScore  *float64 `json:"credit_score" binding:"required"`
	CreditRating string   `json:"credit_rating" binding:"required"`
	CreditLimit  string   `json:"credit_limit" binding:"required"`
	RiskLevel    string   `json:"risk_level" binding:"required"`
}

// ListQuery 列表查询参数
type ListQuery struct {
	Industry   string  `form:"industry"`
	RiskLevel  string  `form:"risk_level"`
	HighCredit bool    `form:"high_credit"`
	MinScore   float64 `form:"min_score"`
	Order      string  `form:"order"` // asc / desc，默认 desc
	Limit      int64   `form:"limit"`
	Offset     int64   `form:"offset"`
}

// CompanyView 企业及其分类结果
type CompanyView struct {
	*model.Company
	Classification credit.Classification `json:"classification"`
	RiskColor      string                `json:"risk_color"`
	RatingColor    string                `json:"rating_color"`
}

func view(c *model.Company) CompanyView {
	return CompanyView{
		Company:        c,
		Classification: credit.ClassifyCompany(*c),
		RiskColor:      credit.RiskColor(c.RiskLevel),
		RatingColor:    credit.RatingColor(c.CreditRating),
	}
}

// ImportCompanies 导入企业原始数据
// @Summary      导入企业
// @Description  按原始财务数据评分并写入目录，同ID覆盖
// @Tags         企业目录
// @Accept       json
// @Produce      json
// @Param        request  body      ImportRequest  true  "企业原始数据"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  handler.ErrorResponse
// @Failure      503      {object}  handler.ErrorResponse  "未配置企业目录"
// @Router       /api/v1/companies [post]
func (h *Handler) ImportCompanies(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}

	imported, err := h.companies.Import(c.Request.Context(), req.Companies)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	views := make([]CompanyView, 0, len(imported))
	for i := range imported {
		views = append(views, view(&imported[i]))
	}
	handler.OK(c, views)
}

// ListCompanies 企业列表
// @Summary      企业列表
// @Tags         企业目录
// @Produce      json
// @Param        industry     query     string  false  "行业"
// @Param        risk_level   query     string  false  "风险等级"
// @Param        high_credit  query     bool    false  "仅投资级"
// @Param        min_score    query     number  false  "最低评分"
// @Param        order        query     string  false  "asc/desc"
// @Param        limit        query     int     false  "每页数量"
// @Param        offset       query     int     false  "偏移"
// @Success      200          {object}  map[string]interface{}
// @Router       /api/v1/companies [get]
func (h *Handler) ListCompanies(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.BadRequest(c, "Invalid query", err)
		return
	}

	filter := repository.CompanyFilter{
		Industry:   q.Industry,
		RiskLevel:  q.RiskLevel,
		HighCredit: q.HighCredit,
		MinScore:   q.MinScore,
		SortDesc:   q.Order != "asc",
	}
	companies, total, err := h.companies.List(c.Request.Context(), filter, q.Limit, q.Offset)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	items := make([]CompanyView, 0, len(companies))
	for _, co := range companies {
		items = append(items, view(co))
	}
	handler.OK(c, httputil.PageData[CompanyView]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset})
}

// GetCompany 查询企业
// @Summary      查询企业
// @Tags         企业目录
// @Produce      json
// @Param        company_id  path      string  true  "企业ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  handler.ErrorResponse
// @Router       /api/v1/companies/{company_id} [get]
func (h *Handler) GetCompany(c *gin.Context) {
	var uri CompanyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid company_id", err)
		return
	}

	co, err := h.companies.Get(c.Request.Context(), uri.CompanyID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, view(co))
}

// UpdateCompany 人工调整评估结果
// @Summary      调整企业评估
// @Description  覆盖评分、评级、授信额度与风险等级，评级与风险等级须为规范值
// @Tags         企业目录
// @Accept       json
// @Produce      json
// @Param        company_id  path      string         true  "企业ID"
// @Param        request     body      UpdateRequest  true  "评估结果"
// @Success      200         {object}  map[string]interface{}
// @Failure      400         {object}  handler.ErrorResponse  "请求无效或评级、风险等级非法"
// @Failure      404         {object}  handler.ErrorResponse
// @Failure      503         {object}  handler.ErrorResponse  "未配置企业目录"
// @Router       /api/v1/companies/{company_id} [put]
func (h *Handler) UpdateCompany(c *gin.Context) {
	var uri CompanyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid company_id", err)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}

	co, err := h.companies.Update(c.Request.Context(), uri.CompanyID, model.Assessment{
		CompanyName:  req.CompanyName,
		CreditScore:  *req.CreditScore,
		CreditRating: req.CreditRating,
		CreditLimit:  req.CreditLimit,
		RiskLevel:    req.RiskLevel,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, view(co))
}

// DeleteCompany 删除企业
// @Summary      删除企业
// @Tags         企业目录
// @Produce      json
// @Param        company_id  path      string  true  "企业ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  handler.ErrorResponse
// @Router       /api/v1/companies/{company_id} [delete]
func (h *Handler) DeleteCompany(c *gin.Context) {
	var uri CompanyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid company_id", err)
		return
	}
	if err := h.companies.Delete(c.Request.Context(), uri.CompanyID); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}

// Stats 目录统计
// @Summary      目录统计
// @Description  企业总数、平均分、高风险与优质企业数量、各策略档位数量
// @Tags         企业目录
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/companies/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.companies.Stats(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, st)
}
