package model

import "time"

// CompanyData 企业原始财务数据（金额单位: 万元）
type CompanyData struct {
	CompanyID             string  `bson:"company_id" json:"company_id"`
	CompanyName           string  `bson:"company_name" json:"company_name"`
	Industry              string  `bson:"industry" json:"industry"`
	Revenue               float64 `bson:"revenue" json:"revenue"`
	NetProfit             float64 `bson:"net_profit" json:"net_profit"`
	TotalAssets           float64 `bson:"total_assets" json:"total_assets"`
	TotalLiabilities      float64 `bson:"total_liabilities" json:"total_liabilities"`
	DebtToAssetRatio      float64 `bson:"debt_to_asset_ratio" json:"debt_to_asset_ratio"` // 百分比
	RAndDRatio            float64 `bson:"r_and_d_ratio" json:"r_and_d_ratio"`             // 百分比
	PatentCount           int     `bson:"patent_count" json:"patent_count"`
	UpstreamCoreCompanies int     `bson:"upstream_core_companies" json:"upstream_core_companies"`
	DownstreamCustomers   int     `bson:"downstream_customers" json:"downstream_customers"`
	OverdueCount          int     `bson:"overdue_count" json:"overdue_count"`
	LegalDisputesCount    int     `bson:"legal_disputes_count" json:"legal_disputes_count"`
}

// ScoreDetails 分项得分（百分制归一化后的展示值，行业调整为原始分）
type ScoreDetails struct {
	FinancialScore     float64 `bson:"financial_score" json:"financial_score"`
	InnovationScore    float64 `bson:"innovation_score" json:"innovation_score"`
	SupplyChainScore   float64 `bson:"supply_chain_score" json:"supply_chain_score"`
	RiskScore          float64 `bson:"risk_score" json:"risk_score"`
	IndustryAdjustment float64 `bson:"industry_adjustment" json:"industry_adjustment"`
}

// Company 已评分的企业，对话所围绕的主体
type Company struct {
	CompanyData  CompanyData  `bson:"company_data" json:"company_data"`
	CreditScore  float64      `bson:"credit_score" json:"credit_score"`
	CreditRating string       `bson:"credit_rating" json:"credit_rating"`
	CreditLimit  string       `bson:"credit_limit" json:"credit_limit"`
	RiskLevel    string       `bson:"risk_level" json:"risk_level"`
	ScoreDetails ScoreDetails `bson:"score_details" json:"score_details"`
	UpdatedAt    time.Time    `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ID 返回企业ID
func (c Company) ID() string {
	return c.CompanyData.CompanyID
}

// Name 返回企业名称
func (c Company) Name() string {
	return c.CompanyData.CompanyName
}

// Assessment 人工调整的评估结果，CompanyName 为空时保留原名称
type Assessment struct {
	CompanyName  string  `json:"company_name,omitempty"`
	CreditScore  float64 `json:"credit_score"`
	CreditRating string  `json:"credit_rating"`
	CreditLimit  string  `json:"credit_limit"`
	RiskLevel    string  `json:"risk_level"`
}
