package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"creditlens/internal/credit"
	"creditlens/internal/model"
	"creditlens/internal/pkg/cache"
	"creditlens/internal/pkg/metrics"
	"creditlens/internal/repository"
)

var (
	// ErrInvalidCompany 企业数据缺少必要字段
	ErrInvalidCompany = errors.New("company_id and company_name are required")
	// ErrInvalidAssessment 人工调整的评估结果不合法
	ErrInvalidAssessment = errors.New("invalid credit assessment")
)

// CompanyStore 企业目录存储
type CompanyStore interface {
	Upsert(ctx context.Context, c *model.Company) error
	FindByID(ctx context.Context, companyID string) (*model.Company, error)
	List(ctx context.Context, f repository.CompanyFilter, limit, offset int64) ([]*model.Company, int64, error)
	All(ctx context.Context) ([]model.Company, error)
	UpdateAssessment(ctx context.Context, companyID string, a model.Assessment) (*model.Company, error)
	Delete(ctx context.Context, companyID string) error
}

// Cache 键值缓存
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CompanyService 企业目录与信贷分类
type CompanyService struct {
	store CompanyStore
	cache Cache // 可为空
}

// NewCompanyService 创建企业服务；store 为空时只提供无状态的评分与分类
func NewCompanyService(store CompanyStore, c Cache) *CompanyService {
	return &CompanyService{store: store, cache: c}
}

// HasCatalog 是否配置了企业目录存储
func (s *CompanyService) HasCatalog() bool {
	return s.store != nil
}

// Classify 计算策略档位与提示标记
func (s *CompanyService) Classify(score float64, riskLevel string) credit.Classification {
	result := credit.Classify(score, riskLevel)
	metrics.ClassificationsTotal.WithLabelValues(result.Tier.String()).Inc()
	return result
}

// Score 由原始数据计算评分、评级、额度与风险等级
func (s *CompanyService) Score(d model.CompanyData) (model.Company, error) {
	if strings.TrimSpace(d.CompanyID) == "" || strings.TrimSpace(d.CompanyName) == "" {
		return model.Company{}, ErrInvalidCompany
	}
	return credit.Assess(d), nil
}

// Import 评分并写入目录
func (s *CompanyService) Import(ctx context.Context, data []model.CompanyData) ([]model.Company, error) {
	if s.store == nil {
		return nil, ErrNoCatalog
	}

	out := make([]model.Company, 0, len(data))
	keys := []string{cache.StatsCacheKey}
	// 中途失败时已写入的记录同样需要失效缓存
	defer func() { s.invalidate(ctx, keys...) }()

	for _, d := range data {
		c, err := s.Score(d)
		if err != nil {
			return out, fmt.Errorf("company %q: %w", d.CompanyID, err)
		}
		keys = append(keys, cache.CompanyCacheKey(c.ID()))
		if err := s.store.Upsert(ctx, &c); err != nil {
			return out, fmt.Errorf("upsert company %s: %w", c.ID(), err)
		}
		out = append(out, c)
	}

	log.Info().Int("count", len(out)).Msg("companies imported")
	return out, nil
}

// Get 查询企业，优先读缓存
func (s *CompanyService) Get(ctx context.Context, companyID string) (*model.Company, error) {
	if s.store == nil {
		return nil, ErrNoCatalog
	}

	key := cache.CompanyCacheKey(companyID)
	if s.cache != nil {
		var c model.Company
		err := s.cache.Get(ctx, key, &c)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("company_id", companyID).Msg("company cache read failed")
		}
	}

	c, err := s.store.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, c, cache.CompanyCacheTTL); err != nil {
			log.Warn().Err(err).Str("company_id", companyID).Msg("company cache write failed")
		}
	}
	return c, nil
}

// List 分页查询
func (s *CompanyService) List(ctx context.Context, f repository.CompanyFilter, limit, offset int64) ([]*model.Company, int64, error) {
	if s.store == nil {
		return nil, 0, ErrNoCatalog
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, f, limit, offset)
}

// Stats 目录统计
func (s *CompanyService) Stats(ctx context.Context) (credit.Stats, error) {
	if s.store == nil {
		return credit.Stats{}, ErrNoCatalog
	}

	var st credit.Stats
	if s.cache != nil && s.cache.Get(ctx, cache.StatsCacheKey, &st) == nil {
		return st, nil
	}

	companies, err := s.store.All(ctx)
	if err != nil {
		return credit.Stats{}, err
	}
	st = credit.Summarize(companies)

	if s.cache != nil {
		_ = s.cache.Set(ctx, cache.StatsCacheKey, st, cache.StatsCacheTTL)
	}
	return st, nil
}

// Update 人工调整评估结果，评级与风险等级须为规范值
func (s *CompanyService) Update(ctx context.Context, companyID string, a model.Assessment) (*model.Company, error) {
	if s.store == nil {
		return nil, ErrNoCatalog
	}

	a.CompanyName = strings.TrimSpace(a.CompanyName)
	a.CreditRating = strings.TrimSpace(a.CreditRating)
	a.CreditLimit = strings.TrimSpace(a.CreditLimit)
	switch {
	case a.CreditScore < 0 || a.CreditScore > 100:
		return nil, fmt.Errorf("%w: credit_score %v out of range [0, 100]", ErrInvalidAssessment, a.CreditScore)
	case !credit.IsKnownRating(a.CreditRating):
		return nil, fmt.Errorf("%w: unknown credit_rating %q", ErrInvalidAssessment, a.CreditRating)
	case a.CreditLimit == "":
		return nil, fmt.Errorf("%w: credit_limit is required", ErrInvalidAssessment)
	}
	level, ok := credit.NormalizeRiskLevel(a.RiskLevel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown risk_level %q", ErrInvalidAssessment, a.RiskLevel)
	}
	a.RiskLevel = string(level)

	c, err := s.store.UpdateAssessment(ctx, companyID, a)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, cache.CompanyCacheKey(companyID), cache.StatsCacheKey)

	log.Info().Str("company_id", companyID).Str("rating", a.CreditRating).Str("risk_level", a.RiskLevel).Msg("company assessment updated")
	return c, nil
}

// Delete 删除企业
func (s *CompanyService) Delete(ctx context.Context, companyID string) error {
	if s.store == nil {
		return ErrNoCatalog
	}
	if err := s.store.Delete(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompanyNotFound
		}
		return err
	}
	s.invalidate(ctx, cache.CompanyCacheKey(companyID), cache.StatsCacheKey)
	return nil
}

func (s *CompanyService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
