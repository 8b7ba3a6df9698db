package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"creditlens/internal/credit"
	"creditlens/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// CompanyFilter 企业列表过滤条件
type CompanyFilter struct {
	Industry   string
	RiskLevel  string // 按规范等级过滤，同义词一并匹配
	HighCredit bool   // 仅 AAA/AA/A/BBB
	MinScore   float64
	SortDesc   bool // 按评分排序
}

// CompanyRepo 企业目录仓库
type CompanyRepo struct {
	collection *mongo.Collection
}

// NewCompanyRepo 创建企业目录仓库
func NewCompanyRepo(db *mongo.Database) *CompanyRepo {
	var c model.Company
	return &CompanyRepo{
		collection: db.Collection(c.Collection()),
	}
}

// Upsert 按企业ID写入或覆盖
func (r *CompanyRepo) Upsert(ctx context.Context, c *model.Company) error {
	c.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"company_data.company_id": c.ID()},
		c,
		options.Replace().SetUpsert(true),
	)
	return err
}

// FindByID 根据企业ID查询
func (r *CompanyRepo) FindByID(ctx context.Context, companyID string) (*model.Company, error) {
	var c model.Company
	err := r.collection.FindOne(ctx, bson.M{"company_data.company_id": companyID}).Decode(&c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// List 分页查询企业
func (r *CompanyRepo) List(ctx context.Context, f CompanyFilter, limit, offset int64) ([]*model.Company, int64, error) {
	filter := buildCompanyFilter(f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := 1
	if f.SortDesc {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "credit_score", Value: order}, bson.E{Key: "company_data.company_id", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var companies []*model.Company
	if err := cursor.All(ctx, &companies); err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

// All 全部企业，用于统计
func (r *CompanyRepo) All(ctx context.Context) ([]model.Company, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var companies []model.Company
	if err := cursor.All(ctx, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// UpdateAssessment 覆盖企业的评分、评级、额度与风险等级，返回更新后的记录
func (r *CompanyRepo) UpdateAssessment(ctx context.Context, companyID string, a model.Assessment) (*model.Company, error) {
	var c model.Company
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"company_data.company_id": companyID},
		bson.M{"$set": assessmentUpdate(a, time.Now())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func assessmentUpdate(a model.Assessment, now time.Time) bson.M {
	set := bson.M{
		"credit_score":  a.CreditScore,
		"credit_rating": a.CreditRating,
		"credit_limit":  a.CreditLimit,
		"risk_level":    a.RiskLevel,
		"updated_at":    now,
	}
	if a.CompanyName != "" {
		set["company_data.company_name"] = a.CompanyName
	}
	return set
}

// Delete 删除企业
func (r *CompanyRepo) Delete(ctx context.Context, companyID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"company_data.company_id": companyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func buildCompanyFilter(f CompanyFilter) bson.M {
	filter := bson.M{}
	if f.Industry != "" {
		filter["company_data.industry"] = f.Industry
	}
	if f.RiskLevel != "" {
		filter["risk_level"] = bson.M{"$in": riskLabels(f.RiskLevel)}
	}
	if f.HighCredit {
		filter["credit_rating"] = bson.M{"$in": credit.HighCreditRatings}
	}
	if f.MinScore > 0 {
		filter["credit_score"] = bson.M{"$gte": f.MinScore}
	}
	return filter
}

// riskLabels 规范等级及其同义词
func riskLabels(label string) []string {
	level, ok := credit.NormalizeRiskLevel(label)
	if !ok {
		return []string{label}
	}
	return append([]string{string(level)}, credit.RiskAliases(level)...)
}
