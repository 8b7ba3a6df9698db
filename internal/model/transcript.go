package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Transcript 被归档的对话记录
// 切换企业或关闭会话时，已完成的对话会被整体写入
type Transcript struct {
	ID          string    `bson:"_id" json:"id"`
	SessionID   string    `bson:"session_id" json:"session_id"`
	CompanyID   string    `bson:"company_id" json:"company_id"`
	CompanyName string    `bson:"company_name" json:"company_name"`
	Turns       []Turn    `bson:"turns" json:"turns"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Collection 返回集合名称
func (Transcript) Collection() string {
	return "transcripts"
}

// EnsureIndexes 创建 transcripts 集合索引
func (t Transcript) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(t.Collection()).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "company_id", Value: 1}, bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_company_created"),
		},
		{
			Keys:    bson.D{bson.E{Key: "session_id", Value: 1}},
			Options: options.Index().SetName("idx_session"),
		},
	})
	return err
}

// Collection 返回集合名称
func (Company) Collection() string {
	return "companies"
}

// EnsureIndexes 创建 companies 集合索引
func (c Company) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(c.Collection()).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "company_data.company_id", Value: 1}},
			Options: options.Index().SetName("uniq_company_id").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "credit_score", Value: -1}},
			Options: options.Index().SetName("idx_score"),
		},
	})
	return err
}
