package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"creditlens/internal/model"
	"creditlens/internal/pkg/id"
)

// TranscriptRepo 对话归档仓库
type TranscriptRepo struct {
	collection *mongo.Collection
}

// NewTranscriptRepo 创建对话归档仓库
func NewTranscriptRepo(db *mongo.Database) *TranscriptRepo {
	var t model.Transcript
	return &TranscriptRepo{
		collection: db.Collection(t.Collection()),
	}
}

// Create 写入一份归档
func (r *TranscriptRepo) Create(ctx context.Context, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, t)
	return err
}

// FindByID 根据ID查询
func (r *TranscriptRepo) FindByID(ctx context.Context, transcriptID string) (*model.Transcript, error) {
	var t model.Transcript
	err := r.collection.FindOne(ctx, bson.M{"_id": transcriptID}).Decode(&t)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListByCompany 查询企业的历史对话，按时间倒序
func (r *TranscriptRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int64) ([]*model.Transcript, int64, error) {
	filter := bson.M{"company_id": companyID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var transcripts []*model.Transcript
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, 0, err
	}
	return transcripts, total, nil
}

// ListBySession 查询会话产生的全部归档
func (r *TranscriptRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.Transcript, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transcripts []*model.Transcript
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, err
	}
	return transcripts, nil
}

// Delete 删除归档
func (r *TranscriptRepo) Delete(ctx context.Context, transcriptID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": transcriptID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
