package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"creditlens/internal/model"
)

// EnsureIndexes 启动时为企业目录与对话归档建立索引
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return EnsureAllIndexes(ctx, db,
		model.Company{},
		model.Transcript{},
	)
}
