package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"choma/internal/model"
	"choma/internal/store"
)

const (
	mealsCollection      = "meals"
	importLogsCollection = "import_logs"

	duplicateKeyCode = 11000
)

// Store MongoDB 存储：餐品与导入日志
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect 连接 MongoDB 并建立索引
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(timeoutCtx, options.Client().ApplyURI(uri).SetRegistry(newRegistry()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(timeoutCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(timeoutCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// 名称唯一，不区分大小写
	_, err := s.db.Collection(mealsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "correlationId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create meal indexes: %w", err)
	}
	return nil
}

// Driver 存储驱动名
func (s *Store) Driver() string {
	return "mongo"
}

// Close 断开连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// InsertMeals 无序批量写入，逐条报告结果
func (s *Store) InsertMeals(ctx context.Context, meals []model.Meal) ([]model.InsertOutcome, error) {
	if len(meals) == 0 {
		return []model.InsertOutcome{}, nil
	}

	now := time.Now().UTC()
	ids := make([]string, len(meals))
	docs := make([]interface{}, len(meals))
	for i, meal := range meals {
		ids[i] = uuid.NewString()
		docs[i] = model.StoredMeal{ID: ids[i], Meal: meal, CreatedAt: now}
	}

	_, err := s.db.Collection(mealsCollection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return outcomesFromInsert(ids, err)
}

// outcomesFromInsert 将 InsertMany 的错误拆解为逐条结果
// BulkWriteException 之外的错误视为整批失败。
func outcomesFromInsert(ids []string, err error) ([]model.InsertOutcome, error) {
	outcomes := make([]model.InsertOutcome, len(ids))
	for i, id := range ids {
		outcomes[i].ID = id
	}
	if err == nil {
		return outcomes, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return nil, fmt.Errorf("failed to insert meals: %w", err)
	}
	if bwe.WriteConcernError != nil && len(bwe.WriteErrors) == 0 {
		return nil, fmt.Errorf("failed to insert meals: %w", err)
	}

	for _, we := range bwe.WriteErrors {
		if we.Index < 0 || we.Index >= len(outcomes) {
			continue
		}
		outcomes[we.Index].ID = ""
		if we.Code == duplicateKeyCode {
			outcomes[we.Index].Err = store.ErrDuplicateMeal
		} else {
			outcomes[we.Index].Err = errors.New(we.Message)
		}
	}
	return outcomes, nil
}

// ListMeals 按创建时间倒序分页
func (s *Store) ListMeals(ctx context.Context, limit, offset int) ([]model.StoredMeal, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.db.Collection(mealsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer cursor.Close(ctx)

	out := []model.StoredMeal{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode meals: %w", err)
	}
	return out, nil
}

// CountMeals 餐品总数
func (s *Store) CountMeals(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(mealsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return n, nil
}

type importLogDoc struct {
	ID           int64     `bson:"_id"`
	BatchID      string    `bson:"batchId"`
	Operator     string    `bson:"operator"`
	Filename     string    `bson:"filename"`
	TotalRows    int       `bson:"totalRows"`
	SuccessCount int       `bson:"successCount"`
	FailedCount  int       `bson:"failedCount"`
	Status       string    `bson:"status"`
	ErrorMessage string    `bson:"errorMessage,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// InsertImportLog 写入导入日志；id 取纳秒时间戳，保证单调
func (s *Store) InsertImportLog(ctx context.Context, entry model.ImportLog) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	doc := importLogDoc{
		ID:           entry.CreatedAt.UnixNano(),
		BatchID:      entry.BatchID,
		Operator:     entry.Operator,
		Filename:     entry.Filename,
		TotalRows:    entry.TotalRows,
		SuccessCount: entry.SuccessCount,
		FailedCount:  entry.FailedCount,
		Status:       string(entry.Status),
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    entry.CreatedAt,
	}
	if _, err := s.db.Collection(importLogsCollection).InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	return doc.ID, nil
}

// ListImportLogs 最近的导入日志
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(importLogsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []importLogDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode import logs: %w", err)
	}

	out := make([]model.ImportLog, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ImportLog{
			ID:           d.ID,
			BatchID:      d.BatchID,
			Operator:     d.Operator,
			Filename:     d.Filename,
			TotalRows:    d.TotalRows,
			SuccessCount: d.SuccessCount,
			FailedCount:  d.FailedCount,
			Status:       model.UploadStatus(d.Status),
			ErrorMessage: d.ErrorMessage,
			CreatedAt:    d.CreatedAt,
		})
	}
	return out, nil
}

// LastImportLog 最近一次导入，没有时返回 nil
func (s *Store) LastImportLog(ctx context.Context) (*model.ImportLog, error) {
	logs, err := s.ListImportLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}
