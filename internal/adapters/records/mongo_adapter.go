package records

import (
	"context"
	"time"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/clients/mongodb"
	apperrors "github.com/activmedica/backend/pkg/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordCollection = "report_records"

type recordDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Name      string    `bson:"name"`
	PDFURL    string    `bson:"pdf_url"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoAdapter implements the RecordStore provider on MongoDB.
type MongoAdapter struct {
	collection *mongo.Collection
}

// NewMongoAdapter creates a new MongoDB record store adapter.
func NewMongoAdapter(client *mongodb.Client) providers.RecordStore {
	return &MongoAdapter{
		collection: client.Database().Collection(recordCollection),
	}
}

// Append inserts a report record. Records are never updated or deleted.
func (a *MongoAdapter) Append(ctx context.Context, record *entities.ReportRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	doc := recordDocument{
		ID:        record.ID,
		UserID:    record.UserID,
		Name:      record.Name,
		PDFURL:    record.PDFURL,
		CreatedAt: record.CreatedAt,
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return apperrors.NewRecordWriteError("failed to append report record", err)
	}
	return nil
}

// ListByUser returns the user's report records in insertion order.
func (a *MongoAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.ReportRecord, error) {
	cursor, err := a.collection.Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"created_at": 1}),
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list report records", err)
	}
	defer cursor.Close(ctx)

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewInternalError("failed to decode report records", err)
	}

	results := make([]*entities.ReportRecord, 0, len(docs))
	for _, doc := range docs {
		results = append(results, &entities.ReportRecord{
			ID:        doc.ID,
			UserID:    doc.UserID,
			Name:      doc.Name,
			PDFURL:    doc.PDFURL,
			CreatedAt: doc.CreatedAt,
		})
	}
	return results, nil
}
