package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/model"
)

const (
	tendersCollection = "tenders"
	matchesCollection = "matches"

	connectTimeout = 10 * time.Second
)

// Mongo wraps the tender and match collections of one database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

func NewMongo(ctx context.Context, uri, database string, logger *zap.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// SaveTenders upserts tenders keyed by their feed id.
func (m *Mongo) SaveTenders(ctx context.Context, tenders []model.Tender) error {
	coll := m.db.Collection(tendersCollection)

	for i := range tenders {
		tender := &tenders[i]
		if err := tender.Validate(); err != nil {
			m.logger.Warn("skipping invalid tender", zap.Error(err))
			continue
		}

		_, err := coll.UpdateOne(ctx,
			bson.M{"id": tender.ID},
			bson.M{"$set": tender},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert tender %s: %w", tender.ID, err)
		}
	}

	m.logger.Info("tenders saved", zap.Int("count", len(tenders)))
	return nil
}

// Tenders returns all stored tenders.
func (m *Mongo) Tenders(ctx context.Context) ([]model.Tender, error) {
	cursor, err := m.db.Collection(tendersCollection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find tenders: %w", err)
	}

	var tenders []model.Tender
	if err := cursor.All(ctx, &tenders); err != nil {
		return nil, fmt.Errorf("decode tenders: %w", err)
	}

	return tenders, nil
}

// SaveMatches upserts matches keyed by (tender_id, matched_product), the
// same identity the postprocessor deduplicates on.
func (m *Mongo) SaveMatches(ctx context.Context, matches []model.Match) error {
	coll := m.db.Collection(matchesCollection)

	for i := range matches {
		match := &matches[i]
		if err := match.Validate(); err != nil {
			m.logger.Warn("skipping invalid match", zap.Error(err))
			continue
		}

		_, err := coll.UpdateOne(ctx,
			bson.M{"tender_id": match.TenderID, "matched_product": match.MatchedProduct},
			bson.M{"$set": match},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert match %s/%s: %w", match.TenderID, match.MatchedProduct, err)
		}
	}

	m.logger.Info("matches saved", zap.Int("count", len(matches)))
	return nil
}

// Matches returns all stored matches, highest score first.
func (m *Mongo) Matches(ctx context.Context) ([]model.Match, error) {
	opts := options.Find().SetSort(bson.D{{Key: "score", Value: -1}})

	cursor, err := m.db.Collection(matchesCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find matches: %w", err)
	}

	var matches []model.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}

	return matches, nil
}

func (m *Mongo) CountMatches(ctx context.Context) (int64, error) {
	return m.db.Collection(matchesCollection).CountDocuments(ctx, bson.D{})
}
