package history

import (
	"context"
	sterrors "errors"
	"time"

	"github.com/oarkflow/json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oarkflow/bella/pkg/config"
)

// MongoStore keeps one document per run.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type runDocument struct {
	ID        string    `bson:"_id"`
	Source    string    `bson:"source"`
	Output    string    `bson:"output"`
	Error     string    `bson:"error,omitempty"`
	ErrorCode string    `bson:"error_code,omitempty"`
	StartedAt time.Time `bson:"started_at"`
	Duration  int64     `bson:"duration"`
}

func NewMongoStore(ctx context.Context, cfg config.HistoryConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	collection := cfg.Collection
	if collection == "" {
		collection = runsTable
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(collection),
	}, nil
}

func toDocument(run Run) (runDocument, error) {
	output, err := json.Marshal(run.Output)
	if err != nil {
		return runDocument{}, err
	}
	return runDocument{
		ID:        run.ID,
		Source:    run.Source,
		Output:    string(output),
		Error:     run.Error,
		ErrorCode: run.ErrorCode,
		StartedAt: run.StartedAt,
		Duration:  int64(run.Duration),
	}, nil
}

func fromDocument(doc runDocument) (Run, error) {
	run := Run{
		ID:        doc.ID,
		Source:    doc.Source,
		Error:     doc.Error,
		ErrorCode: doc.ErrorCode,
		StartedAt: doc.StartedAt.UTC(),
		Duration:  time.Duration(doc.Duration),
	}
	if err := json.Unmarshal([]byte(doc.Output), &run.Output); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *MongoStore) Save(ctx context.Context, run Run) error {
	doc, err := toDocument(run)
	if err != nil {
		return err
	}
	_, err = s.collection.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) Get(ctx context.Context, id string) (Run, error) {
	var doc runDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if sterrors.Is(err, mongo.ErrNoDocuments) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return fromDocument(doc)
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var runs []Run
	for cursor.Next(ctx) {
		var doc runDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		run, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, cursor.Err()
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
