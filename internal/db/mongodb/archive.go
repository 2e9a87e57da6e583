// Package mongodb holds the optional raw-response archive. The SQL store
// keeps analyzed rows; the archive keeps full untruncated responses for
// later re-analysis.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sovtrack/sovtrack/internal/models"
)

const collResponses = "llm_responses"

// ArchivedResponse is one raw LLM answer stored verbatim.
type ArchivedResponse struct {
	ID           string          `bson:"_id"`
	RunID        string          `bson:"run_id"`
	ProjectID    int64           `bson:"project_id"`
	QueryID      int64           `bson:"query_id"`
	AnalysisDate string          `bson:"analysis_date"`
	LLMProvider  string          `bson:"llm_provider"`
	ModelUsed    string          `bson:"model_used"`
	QueryText    string          `bson:"query_text"`
	Content      string          `bson:"content"`
	Sources      []models.Source `bson:"sources,omitempty"`
	CreatedAt    time.Time       `bson:"created_at"`
}

// Archive implements the raw-response archive for MongoDB
type Archive struct {
	client   *mongo.Client
	database *mongo.Database
	uri      string
	dbName   string
}

// New creates a new archive instance
func New(uri, dbName string) *Archive {
	return &Archive{uri: uri, dbName: dbName}
}

// Connect establishes connection to MongoDB
func (a *Archive) Connect(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(a.uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	a.client = client
	a.database = client.Database(a.dbName)

	if err := a.createIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// Disconnect closes the MongoDB connection
func (a *Archive) Disconnect(ctx context.Context) error {
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

// Ping checks the database connection
func (a *Archive) Ping(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("not connected to database")
	}
	return a.client.Ping(ctx, nil)
}

func (a *Archive) createIndexes(ctx context.Context) error {
	responseIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "analysis_date", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "run_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := a.database.Collection(collResponses).Indexes().CreateMany(ctx, responseIndexes)
	if err != nil {
		return fmt.Errorf("failed to create response indexes: %w", err)
	}

	return nil
}

// Store archives one raw response. The generated id is returned.
func (a *Archive) Store(ctx context.Context, resp *ArchivedResponse) (string, error) {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	resp.CreatedAt = time.Now()

	_, err := a.database.Collection(collResponses).InsertOne(ctx, resp)
	if err != nil {
		return "", fmt.Errorf("failed to archive response: %w", err)
	}
	return resp.ID, nil
}

// ListByRun returns the archived responses of one run.
func (a *Archive) ListByRun(ctx context.Context, runID string) ([]*ArchivedResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := a.database.Collection(collResponses).Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived responses: %w", err)
	}
	defer cursor.Close(ctx)

	var responses []*ArchivedResponse
	for cursor.Next(ctx) {
		var resp ArchivedResponse
		if err := cursor.Decode(&resp); err != nil {
			return nil, err
		}
		responses = append(responses, &resp)
	}
	return responses, cursor.Err()
}

// ListByProjectDate returns the archived responses of one (project, day).
func (a *Archive) ListByProjectDate(ctx context.Context, projectID int64, date string) ([]*ArchivedResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := a.database.Collection(collResponses).Find(ctx,
		bson.M{"project_id": projectID, "analysis_date": date}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived responses: %w", err)
	}
	defer cursor.Close(ctx)

	var responses []*ArchivedResponse
	for cursor.Next(ctx) {
		var resp ArchivedResponse
		if err := cursor.Decode(&resp); err != nil {
			return nil, err
		}
		responses = append(responses, &resp)
	}
	return responses, cursor.Err()
}
