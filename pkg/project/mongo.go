package project

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/recompose/pkg/errors"
)

// DefaultCollection holds projects in MongoDB.
const DefaultCollection = "projects"

// MongoStore keeps one document per project in a MongoDB collection, keyed
// by project name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoProject struct {
	Name      string    `bson:"_id"`
	Project   Project   `bson:"project"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to uri and uses database db. The connection is
// verified with a ping.
func NewMongoStore(ctx context.Context, uri, db string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return &MongoStore{client: client, coll: client.Database(db).Collection(DefaultCollection)}, nil
}

func (s *MongoStore) Save(ctx context.Context, name string, p *Project) error {
	out, err := prepare(name, p)
	if err != nil {
		return err
	}
	doc := mongoProject{Name: name, Project: *out, UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save project %q: %w", name, err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, name string) (*Project, error) {
	var doc mongoProject
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeProjectNotFound, "project %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %q: %w", name, err)
	}
	return &doc.Project, nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var docs []struct {
		Name string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names, nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
