package persist

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/document"
)

const mongoConnectTimeout = 10 * time.Second

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore applies batches to a collection holding one document per canvas
// node, keyed by node id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and checks the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %v", cache.ErrNetwork, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo ping: %v", cache.ErrNetwork, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// Apply writes the batch with one unordered bulk write.
func (s *MongoStore) Apply(ctx context.Context, batchID string, patches []canvas.Patch) error {
	models := make([]mongo.WriteModel, 0, len(patches))
	for _, p := range patches {
		update := updateDoc(p)
		if len(update) == 0 {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetUpdate(update))
	}
	if len(models) == 0 {
		return nil
	}

	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		retry := mongo.IsNetworkError(err) || mongo.IsTimeout(err)
		err = fmt.Errorf("batch %s: %w", batchID, err)
		if retry {
			return cache.Retryable(err)
		}
		return err
	}
	return nil
}

// Nodes loads every stored node.
func (s *MongoStore) Nodes(ctx context.Context) ([]document.Node, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	var nodes []document.Node
	if err := cur.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	return nodes, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// updateDoc turns a patch into a $set/$unset update. Cleared fields (root
// parent, unconfined extent) are removed rather than stored as null.
func updateDoc(p canvas.Patch) bson.M {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range p.Map() {
		if v == nil {
			unset[k] = ""
		} else {
			set[k] = v
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
