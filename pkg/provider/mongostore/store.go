// Package mongostore serves location records from MongoDB.
//
// Records live in one collection, one document per location:
//
//	{"depot": "7", "id": "A-01", "x": 0, "z": 0, "stock": 120, "locWeight": 3.5, "order": 0}
//
// Depots live in a second collection ("<collection>_depots" by default):
//
//	{"_id": "7", "name": "North", "fillRate": 0.42}
//
// Layout returns the depot's documents sorted by order, then by _id, which
// keeps insertion order for documents written without an order field.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Defaults for Options.
const (
	DefaultDatabase   = "depotview"
	DefaultCollection = "locations"
	DefaultTimeout    = 10 * time.Second
)

// Options configures a Store.
type Options struct {
	URI        string
	Database   string
	Collection string
	// DepotCollection defaults to Collection + "_depots".
	DepotCollection string
	Timeout         time.Duration
}

func (o *Options) normalize() {
	if o.Database == "" {
		o.Database = DefaultDatabase
	}
	if o.Collection == "" {
		o.Collection = DefaultCollection
	}
	if o.DepotCollection == "" {
		o.DepotCollection = o.Collection + "_depots"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// Store reads layouts from MongoDB.
type Store struct {
	client    *mongo.Client
	locations *mongo.Collection
	depots    *mongo.Collection
	timeout   time.Duration
	owned     bool
}

// Connect dials MongoDB and returns a store that owns the connection.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, errors.Config("mongo uri is empty")
	}
	opts.normalize()
	cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(opts.URI).SetConnectTimeout(opts.Timeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	s := New(client, opts)
	s.owned = true
	return s, nil
}

// New returns a store on an existing client. Close does not disconnect
// a client the store did not create.
func New(client *mongo.Client, opts Options) *Store {
	opts.normalize()
	db := client.Database(opts.Database)
	return &Store{
		client:    client,
		locations: db.Collection(opts.Collection),
		depots:    db.Collection(opts.DepotCollection),
		timeout:   opts.Timeout,
	}
}

// Close disconnects the client if the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// locationDoc is the stored form of a location. ID may be a string or a
// number in existing data.
type locationDoc struct {
	Depot     string  `bson:"depot"`
	ID        any     `bson:"id"`
	X         int     `bson:"x"`
	Z         int     `bson:"z"`
	Stock     float64 `bson:"stock"`
	LocWeight float64 `bson:"locWeight"`
	Order     int     `bson:"order"`
}

func (d locationDoc) record() scene.LocationRecord {
	return scene.LocationRecord{
		ID:        idString(d.ID),
		X:         d.X,
		Z:         d.Z,
		Stock:     d.Stock,
		LocWeight: d.LocWeight,
	}
}

type depotDoc struct {
	ID       any     `bson:"_id"`
	Name     string  `bson:"name,omitempty"`
	FillRate float64 `bson:"fillRate,omitempty"`
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case int32, int64, int:
		return fmt.Sprintf("%d", id)
	case float64:
		return fmt.Sprintf("%g", id)
	default:
		return fmt.Sprint(id)
	}
}

// Layout implements provider.Provider.
func (s *Store) Layout(ctx context.Context, depot string) (provider.Layout, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return provider.Layout{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	find := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.locations.Find(ctx, bson.M{"depot": depot}, find)
	if err != nil {
		return provider.Layout{}, errors.Wrap(errors.ErrCodeFetch, err, "find locations of depot %s", depot)
	}
	var docs []locationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return provider.Layout{}, errors.Wrap(errors.ErrCodeFetch, err, "read locations of depot %s", depot)
	}

	info, err := s.depot(ctx, depot)
	if err != nil {
		return provider.Layout{}, err
	}
	if info == nil && len(docs) == 0 {
		return provider.Layout{}, errors.New(errors.ErrCodeNotFound, "depot %s not found", depot)
	}

	l := provider.Layout{
		Depot:     depot,
		Records:   make([]scene.LocationRecord, len(docs)),
		FetchedAt: time.Now(),
	}
	for i, d := range docs {
		l.Records[i] = d.record()
	}
	if info != nil {
		l.FillRate = info.FillRate
	}
	return l, nil
}

func (s *Store) depot(ctx context.Context, depot string) (*depotDoc, error) {
	var d depotDoc
	err := s.depots.FindOne(ctx, bson.M{"_id": depot}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "find depot %s", depot)
	}
	return &d, nil
}

// Stock implements provider.Provider. The total is aggregated on the
// server.
func (s *Store) Stock(ctx context.Context, depot string) (provider.StockInfo, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return provider.StockInfo{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"depot": depot}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "stock": bson.M{"$sum": "$stock"}}}},
	}
	cur, err := s.locations.Aggregate(ctx, pipeline)
	if err != nil {
		return provider.StockInfo{}, errors.Wrap(errors.ErrCodeFetch, err, "aggregate stock of depot %s", depot)
	}
	var rows []struct {
		Stock float64 `bson:"stock"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return provider.StockInfo{}, errors.Wrap(errors.ErrCodeFetch, err, "read stock of depot %s", depot)
	}

	out := provider.StockInfo{Depot: depot}
	if len(rows) > 0 {
		out.Stock = rows[0].Stock
	}
	info, err := s.depot(ctx, depot)
	if err != nil {
		return provider.StockInfo{}, err
	}
	if info != nil {
		out.FillRate = info.FillRate
	}
	return out, nil
}

// Depots implements provider.Provider.
func (s *Store) Depots(ctx context.Context) ([]provider.Depot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.depots.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "list depots")
	}
	var docs []depotDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "read depots")
	}
	out := make([]provider.Depot, len(docs))
	for i, d := range docs {
		out[i] = provider.Depot{ID: idString(d.ID), Name: d.Name}
	}
	return out, nil
}

// Import replaces the stored layout of a depot with l.
func (s *Store) Import(ctx context.Context, l provider.Layout) error {
	if err := errors.ValidateDepotID(l.Depot); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.locations.DeleteMany(ctx, bson.M{"depot": l.Depot}); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "clear depot %s", l.Depot)
	}
	if len(l.Records) > 0 {
		docs := make([]any, len(l.Records))
		for i, r := range l.Records {
			docs[i] = locationDoc{
				Depot: l.Depot, ID: r.ID, X: r.X, Z: r.Z,
				Stock: r.Stock, LocWeight: r.LocWeight, Order: i,
			}
		}
		if _, err := s.locations.InsertMany(ctx, docs); err != nil {
			return errors.Wrap(errors.ErrCodeNetwork, err, "insert locations of depot %s", l.Depot)
		}
	}
	_, err := s.depots.UpdateOne(ctx,
		bson.M{"_id": l.Depot},
		bson.M{"$set": bson.M{"fillRate": l.FillRate}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "upsert depot %s", l.Depot)
	}
	return nil
}

var _ provider.Provider = (*Store)(nil)
