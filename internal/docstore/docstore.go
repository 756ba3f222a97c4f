// Package docstore keeps viewings, targets and raters in MongoDB for
// deployments shared between several machines.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

const DefaultDatabase = "watchlog"

type Store struct {
	client   *mongo.Client
	viewings *mongo.Collection
	targets  *mongo.Collection
	raters   *mongo.Collection
}

var _ store.Backend = (*Store)(nil)

// New connects to uri and pings the server before returning.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		viewings: db.Collection("viewings"),
		targets:  db.Collection("targets"),
		raters:   db.Collection("raters"),
	}

	_, err = s.viewings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "targetId", Value: 1}}},
		{Keys: bson.D{{Key: "raterId", Value: 1}}},
		{Keys: bson.D{{Key: "watchedOn", Value: -1}, {Key: "insertedAt", Value: -1}}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateRater(ctx context.Context, rater store.Rater) error {
	if rater.ID == "" {
		return fmt.Errorf("creating rater: empty id")
	}
	set := bson.M{}
	if rater.Name != "" {
		set["name"] = rater.Name
	}
	if rater.Email != "" {
		set["email"] = rater.Email
	}
	if rater.ColorKey != "" {
		set["colorKey"] = rater.ColorKey
	}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": time.Now()}}
	if len(set) > 0 {
		update["$set"] = set
	}

	_, err := s.raters.UpdateOne(ctx, bson.M{"_id": rater.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting rater %q: %w", rater.ID, err)
	}
	return nil
}

func (s *Store) AddViewing(ctx context.Context, v *ratings.Viewing) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.InsertedAt.IsZero() {
		v.InsertedAt = time.Now()
	}

	if _, err := s.viewings.InsertOne(ctx, toViewingDoc(*v)); err != nil {
		return fmt.Errorf("inserting viewing for %q: %w", v.TargetID, err)
	}
	return s.RefreshAverage(ctx, v.TargetID)
}

// RefreshAverage recomputes the cached overall average of one target.
func (s *Store) RefreshAverage(ctx context.Context, targetID string) error {
	viewings, err := s.ListByTarget(ctx, targetID)
	if err != nil {
		return err
	}

	update := bson.M{"$unset": bson.M{"overallAverage": ""}}
	if b, _, ok := ratings.Summarize(targetID, viewings, nil); ok {
		update = bson.M{"$set": bson.M{"overallAverage": b.Average(ratings.Overall)}}
	}
	if _, err := s.targets.UpdateOne(ctx, bson.M{"_id": targetID}, update); err != nil {
		return fmt.Errorf("updating average for %q: %w", targetID, err)
	}
	return nil
}

func (s *Store) ListViewings(ctx context.Context, limit int) ([]ratings.Viewing, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "watchedOn", Value: -1}, {Key: "insertedAt", Value: -1}}).
		SetLimit(int64(limit))
	return s.findViewings(ctx, bson.M{}, opts)
}

func (s *Store) ListByTarget(ctx context.Context, targetID string) ([]ratings.Viewing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "watchedOn", Value: -1}, {Key: "insertedAt", Value: -1}})
	return s.findViewings(ctx, bson.M{"targetId": targetID}, opts)
}

func (s *Store) ListByRater(ctx context.Context, raterID string) ([]ratings.Viewing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "watchedOn", Value: -1}, {Key: "insertedAt", Value: -1}})
	return s.findViewings(ctx, bson.M{"raterId": raterID}, opts)
}

func (s *Store) findViewings(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]ratings.Viewing, error) {
	cursor, err := s.viewings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying viewings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []viewingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding viewings: %w", err)
	}

	viewings := make([]ratings.Viewing, 0, len(docs))
	for _, d := range docs {
		viewings = append(viewings, d.viewing())
	}
	return viewings, nil
}

// UpsertTarget replaces catalog metadata, keeping the creator and cached
// average of an existing document.
func (s *Store) UpsertTarget(ctx context.Context, t store.Target) error {
	if t.MetadataUpdated.IsZero() {
		t.MetadataUpdated = time.Now()
	}
	update := bson.M{
		"$set": bson.M{
			"kind":            string(t.Kind),
			"tmdbId":          t.TMDBID,
			"title":           t.Title,
			"year":            t.Year,
			"posterPath":      t.PosterPath,
			"overview":        t.Overview,
			"metadataUpdated": t.MetadataUpdated,
		},
		"$setOnInsert": bson.M{
			"createdBy": t.CreatedBy,
			"createdAt": time.Now(),
		},
	}
	_, err := s.targets.UpdateOne(ctx, bson.M{"_id": t.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting target %q: %w", t.ID, err)
	}
	return s.RefreshAverage(ctx, t.ID)
}

func (s *Store) GetTarget(ctx context.Context, id string) (store.Target, bool, error) {
	var doc targetDoc
	err := s.targets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Target{}, false, nil
	}
	if err != nil {
		return store.Target{}, false, fmt.Errorf("querying target %q: %w", id, err)
	}
	return doc.target(), true, nil
}

func (s *Store) findTargets(ctx context.Context, filter bson.M) ([]store.Target, error) {
	cursor, err := s.targets.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying targets: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []targetDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding targets: %w", err)
	}
	targets := make([]store.Target, 0, len(docs))
	for _, d := range docs {
		targets = append(targets, d.target())
	}
	return targets, nil
}

func (s *Store) Catalog(ctx context.Context) (ratings.MapCatalog, error) {
	targets, err := s.findTargets(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	catalog := make(ratings.MapCatalog, len(targets))
	for _, t := range targets {
		catalog[t.ID] = t.Metadata()
	}
	return catalog, nil
}

func (s *Store) TargetsNeedingMetadata(ctx context.Context, interval time.Duration) ([]store.Target, error) {
	threshold := time.Now().Add(-interval)
	stale, err := s.findTargets(ctx, bson.M{"$or": bson.A{
		bson.M{"metadataUpdated": bson.M{"$exists": false}},
		bson.M{"metadataUpdated": bson.M{"$lt": threshold}},
		bson.M{"title": ""},
	}})
	if err != nil {
		return nil, err
	}

	viewed, err := s.viewedTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(viewed) == 0 {
		return stale, nil
	}
	ids := make([]string, len(viewed))
	for i, v := range viewed {
		ids[i] = v.ID
	}
	known, err := s.targets.Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("listing known targets: %w", err)
	}

	return append(stale, missingTargets(viewed, known)...), nil
}

// viewedTarget is one distinct target id of the viewings collection with the
// kind its viewings were logged under.
type viewedTarget struct {
	ID   string `bson:"_id"`
	Kind string `bson:"kind"`
}

func (s *Store) viewedTargets(ctx context.Context) ([]viewedTarget, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$targetId"},
			{Key: "kind", Value: bson.D{{Key: "$max", Value: "$kind"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.viewings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("listing viewed targets: %w", err)
	}
	defer cursor.Close(ctx)

	var viewed []viewedTarget
	if err := cursor.All(ctx, &viewed); err != nil {
		return nil, fmt.Errorf("decoding viewed targets: %w", err)
	}
	return viewed, nil
}

// missingTargets returns bare targets for every viewed id absent from known.
// The logged kind wins over the id prefix; episodes resolve to their show.
func missingTargets(viewed []viewedTarget, known []interface{}) []store.Target {
	have := make(map[string]bool, len(known))
	for _, raw := range known {
		if id, ok := raw.(string); ok {
			have[id] = true
		}
	}

	var out []store.Target
	for _, v := range viewed {
		if have[v.ID] {
			continue
		}
		have[v.ID] = true
		kind, tmdbID := store.SplitTargetID(v.ID)
		if k := ratings.Kind(v.Kind); k != ratings.KindUnknown {
			kind = k
		}
		if kind == ratings.KindEpisode {
			kind = ratings.KindShow
		}
		out = append(out, store.Target{ID: v.ID, Kind: kind, TMDBID: tmdbID})
	}
	return out
}
