package visitor

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mx-space/footprint/internal/models"
)

// CollectionName is the document collection visits are written to.
const CollectionName = "visitors"

// MongoStore persists visits as documents.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = CollectionName
	}
	return &MongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the lookup indexes used by ingestion, aggregation and retention.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	byRecency := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}, {Key: "createdAt", Value: -1}}}
	}
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "page", Value: 1}, {Key: "createdAt", Value: -1}}},
		byRecency("ip"),
		byRecency("userId"),
		byRecency("guestId"),
		byRecency("sessionId"),
		byRecency("page"),
		byRecency("country"),
		byRecency("device"),
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "lastVisit", Value: -1}}},
	})
	if err != nil {
		return storeErr("ensure indexes", err)
	}
	return nil
}

func (s *MongoStore) LatestBySessionPage(ctx context.Context, sessionID, page string) (*models.VisitModel, error) {
	var v models.VisitModel
	err := s.coll.FindOne(ctx,
		bson.M{"sessionId": sessionID, "page": page},
		mongoopts.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("latest visit", err)
	}
	return &v, nil
}

func (s *MongoStore) Create(ctx context.Context, v *models.VisitModel) error {
	v.EnsureID()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	if _, err := s.coll.InsertOne(ctx, v); err != nil {
		return storeErr("create visit", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.VisitModel, error) {
	var v models.VisitModel
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get visit", err)
	}
	return &v, nil
}

func (s *MongoStore) Merge(ctx context.Context, id string, addSeconds int64, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"timeOnPage": addSeconds},
		"$set": bson.M{"isBounce": false, "lastVisit": at, "updatedAt": at},
	})
	if err != nil {
		return storeErr("merge visit", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Patch(ctx context.Context, id string, patch VisitPatch, at time.Time) error {
	set := bson.M{"lastVisit": at, "updatedAt": at}
	if patch.TimeOnPage != nil {
		set["timeOnPage"] = *patch.TimeOnPage
	}
	if patch.SessionTime != nil {
		set["sessionTime"] = *patch.SessionTime
	}
	if patch.IsBounce != nil {
		set["isBounce"] = *patch.IsBounce
	}
	if patch.Converted != nil {
		set["converted"] = *patch.Converted
	}
	if patch.ConversionType != nil {
		set["conversionType"] = *patch.ConversionType
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return storeErr("patch visit", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateSessionTime(ctx context.Context, sessionID string, sessionTime int64, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, bson.M{"sessionId": sessionID}, bson.M{
		"$set": bson.M{"sessionTime": sessionTime, "lastVisit": at, "updatedAt": at},
	})
	if err != nil {
		return 0, storeErr("update session time", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, bson.M{"createdAt": bson.M{"$gte": start, "$lte": end}})
}

func (s *MongoStore) CreatedSince(ctx context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
}

func (s *MongoStore) ActiveSince(ctx context.Context, since time.Time) ([]models.VisitModel, error) {
	return s.find(ctx, bson.M{"lastVisit": bson.M{"$gte": since}})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.VisitModel, error) {
	cur, err := s.coll.Find(ctx, filter, mongoopts.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, storeErr("query visits", err)
	}
	var rows []models.VisitModel
	if err := cur.All(ctx, &rows); err != nil {
		return nil, storeErr("decode visits", err)
	}
	return rows, nil
}

func (s *MongoStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.delete(ctx, "delete stale visits", bson.M{"createdAt": bson.M{"$lt": cutoff}})
}

func (s *MongoStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.delete(ctx, "delete visits", bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) DeleteAll(ctx context.Context) (int64, error) {
	return s.delete(ctx, "purge visits", bson.M{})
}

func (s *MongoStore) delete(ctx context.Context, op string, filter bson.M) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, storeErr(op, err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storeErr("count visits", err)
	}
	return n, nil
}

func (s *MongoStore) List(ctx context.Context, q ListQuery) ([]models.VisitModel, int64, error) {
	filter := bson.M{}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := containsPattern(search)
		filter["$or"] = bson.A{
			bson.M{"ip": pattern},
			bson.M{"page": pattern},
			bson.M{"country": pattern},
			bson.M{"city": pattern},
		}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeErr("count visitors", err)
	}

	opts := mongoopts.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeErr("list visitors", err)
	}
	var rows []models.VisitModel
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, storeErr("decode visitors", err)
	}
	return rows, total, nil
}

func containsPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}
