package store

import (
	"bitwise74/campus-finder/model"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps users and items in two MongoDB collections. Documents
// use the same string IDs as the SQL backend
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	items  *mongo.Collection
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: client,
		users:  db.Collection("users"),
		items:  db.Collection("items"),
	}
}

// EnsureIndexes creates the unique email index and the indexes used by
// item listings
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes, %w", err)
	}

	_, err = s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "category", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create item indexes, %w", err)
	}

	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}

	return err
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translateMongo(err)
	}

	return &u, nil
}

func (s *MongoStore) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

// UpdateUser only $sets and $unsets the fields named by p
func (s *MongoStore) UpdateUser(ctx context.Context, id string, p UserPatch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	for col, v := range p.changes() {
		if v == nil {
			unset[col.bson] = ""
			continue
		}
		set[col.bson] = v
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) ClearExpiredResets(ctx context.Context, t time.Time) (int64, error) {
	codes, err := s.users.UpdateMany(ctx,
		bson.M{"reset_code_expires_at": bson.M{"$lt": t}},
		bson.M{"$unset": bson.M{"reset_code": "", "reset_code_expires_at": ""}},
	)
	if err != nil {
		return 0, err
	}

	tokens, err := s.users.UpdateMany(ctx,
		bson.M{"reset_token_expires_at": bson.M{"$lt": t}},
		bson.M{"$unset": bson.M{"reset_token": "", "reset_token_expires_at": ""}},
	)
	if err != nil {
		return codes.ModifiedCount, err
	}

	return codes.ModifiedCount + tokens.ModifiedCount, nil
}

func (s *MongoStore) CreateItem(ctx context.Context, i *model.Item) error {
	now := time.Now().UTC()
	i.CreatedAt, i.UpdatedAt = now, now

	_, err := s.items.InsertOne(ctx, i)
	return err
}

func (s *MongoStore) ItemByID(ctx context.Context, id string) (*model.Item, error) {
	var i model.Item
	if err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&i); err != nil {
		return nil, translateMongo(err)
	}

	return &i, nil
}

func (s *MongoStore) ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	filter := bson.M{}

	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ReportedBy != "" {
		filter["user_id"] = f.ReportedBy
	}

	if f.Query != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"category": re},
			bson.M{"location": re},
		}
	}

	dir := -1
	if f.Oldest {
		dir = 1
	}

	offset, limit := pageBounds(f)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: dir}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := s.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []model.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *MongoStore) SaveItem(ctx context.Context, i *model.Item) error {
	i.UpdatedAt = time.Now().UTC()

	res, err := s.items.ReplaceOne(ctx, bson.M{"_id": i.ID}, i)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translateMongo(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	return err
}
