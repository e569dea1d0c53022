package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AlibekovAA/margarine/internal/account/domain"
	"github.com/AlibekovAA/margarine/internal/common/db"
)

const mongoStoreName = "mongodb"

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the unique username index that insert-or-fail relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	return err
}

func (r *MongoRepository) Insert(ctx context.Context, account domain.Account) error {
	start := time.Now()
	_, err := r.coll.InsertOne(ctx, account)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		err = ErrAccountAlreadyExists
	}
	return db.ObserveOperation(mongoStoreName, "insert account", start, err, ErrAccountAlreadyExists)
}

func (r *MongoRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	start := time.Now()
	var account domain.Account
	err := r.coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = ErrAccountNotFound
	}
	if err = db.ObserveOperation(mongoStoreName, "find account", start, err, ErrAccountNotFound); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *MongoRepository) UpsertPasswordHash(ctx context.Context, username, hash string, at time.Time) error {
	start := time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.D{{Key: "username", Value: username}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "password_hash", Value: hash},
				{Key: "updated_at", Value: at},
			}},
			{Key: "$setOnInsert", Value: bson.D{
				{Key: "created_at", Value: at},
			}},
		},
		options.Update().SetUpsert(true),
	)
	return db.ObserveOperation(mongoStoreName, "upsert account password", start, err)
}

func (r *MongoRepository) DeleteByUsername(ctx context.Context, username string) error {
	start := time.Now()
	_, err := r.coll.DeleteOne(ctx, bson.D{{Key: "username", Value: username}})
	return db.ObserveOperation(mongoStoreName, "delete account", start, err)
}

func (r *MongoRepository) DeleteByCreation(ctx context.Context, username, creationID string) (bool, error) {
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.D{
		{Key: "username", Value: username},
		{Key: "creation_id", Value: creationID},
	})
	if err = db.ObserveOperation(mongoStoreName, "delete created account", start, err); err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
