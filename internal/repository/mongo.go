package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lgulliver/blogshelf/pkg/types"
)

// Collection names
const (
	BlogCollection  = "blogs"
	EmailCollection = "emails"
)

type blogDocument struct {
	ID               primitive.ObjectID `bson:"_id"`
	Title            string             `bson:"title"`
	Description      string             `bson:"description"`
	Category         string             `bson:"category"`
	Author           string             `bson:"author"`
	AuthorImg        string             `bson:"author_img"`
	Image            string             `bson:"image"`
	ImageAssetID     string             `bson:"image_asset_id,omitempty"`
	ImageContentType string             `bson:"image_content_type,omitempty"`
	ImageSize        int64              `bson:"image_size,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func (d *blogDocument) toPost() *types.BlogPost {
	return &types.BlogPost{
		ID:               d.ID.Hex(),
		Title:            d.Title,
		Description:      d.Description,
		Category:         d.Category,
		Author:           d.Author,
		AuthorImg:        d.AuthorImg,
		Image:            d.Image,
		ImageAssetID:     d.ImageAssetID,
		ImageContentType: d.ImageContentType,
		ImageSize:        d.ImageSize,
		CreatedAt:        d.CreatedAt,
	}
}

type emailDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *emailDocument) toSubscription() *types.EmailSubscription {
	return &types.EmailSubscription{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
	}
}

// insertion order; ObjectIDs break ties between equal timestamps
var insertionOrder = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

// MongoBlogRepository stores blog posts in a MongoDB collection
type MongoBlogRepository struct {
	collection *mongo.Collection
}

// NewMongoBlogRepository creates a new document blog repository
func NewMongoBlogRepository(db *mongo.Database) *MongoBlogRepository {
	return &MongoBlogRepository{collection: db.Collection(BlogCollection)}
}

// EnsureIndexes creates the category and creation time indexes
func (r *MongoBlogRepository) EnsureIndexes(ctx context.Context) error {
	names, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create blog indexes: %v", types.ErrRepository, err)
	}
	log.Debug().Strs("indexes", names).Str("collection", BlogCollection).Msg("indexes ensured")
	return nil
}

// Create inserts a post and assigns its ObjectID
func (r *MongoBlogRepository) Create(ctx context.Context, post *types.BlogPost) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	doc := blogDocument{
		ID:               primitive.NewObjectID(),
		Title:            post.Title,
		Description:      post.Description,
		Category:         post.Category,
		Author:           post.Author,
		AuthorImg:        post.AuthorImg,
		Image:            post.Image,
		ImageAssetID:     post.ImageAssetID,
		ImageContentType: post.ImageContentType,
		ImageSize:        post.ImageSize,
		CreatedAt:        post.CreatedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: failed to insert blog: %v", types.ErrRepository, err)
	}

	post.ID = doc.ID.Hex()
	return nil
}

// Get retrieves a post by its hex ObjectID
func (r *MongoBlogRepository) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, types.ErrNotFound
	}

	var doc blogDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get blog: %v", types.ErrRepository, err)
	}
	return doc.toPost(), nil
}

// List returns posts in insertion order, optionally filtered by category
func (r *MongoBlogRepository) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	cursor, err := r.collection.Find(ctx, query, insertionOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list blogs: %v", types.ErrRepository, err)
	}
	defer cursor.Close(ctx)

	posts := make([]*types.BlogPost, 0)
	for cursor.Next(ctx) {
		var doc blogDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode blog: %v", types.ErrRepository, err)
		}
		posts = append(posts, doc.toPost())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", types.ErrRepository, err)
	}
	return posts, nil
}

// Delete removes a post, returning ErrNotFound when nothing matched
func (r *MongoBlogRepository) Delete(ctx context.Context, id string) error {
	return deleteByHex(ctx, r.collection, id)
}

// MongoEmailRepository stores subscriptions in a MongoDB collection
type MongoEmailRepository struct {
	collection *mongo.Collection
}

// NewMongoEmailRepository creates a new document subscription repository
func NewMongoEmailRepository(db *mongo.Database) *MongoEmailRepository {
	return &MongoEmailRepository{collection: db.Collection(EmailCollection)}
}

// Create inserts a subscription and assigns its ObjectID
func (r *MongoEmailRepository) Create(ctx context.Context, sub *types.EmailSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	doc := emailDocument{
		ID:        primitive.NewObjectID(),
		Email:     sub.Email,
		CreatedAt: sub.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: failed to insert subscription: %v", types.ErrRepository, err)
	}

	sub.ID = doc.ID.Hex()
	return nil
}

// List returns subscriptions in insertion order
func (r *MongoEmailRepository) List(ctx context.Context) ([]*types.EmailSubscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, insertionOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list subscriptions: %v", types.ErrRepository, err)
	}
	defer cursor.Close(ctx)

	subs := make([]*types.EmailSubscription, 0)
	for cursor.Next(ctx) {
		var doc emailDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode subscription: %v", types.ErrRepository, err)
		}
		subs = append(subs, doc.toSubscription())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", types.ErrRepository, err)
	}
	return subs, nil
}

// Delete removes a subscription, returning ErrNotFound when nothing matched
func (r *MongoEmailRepository) Delete(ctx context.Context, id string) error {
	return deleteByHex(ctx, r.collection, id)
}

func deleteByHex(ctx context.Context, collection *mongo.Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.ErrNotFound
	}

	result, err := collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: failed to delete from %s: %v", types.ErrRepository, collection.Name(), err)
	}
	if result.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}
