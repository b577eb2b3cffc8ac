package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/plumehq/plume/backend/internal/models"
)

// Feed sort modes
const (
	SortTrending = "trending"
)

// Feed defaults
const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10
)

// Follow boost and time decay applied in the default home-feed ranking.
const (
	followBoost  = 50
	decayPerHour = 0.5
	msPerHour    = 3600 * 1000
)

// FeedParams captures a feed query. ViewerFollowing is the authenticated
// viewer's following set (empty for anonymous viewers); Now is the request
// time used for decay, passed in so ranking is time-accurate at cache-write
// time and deterministic under test.
type FeedParams struct {
	Page            int64
	Limit           int64
	Search          string
	Author          string
	Archived        bool
	Sort            string
	ViewerFollowing []primitive.ObjectID
	Now             time.Time
}

// FeedCommentUser is the commenting user joined into an enriched comment
type FeedCommentUser struct {
	Username   string `json:"username" bson:"username"`
	ProfilePic string `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
}

// FeedComment is a comment enriched with its user's public shape
type FeedComment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Text      string             `json:"text" bson:"text"`
	User      FeedCommentUser    `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// FeedPost is a post enriched with its author and resolved comments
type FeedPost struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id"`
	Title           string               `json:"title" bson:"title"`
	Content         string               `json:"content" bson:"content"`
	Image           string               `json:"image" bson:"image"`
	Hashtags        []string             `json:"hashtags" bson:"hashtags"`
	Author          models.UserCompact   `json:"author" bson:"author"`
	Likes           []primitive.ObjectID `json:"likes" bson:"likes"`
	Comments        []FeedComment        `json:"comments" bson:"comments"`
	IsArchived      bool                 `json:"isArchived" bson:"isArchived"`
	EngagementScore float64              `json:"engagementScore,omitempty" bson:"engagementScore,omitempty"`
	AlgoScore       float64              `json:"algoScore,omitempty" bson:"algoScore,omitempty"`
	CreatedAt       time.Time            `json:"created_at" bson:"createdAt"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updatedAt"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	GetEnrichedPost(ctx context.Context, id primitive.ObjectID) (*FeedPost, error)
	GetFeed(ctx context.Context, params FeedParams) ([]FeedPost, error)
	GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]FeedPost, error)
	UpdatePost(ctx context.Context, id primitive.ObjectID, update bson.M) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	LikePost(ctx context.Context, postID, userID primitive.ObjectID) error
	UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost inserts a new post
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	if post.Image == "" {
		post.Image = models.PlaceholderImage
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	post.Likes = []primitive.ObjectID{}
	post.Comments = []primitive.ObjectID{}
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a raw post document by id
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetEnrichedPost retrieves a single post with its author and comments resolved
func (r *MongoPostRepository) GetEnrichedPost(ctx context.Context, id primitive.ObjectID) (*FeedPost, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}}}
	pipeline = append(pipeline, enrichmentStages()...)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []FeedPost
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// GetFeed runs the feed query as a single aggregation pipeline:
// filter, compute the mode's sort key, sort, paginate, then join the author
// and the resolved comments. An empty page is a valid result.
func (r *MongoPostRepository) GetFeed(ctx context.Context, params FeedParams) ([]FeedPost, error) {
	cursor, err := r.collection.Aggregate(ctx, feedPipeline(params))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []FeedPost{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPostsByAuthor lists an author's non-archived posts, newest first, enriched
func (r *MongoPostRepository) GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]FeedPost, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "author", Value: authorID},
			{Key: "isArchived", Value: false},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	pipeline = append(pipeline, enrichmentStages()...)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []FeedPost{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// feedPipeline builds the aggregation for one feed request. Modes are mutually
// exclusive: trending ranks by engagement, the default home feed ranks by the
// blended score, and explicit search/author filters fall back to a plain
// newest-first ordering with no computed key.
func feedPipeline(p FeedParams) mongo.Pipeline {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}

	match := bson.D{{Key: "isArchived", Value: p.Archived}}
	if p.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(p.Search), Options: "i"}
		match = append(match, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "content", Value: re}},
			bson.D{{Key: "hashtags", Value: re}},
		}})
	}
	authorFiltered := false
	if p.Author != "" {
		// A malformed author id drops the filter rather than failing the request.
		if oid, err := primitive.ObjectIDFromHex(p.Author); err == nil {
			match = append(match, bson.E{Key: "author", Value: oid})
			authorFiltered = true
		}
	}

	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: match}}}

	engagement := bson.D{{Key: "$add", Value: bson.A{
		bson.D{{Key: "$size", Value: "$likes"}},
		bson.D{{Key: "$multiply", Value: bson.A{2, bson.D{{Key: "$size", Value: "$comments"}}}}},
	}}}

	switch {
	case p.Sort == SortTrending:
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.D{{Key: "engagementScore", Value: engagement}}}},
			bson.D{{Key: "$sort", Value: bson.D{
				{Key: "engagementScore", Value: -1},
				{Key: "createdAt", Value: -1},
			}}},
		)
	case p.Search == "" && !authorFiltered:
		following := p.ViewerFollowing
		if following == nil {
			following = []primitive.ObjectID{}
		}
		boost := bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{"$author", following}}},
			followBoost,
			0,
		}}}
		decay := bson.D{{Key: "$multiply", Value: bson.A{
			decayPerHour,
			bson.D{{Key: "$divide", Value: bson.A{
				bson.D{{Key: "$subtract", Value: bson.A{p.Now, "$createdAt"}}},
				msPerHour,
			}}},
		}}}
		score := bson.D{{Key: "$subtract", Value: bson.A{
			bson.D{{Key: "$add", Value: bson.A{engagement, boost}}},
			decay,
		}}}
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.D{{Key: "algoScore", Value: score}}}},
			bson.D{{Key: "$sort", Value: bson.D{
				{Key: "algoScore", Value: -1},
				{Key: "createdAt", Value: -1},
			}}},
		)
	default:
		pipeline = append(pipeline,
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		)
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$skip", Value: (p.Page - 1) * p.Limit}},
		bson.D{{Key: "$limit", Value: p.Limit}},
	)
	return append(pipeline, enrichmentStages()...)
}

// enrichmentStages joins the author's public shape and the post's comments,
// each comment carrying its user's username and profile picture.
func enrichmentStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: "author", Value: bson.D{
			{Key: "_id", Value: "$author._id"},
			{Key: "username", Value: "$author.username"},
			{Key: "profilePic", Value: "$author.profilePic"},
		}}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "comments"},
			{Key: "let", Value: bson.D{{Key: "commentIds", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$comments", bson.A{}}},
			}}}},
			{Key: "pipeline", Value: mongo.Pipeline{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
					{Key: "$in", Value: bson.A{"$_id", "$$commentIds"}},
				}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: "users"},
					{Key: "localField", Value: "user"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "user"},
				}}},
				bson.D{{Key: "$unwind", Value: bson.D{
					{Key: "path", Value: "$user"},
					{Key: "preserveNullAndEmptyArrays", Value: true},
				}}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "text", Value: 1},
					{Key: "createdAt", Value: 1},
					{Key: "user", Value: bson.D{
						{Key: "username", Value: "$user.username"},
						{Key: "profilePic", Value: "$user.profilePic"},
					}},
				}}},
			}},
			{Key: "as", Value: "comments"},
		}}},
	}
}

// UpdatePost applies a $set update to a post
func (r *MongoPostRepository) UpdatePost(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["updatedAt"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post by id
func (r *MongoPostRepository) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LikePost adds the user to the post's likes set. The filter excludes posts
// the user already likes, so a repeat like matches nothing and is reported
// as ErrAlreadyLiked without touching the document.
func (r *MongoPostRepository) LikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyLiked
	}
	return nil
}

// UnlikePost removes the user from the post's likes set
func (r *MongoPostRepository) UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotLiked
	}
	return nil
}
