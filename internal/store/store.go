package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedwall/backend/internal/db"
	"github.com/feedwall/backend/internal/models"
)

// PageSize is the fixed page size shared by follower, post and feed listings.
const PageSize = 5

// Store provides Redis-backed persistence for users, posts, follower sets and
// per-user feeds. All transport failures surface as ErrUnavailable; other
// Redis errors propagate untranslated.
type Store struct {
	client *redis.Client
}

// New constructs a Store on top of the provided Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// SetUser mirrors an identity-provider account into the store.
func (s *Store) SetUser(ctx context.Context, userID string, user models.User) error {
	err := s.client.HSet(ctx, userKey(user.Username), map[string]any{
		"user_id":    userID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}).Err()
	return s.wrap("set user", err)
}

// GetUser returns the stored user or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, username string) (models.UserWithID, error) {
	data, err := s.client.HGetAll(ctx, userKey(username)).Result()
	if err != nil {
		return models.UserWithID{}, s.wrap("get user", err)
	}
	if len(data) == 0 {
		return models.UserWithID{}, ErrNotFound
	}
	return models.UserWithID{
		User: models.User{
			Username:  data["username"],
			FirstName: data["first_name"],
			LastName:  data["last_name"],
		},
		UserID: data["user_id"],
	}, nil
}

// AddFollower records follower in username's follower set. Adding an existing
// follower is a no-op.
func (s *Store) AddFollower(ctx context.Context, username, follower string) error {
	// Score 0 for every member keeps the set ordered lexicographically, which
	// is what pagination ranks over.
	err := s.client.ZAdd(ctx, followersKey(username), redis.Z{Score: 0, Member: follower}).Err()
	return s.wrap("add follower", err)
}

// RemoveFollower drops follower from username's follower set.
func (s *Store) RemoveFollower(ctx context.Context, username, follower string) error {
	err := s.client.ZRem(ctx, followersKey(username), follower).Err()
	return s.wrap("remove follower", err)
}

// GetFollowers returns one page of username's followers in lexicographic order.
func (s *Store) GetFollowers(ctx context.Context, username string, lastViewed *int64) ([]string, error) {
	start, stop := pageBounds(lastViewed)
	followers, err := s.client.ZRange(ctx, followersKey(username), start, stop).Result()
	if err != nil {
		return nil, s.wrap("get followers", err)
	}
	return followers, nil
}

// getAllFollowers returns the complete follower set for fan-out.
func (s *Store) getAllFollowers(ctx context.Context, username string) ([]string, error) {
	followers, err := s.client.ZRange(ctx, followersKey(username), 0, -1).Result()
	if err != nil {
		return nil, s.wrap("get all followers", err)
	}
	return followers, nil
}

// AddPost assigns the next post ID, persists the post body and indexes it
// under the author's post set. IDs are strictly increasing and never reused.
func (s *Store) AddPost(ctx context.Context, post models.Post) (models.PostWithID, error) {
	id, err := s.client.Incr(ctx, nextPostIDKey).Result()
	if err != nil {
		return models.PostWithID{}, s.wrap("assign post id", err)
	}

	stored := models.PostWithID{Post: post, ID: id}
	err = s.client.HSet(ctx, postKey(id), map[string]any{
		"post_id":    id,
		"author":     post.Author,
		"content":    post.Content,
		"created_at": post.CreatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return models.PostWithID{}, s.wrap("store post", err)
	}

	// Negated score so ascending rank order reads newest first.
	err = s.client.ZAdd(ctx, userPostsKey(post.Author), redis.Z{
		Score:  float64(-id),
		Member: strconv.FormatInt(id, 10),
	}).Err()
	if err != nil {
		return models.PostWithID{}, s.wrap("index post", err)
	}

	return stored, nil
}

// GetPost returns the post with the given ID or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (models.PostWithID, error) {
	data, err := s.client.HGetAll(ctx, postKey(id)).Result()
	if err != nil {
		return models.PostWithID{}, s.wrap("get post", err)
	}
	if len(data) == 0 {
		return models.PostWithID{}, ErrNotFound
	}
	return parsePost(data)
}

// GetUserPosts returns one page of username's posts, most recent first.
func (s *Store) GetUserPosts(ctx context.Context, username string, lastViewed *int64) ([]models.PostWithID, error) {
	return s.postsPage(ctx, userPostsKey(username), lastViewed)
}

// GetUserPostIDs returns every post ID authored by username, most recent
// first. Used to backfill or purge a follower's feed when an edge changes.
func (s *Store) GetUserPostIDs(ctx context.Context, username string) ([]int64, error) {
	members, err := s.client.ZRange(ctx, userPostsKey(username), 0, -1).Result()
	if err != nil {
		return nil, s.wrap("get user post ids", err)
	}
	return parseIDs(members)
}

// GetFeed returns one page of username's feed, most recent first.
func (s *Store) GetFeed(ctx context.Context, username string, lastViewed *int64) ([]models.PostWithID, error) {
	return s.postsPage(ctx, feedKey(username), lastViewed)
}

// FanOutToFollowers pushes the post's ID into the feed of every current
// follower of its author. Not transactional: a failure partway through leaves
// earlier followers with the post and later ones without it, and no
// compensation is attempted.
func (s *Store) FanOutToFollowers(ctx context.Context, post models.PostWithID) error {
	followers, err := s.getAllFollowers(ctx, post.Author)
	if err != nil {
		return err
	}
	member := redis.Z{Score: float64(-post.ID), Member: strconv.FormatInt(post.ID, 10)}
	for _, follower := range followers {
		if err := s.client.ZAdd(ctx, feedKey(follower), member).Err(); err != nil {
			return s.wrap("fan out post", err)
		}
	}
	return nil
}

// AddPostIDsToFeed backfills username's feed with the given post IDs in one
// batch.
func (s *Store) AddPostIDsToFeed(ctx context.Context, username string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]redis.Z, len(ids))
	for i, id := range ids {
		members[i] = redis.Z{Score: float64(-id), Member: strconv.FormatInt(id, 10)}
	}
	return s.wrap("backfill feed", s.client.ZAdd(ctx, feedKey(username), members...).Err())
}

// RemovePostIDsFromFeed purges the given post IDs from username's feed.
func (s *Store) RemovePostIDsFromFeed(ctx context.Context, username string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatInt(id, 10)
	}
	return s.wrap("purge feed", s.client.ZRem(ctx, feedKey(username), members...).Err())
}

// postsPage resolves one page of post IDs from a sorted set and loads the post
// bodies. IDs whose post hash has disappeared are skipped.
func (s *Store) postsPage(ctx context.Context, key string, lastViewed *int64) ([]models.PostWithID, error) {
	start, stop := pageBounds(lastViewed)
	members, err := s.client.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, s.wrap("page posts", err)
	}

	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}

	posts := make([]models.PostWithID, 0, len(ids))
	for _, id := range ids {
		post, err := s.GetPost(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// pageBounds converts a cursor (the zero-based rank last seen, nil for the
// first page) into inclusive ZRANGE bounds.
func pageBounds(lastViewed *int64) (int64, int64) {
	start := int64(0)
	if lastViewed != nil {
		start = *lastViewed + 1
	}
	return start, start + PageSize - 1
}

func parsePost(data map[string]string) (models.PostWithID, error) {
	id, err := strconv.ParseInt(data["post_id"], 10, 64)
	if err != nil {
		return models.PostWithID{}, fmt.Errorf("parse post id %q: %w", data["post_id"], err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return models.PostWithID{}, fmt.Errorf("parse post %d created_at: %w", id, err)
	}
	return models.PostWithID{
		Post: models.Post{
			Author:    data["author"],
			Content:   data["content"],
			CreatedAt: createdAt,
		},
		ID: id,
	}, nil
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, len(members))
	for i, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse post id %q: %w", member, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// wrap translates transport failures into ErrUnavailable and annotates the
// rest with the failing operation.
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if db.IsConnError(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
