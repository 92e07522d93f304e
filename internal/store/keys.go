package store

import "strconv"

// Key scheme. Usernames are unique, so they double as primary keys; posts are
// keyed by their assigned ID; follower/post/feed collections are sorted sets.
func userKey(username string) string      { return "user:" + username }
func followersKey(username string) string { return "user_followers:" + username }
func userPostsKey(username string) string { return "user_posts:" + username }
func feedKey(username string) string      { return "user_feed:" + username }
func postKey(id int64) string             { return "post:" + strconv.FormatInt(id, 10) }

// nextPostIDKey is the shared counter incremented to assign post IDs.
const nextPostIDKey = "next_post_id"
