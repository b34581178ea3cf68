package models

import "time"

type Author struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Comment is one node of a post's comment tree. Replies nest to any depth and
// ID is unique across the whole tree of a post.
type Comment struct {
	ID          string    `json:"comment_id"`
	PostID      string    `json:"post_id"`
	Content     string    `json:"content"`
	Author      Author    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	LikeCount   int       `json:"like_count"`
	HasLike     bool      `json:"has_like"`
	Replies     []Comment `json:"replies"`
	IsTemporary bool      `json:"is_temporary,omitempty"`
}

type LikeState struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}
