package models

import "time"

type Post struct {
	ID            string     `json:"post_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	MediaURLs     []string   `json:"media_urls"`
	PostType      string     `json:"post_type"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	LikesCount    int        `json:"likes_count"`
	HasLiked      bool       `json:"has_liked"`
	CommentsCount int        `json:"comments_count"`
	AuthorUserID  string     `json:"author_user_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PostPatch carries the editable fields of a post. Nil fields are left untouched.
type PostPatch struct {
	Title     *string    `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Content   *string    `json:"content,omitempty" validate:"omitnil,max=5000"`
	MediaURLs []string   `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
	PostType  *string    `json:"post_type,omitempty" validate:"omitnil,min=1"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Clone returns a copy of p that shares no slices or pointers with it.
func (p Post) Clone() Post {
	cloned := p
	if p.MediaURLs != nil {
		cloned.MediaURLs = append([]string(nil), p.MediaURLs...)
	}
	if p.StartDate != nil {
		start := *p.StartDate
		cloned.StartDate = &start
	}
	if p.EndDate != nil {
		end := *p.EndDate
		cloned.EndDate = &end
	}

	return cloned
}

// Apply returns a copy of p with the patch fields written over it.
func (patch PostPatch) Apply(p Post) Post {
	updated := p.Clone()
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Content != nil {
		updated.Content = *patch.Content
	}
	if patch.MediaURLs != nil {
		updated.MediaURLs = append([]string(nil), patch.MediaURLs...)
	}
	if patch.PostType != nil {
		updated.PostType = *patch.PostType
	}
	if patch.StartDate != nil {
		start := *patch.StartDate
		updated.StartDate = &start
	}
	if patch.EndDate != nil {
		end := *patch.EndDate
		updated.EndDate = &end
	}

	return updated
}

// WithLike flips the viewer's like state and moves the counter by delta,
// never letting it drop below zero.
func (p Post) WithLike(delta int, hasLiked bool) Post {
	updated := p.Clone()
	updated.HasLiked = hasLiked
	updated.LikesCount = max(0, p.LikesCount+delta)

	return updated
}
