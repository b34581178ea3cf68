package cache

import (
	"strconv"
	"strings"
)

// Key prefixes. Loader fetchers are registered per prefix.
const (
	PrefixPosts    = "posts"
	PrefixPost     = "post"
	PrefixComments = "comments"
)

// QueryKey identifies one cacheable server resource as an ordered tuple of segments.
type QueryKey []string

// Key builds a QueryKey that does not share storage with segments.
func Key(segments ...string) QueryKey {
	return append(QueryKey(nil), segments...)
}

// PostsKey addresses the feed list of posts.
func PostsKey() QueryKey {
	return Key(PrefixPosts)
}

// PostKey addresses a single post.
func PostKey(postID string) QueryKey {
	return Key(PrefixPost, postID)
}

// CommentsKey addresses the comment tree of one post.
func CommentsKey(postID string) QueryKey {
	return Key(PrefixComments, postID)
}

// Equal reports whether both keys hold the same segments in the same order.
func (k QueryKey) Equal(other QueryKey) bool {
	if len(k) != len(other) {
		return false
	}
	for idx := range k {
		if k[idx] != other[idx] {
			return false
		}
	}

	return true
}

// Prefix returns the first segment, which selects the fetcher for the key.
func (k QueryKey) Prefix() string {
	if len(k) == 0 {
		return ""
	}

	return k[0]
}

// String returns a canonical encoding; distinct keys never encode the same.
func (k QueryKey) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for idx, segment := range k {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(segment))
	}
	b.WriteByte(']')

	return b.String()
}
