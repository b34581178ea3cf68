package main

import (
	"context"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/models"
)

func newCommentsCmd() *cobra.Command {
	comments := &cobra.Command{
		Use:   "comments",
		Short: "Read and write the comment thread of a post",
	}

	comments.AddCommand(
		newCommentsListCmd(),
		commentCmd("create <post-id> <content>", "Comment on a post", 2, func(ctx context.Context, a *app, args []string) error {
			_, err := a.feed.CreateComment(ctx, models.CreateComment{PostID: args[0], Content: args[1]})
			return err
		}),
		commentCmd("reply <post-id> <parent-id> <content>", "Reply to a comment", 3, func(ctx context.Context, a *app, args []string) error {
			_, err := a.feed.ReplyComment(ctx, models.ReplyComment{PostID: args[0], ParentID: args[1], Content: args[2]})
			return err
		}),
		commentCmd("edit <post-id> <comment-id> <content>", "Change the text of your comment", 3, func(ctx context.Context, a *app, args []string) error {
			_, err := a.feed.EditComment(ctx, models.EditComment{PostID: args[0], CommentID: args[1], Content: args[2]})
			return err
		}),
		commentCmd("delete <post-id> <comment-id>", "Delete your comment and its replies", 2, func(ctx context.Context, a *app, args []string) error {
			return a.feed.DeleteComment(ctx, models.CommentRef{PostID: args[0], CommentID: args[1]})
		}),
		commentCmd("like <post-id> <comment-id>", "Like a comment", 2, func(ctx context.Context, a *app, args []string) error {
			_, err := a.feed.LikeComment(ctx, models.CommentRef{PostID: args[0], CommentID: args[1]})
			return err
		}),
		commentCmd("unlike <post-id> <comment-id>", "Take back a like", 2, func(ctx context.Context, a *app, args []string) error {
			_, err := a.feed.UnlikeComment(ctx, models.CommentRef{PostID: args[0], CommentID: args[1]})
			return err
		}),
	)

	return comments
}

// commentCmd loads the post's thread, runs action and prints the resulting
// tree. args[0] is always the post id.
func commentCmd(use string, short string, nargs int, action func(ctx context.Context, a *app, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(func(ctx context.Context, a *app, out io.Writer) error {
				if _, err := a.feed.Comments(ctx, args[0]); err != nil {
					return err
				}
				if err := action(ctx, a, args); err != nil {
					return err
				}
				return printJSON(out, a.cache.Get(cache.CommentsKey(args[0])))
			})(cmd, args)
		},
	}
}

func newCommentsListCmd() *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "list <post-id>",
		Short: "Print the comment tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(func(ctx context.Context, a *app, out io.Writer) error {
				if _, err := a.feed.Comments(ctx, args[0]); err != nil {
					return err
				}
				key := cache.CommentsKey(args[0])
				if !watch {
					return printJSON(out, a.cache.Get(key))
				}
				return followKey(ctx, a.cache, key, interval, out)
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing the tree whenever it changes")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "how often --watch refetches the tree, 0 to never")

	return cmd
}

// followKey prints the value under key and then every distinct value it takes
// until ctx ends. A positive interval invalidates the key on each tick so the
// loader fetches it again. Removals are not printed.
func followKey(ctx context.Context, c *cache.Cache, key cache.QueryKey, interval time.Duration, out io.Writer) error {
	var (
		mu     sync.Mutex
		latest any
	)
	changed := make(chan struct{}, 1)
	unwatch := c.Watch(key, func(value any) {
		mu.Lock()
		latest = value
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unwatch()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	last := c.Get(key)
	if err := printJSON(out, last); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			c.Invalidate(key)
		case <-changed:
			mu.Lock()
			value := latest
			mu.Unlock()
			if value == nil || reflect.DeepEqual(value, last) {
				continue
			}
			last = value
			if err := printJSON(out, value); err != nil {
				return err
			}
		}
	}
}
