package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/models"
)

func newPostsCmd() *cobra.Command {
	posts := &cobra.Command{
		Use:   "posts",
		Short: "List and change posts",
	}

	posts.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the feed",
			Args:  cobra.NoArgs,
			RunE: runFeed(func(ctx context.Context, a *app, out io.Writer) error {
				list, err := a.feed.Posts(ctx)
				if err != nil {
					return err
				}
				return printJSON(out, list)
			}),
		},
		postLikeCmd("like", true),
		postLikeCmd("unlike", false),
		newPostUpdateCmd(),
		&cobra.Command{
			Use:   "delete <post-id>",
			Short: "Delete a post you own",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFeed(func(ctx context.Context, a *app, out io.Writer) error {
					if _, err := a.feed.Posts(ctx); err != nil {
						return err
					}
					if err := a.feed.DeletePost(ctx, models.PostRef{PostID: args[0]}); err != nil {
						return err
					}
					return printJSON(out, a.cache.Get(cache.PostsKey()))
				})(cmd, args)
			},
		},
	)

	return posts
}

func postLikeCmd(use string, liked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <post-id>",
		Short: use + " a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(func(ctx context.Context, a *app, out io.Writer) error {
				ref := models.PostRef{PostID: args[0]}
				if _, err := a.feed.Post(ctx, ref.PostID); err != nil {
					return err
				}

				var err error
				if liked {
					_, err = a.feed.LikePost(ctx, ref)
				} else {
					_, err = a.feed.UnlikePost(ctx, ref)
				}
				if err != nil {
					return err
				}
				return printJSON(out, a.cache.Get(cache.PostKey(ref.PostID)))
			})(cmd, args)
		},
	}
}

func newPostUpdateCmd() *cobra.Command {
	var title, content, postType string
	var mediaURLs []string

	cmd := &cobra.Command{
		Use:   "update <post-id>",
		Short: "Edit the fields of a post you own",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	cmd.Flags().StringVar(&postType, "type", "", "new post type")
	cmd.Flags().StringSliceVar(&mediaURLs, "media", nil, "replace media URLs")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var patch models.PostPatch
		if cmd.Flags().Changed("title") {
			patch.Title = &title
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &content
		}
		if cmd.Flags().Changed("type") {
			patch.PostType = &postType
		}
		if cmd.Flags().Changed("media") {
			patch.MediaURLs = mediaURLs
		}

		return runFeed(func(ctx context.Context, a *app, out io.Writer) error {
			updated, err := a.feed.UpdatePost(ctx, models.UpdatePost{PostID: args[0], Patch: patch})
			if err != nil {
				return err
			}
			return printJSON(out, updated)
		})(cmd, args)
	}

	return cmd
}
