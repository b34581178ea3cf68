// Package commenttree transforms a post's nested comment tree.
//
// Every function returns a new tree and leaves its input untouched. Subtrees
// that are not on the path to the target are shared with the input, so callers
// must not modify returned nodes in place. Nodes are located by ID with a
// depth-first pre-order walk; when an ID occurs more than once the first match
// wins. A missing target is not an error: the input is returned unchanged.
package commenttree

import "alumnihub.com/alumni-feed/models"

// InsertReply appends reply to the replies of the node with ID parentID.
func InsertReply(tree []models.Comment, parentID string, reply models.Comment) []models.Comment {
	updated, _ := rewrite(tree, parentID, func(parent models.Comment) (models.Comment, bool) {
		replies := make([]models.Comment, len(parent.Replies), len(parent.Replies)+1)
		copy(replies, parent.Replies)
		parent.Replies = append(replies, reply)
		return parent, true
	})

	return updated
}

// EditContent replaces the content of the node with ID targetID.
func EditContent(tree []models.Comment, targetID string, content string) []models.Comment {
	updated, _ := rewrite(tree, targetID, func(node models.Comment) (models.Comment, bool) {
		node.Content = content
		return node, true
	})

	return updated
}

// ReplaceNode swaps the reply tempID under parentID for real, keeping its
// position among its siblings. An empty parentID addresses the top level.
func ReplaceNode(tree []models.Comment, parentID string, tempID string, real models.Comment) []models.Comment {
	if parentID == "" {
		replaced, ok := replaceChild(tree, tempID, real)
		if !ok {
			return tree
		}
		return replaced
	}

	updated, _ := rewrite(tree, parentID, func(parent models.Comment) (models.Comment, bool) {
		replies, ok := replaceChild(parent.Replies, tempID, real)
		if !ok {
			return parent, false
		}
		parent.Replies = replies
		return parent, true
	})

	return updated
}

// RemoveNode deletes the node with ID targetID together with its replies.
func RemoveNode(tree []models.Comment, targetID string) []models.Comment {
	updated, _ := remove(tree, targetID)
	return updated
}

// AdjustLike sets the viewer's like flag on targetID and moves its like count by
// delta. The count never drops below zero.
func AdjustLike(tree []models.Comment, targetID string, delta int, hasLike bool) []models.Comment {
	updated, _ := rewrite(tree, targetID, func(node models.Comment) (models.Comment, bool) {
		node.HasLike = hasLike
		node.LikeCount = max(0, node.LikeCount+delta)
		return node, true
	})

	return updated
}

// Find returns the first node with ID id.
func Find(tree []models.Comment, id string) (models.Comment, bool) {
	for _, node := range tree {
		if node.ID == id {
			return node, true
		}
		if found, ok := Find(node.Replies, id); ok {
			return found, true
		}
	}

	return models.Comment{}, false
}

// Count returns the number of nodes in the tree, replies included.
func Count(tree []models.Comment) int {
	total := len(tree)
	for _, node := range tree {
		total += Count(node.Replies)
	}

	return total
}

type outcome int

const (
	notFound outcome = iota
	declined
	applied
)

// rewrite applies edit to the first node with ID targetID. The list and every
// ancestor of the target are copied; everything else is shared. When edit
// declines (returns false) or no node matches, the original list is returned
// and later duplicates of targetID are left untouched.
func rewrite(
	tree []models.Comment,
	targetID string,
	edit func(models.Comment) (models.Comment, bool),
) ([]models.Comment, outcome) {
	for idx, node := range tree {
		if node.ID == targetID {
			edited, ok := edit(node)
			if !ok {
				return tree, declined
			}
			return withNode(tree, idx, edited), applied
		}

		replies, result := rewrite(node.Replies, targetID, edit)
		switch result {
		case applied:
			node.Replies = replies
			return withNode(tree, idx, node), applied
		case declined:
			return tree, declined
		}
	}

	return tree, notFound
}

func remove(tree []models.Comment, targetID string) ([]models.Comment, bool) {
	for idx, node := range tree {
		if node.ID == targetID {
			pruned := make([]models.Comment, 0, len(tree)-1)
			pruned = append(pruned, tree[:idx]...)
			pruned = append(pruned, tree[idx+1:]...)
			return pruned, true
		}

		replies, ok := remove(node.Replies, targetID)
		if ok {
			node.Replies = replies
			return withNode(tree, idx, node), true
		}
	}

	return tree, false
}

func replaceChild(list []models.Comment, childID string, replacement models.Comment) ([]models.Comment, bool) {
	for idx := range list {
		if list[idx].ID == childID {
			return withNode(list, idx, replacement), true
		}
	}

	return list, false
}

func withNode(list []models.Comment, idx int, node models.Comment) []models.Comment {
	copied := make([]models.Comment, len(list))
	copy(copied, list)
	copied[idx] = node

	return copied
}
