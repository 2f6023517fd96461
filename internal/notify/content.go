package notify

import "fmt"

// maxTitleLen bounds post titles embedded in notification text
const maxTitleLen = 50

// truncateTitle shortens long post titles for notification content
func truncateTitle(title string) string {
	if len(title) <= maxTitleLen {
		return title
	}
	return title[:maxTitleLen] + "..."
}

// FriendRequestContent builds the text for a friend request
func FriendRequestContent(senderName string) string {
	return fmt.Sprintf("%s sent you a friend request", senderName)
}

// FriendAcceptedContent builds the text for an accepted friend request
func FriendAcceptedContent(accepterName string) string {
	return fmt.Sprintf("%s accepted your friend request", accepterName)
}

// PostApprovedContent builds the text for an approved post
func PostApprovedContent(title string) string {
	return fmt.Sprintf("Your post %q was approved", truncateTitle(title))
}

// PostRejectedContent builds the text for a rejected post
func PostRejectedContent(title, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Your post %q was rejected", truncateTitle(title))
	}
	return fmt.Sprintf("Your post %q was rejected: %s", truncateTitle(title), reason)
}

// PostLikedContent builds the text for a post like
func PostLikedContent(likerName, title string) string {
	return fmt.Sprintf("%s liked your post %q", likerName, truncateTitle(title))
}

// PostCommentedContent builds the text for a new comment
func PostCommentedContent(commenterName, title string) string {
	return fmt.Sprintf("%s commented on your post %q", commenterName, truncateTitle(title))
}

// CommentRepliedContent builds the text for a comment reply
func CommentRepliedContent(replierName string) string {
	return fmt.Sprintf("%s replied to your comment", replierName)
}
