// Package moderation scores user-submitted content for spam and abuse
// signals before it enters the review queue.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/culturalx/backend/internal/models"
	"gorm.io/gorm"
)

// FlagThreshold is the score at which content is flagged for review.
const FlagThreshold = 5

var spamKeywords = []string{
	"buy now", "click here", "free money", "limited offer",
	"act now", "make money fast", "work from home", "guaranteed",
	"no risk", "winner", "congratulations you", "claim your",
}

var profanityList = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "cunt", "dick",
}

var linkPattern = regexp.MustCompile(`https?://\S+`)

// Result holds the outcome of scoring a piece of content.
type Result struct {
	Score   int      `json:"score"`
	Flagged bool     `json:"flagged"`
	Reasons []string `json:"reasons"`
}

// Score evaluates title and description together and accumulates
// penalties for each spam heuristic that trips.
func Score(title, description string) Result {
	content := strings.TrimSpace(title + " " + description)
	lower := strings.ToLower(content)

	var res Result

	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			res.Score += 2
			res.Reasons = append(res.Reasons, fmt.Sprintf("spam keyword: %q", kw))
		}
	}

	for _, word := range profanityList {
		if strings.Contains(lower, word) {
			res.Score += 3
			res.Reasons = append(res.Reasons, "profanity")
			break
		}
	}

	links := linkPattern.FindAllString(content, -1)
	if len(links) > 3 {
		res.Score += 3
		res.Reasons = append(res.Reasons, fmt.Sprintf("excessive links (%d)", len(links)))
	}

	if ratio, letters := capsRatio(content); letters >= 20 && ratio > 0.5 {
		res.Score += 2
		res.Reasons = append(res.Reasons, "excessive capitalization")
	}

	words := strings.Fields(lower)
	if len(words) > 10 {
		if repetitionRatio(words) > 0.7 {
			res.Score += 2
			res.Reasons = append(res.Reasons, "repetitive content")
		}
	}

	if len(content) < 30 && len(links) > 0 {
		res.Score += 2
		res.Reasons = append(res.Reasons, "short content with link")
	}

	res.Flagged = res.Score >= FlagThreshold
	return res
}

// IsDuplicate reports whether the user already posted content with the
// same title within the last 24 hours.
func IsDuplicate(db *gorm.DB, userID, title string) (bool, error) {
	since := time.Now().Add(-24 * time.Hour)
	var count int64
	err := db.Model(&models.Post{}).
		Where("user_id = ? AND title = ? AND created_at > ?", userID, title, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// capsRatio returns the fraction of letters that are uppercase, and the
// total letter count.
func capsRatio(s string) (float64, int) {
	var upper, letters int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0, 0
	}
	return float64(upper) / float64(letters), letters
}

// repetitionRatio returns 1 - unique/total over the word list; higher
// means more repeated words.
func repetitionRatio(words []string) float64 {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return 1 - float64(len(seen))/float64(len(words))
}
