package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxReviewCommentChars = 1000

// Review — отзыв пользователя о товаре.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет отзыв перед сохранением.
func (r *Review) Validate() error {
	r.Comment = strings.TrimSpace(r.Comment)
	if strings.TrimSpace(r.ProductID) == "" {
		return ErrReviewProductEmpty
	}
	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingInvalid
	}
	if utf8.RuneCountInString(r.Comment) > maxReviewCommentChars {
		return ErrReviewCommentLong
	}
	return nil
}
