package model

import (
	"math"
	"time"
)

type Review struct {
	ID           int64     `json:"id"`
	FromUserID   int64     `json:"fromUserId"`
	FromUsername string    `json:"fromUsername"`
	ToUserID     int64     `json:"toUserId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Rating is the aggregate shown next to a user.
type Rating struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// ComputeRating averages the reviews targeting userID, rounded to one
// decimal. It is always recomputed from the full review set.
func ComputeRating(reviews []Review, userID int64) Rating {
	sum, count := 0, 0
	for _, r := range reviews {
		if r.ToUserID == userID {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return Rating{}
	}
	mean := float64(sum) / float64(count)
	return Rating{Rating: math.Round(mean*10) / 10, Count: count}
}

// ReviewsFor returns the reviews targeting userID.
func ReviewsFor(reviews []Review, userID int64) []Review {
	var out []Review
	for _, r := range reviews {
		if r.ToUserID == userID {
			out = append(out, r)
		}
	}
	return out
}
