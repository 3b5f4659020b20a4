package api

import (
	"time"

	"github.com/oggyb/rotrade-sync/internal/model"
)

// Response bodies use snake_case, request bodies camelCase (see model
// inputs). Timestamps are ISO-8601; older servers omit the zone.

type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	AvatarURL    string  `json:"avatar_url,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	ReviewsCount int     `json:"reviews_count,omitempty"`
}

type Listing struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	GameURL     string `json:"game_url,omitempty"`
	GameName    string `json:"game_name,omitempty"`
	CreatedAt   string `json:"created_at"`
	Views       int    `json:"views,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type Message struct {
	ID         int64  `json:"id"`
	FromUserID int64  `json:"from_user_id"`
	ToUserID   int64  `json:"to_user_id"`
	Content    string `json:"content"`
	ReplyToID  *int64 `json:"reply_to_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type Report struct {
	ID               int64  `json:"id"`
	ReporterID       int64  `json:"reporter_id"`
	ReporterUsername string `json:"reporter_username,omitempty"`
	ReportedUserID   *int64 `json:"reported_user_id,omitempty"`
	ReportedUsername string `json:"reported_username,omitempty"`
	ListingID        *int64 `json:"listing_id,omitempty"`
	ListingTitle     string `json:"listing_title,omitempty"`
	Reason           string `json:"reason"`
	CreatedAt        string `json:"created_at"`
}

type Review struct {
	ID           int64  `json:"id"`
	FromUserID   int64  `json:"from_user_id"`
	FromUsername string `json:"from_username,omitempty"`
	ToUserID     int64  `json:"to_user_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	CreatedAt    string `json:"created_at"`
}

// ErrorBody is the JSON shape of every non-2xx answer.
type ErrorBody struct {
	Error string `json:"error"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime accepts RFC 3339 and zone-less ISO timestamps (read as UTC).
// Unparseable input yields the zero time.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func FromUser(u model.User) User {
	return User{
		ID:           u.ID,
		Username:     u.Username,
		AvatarURL:    u.Avatar,
		CreatedAt:    formatTime(u.CreatedAt),
		Rating:       u.Rating,
		ReviewsCount: u.ReviewsCount,
	}
}

func (u User) Model() model.User {
	return model.User{
		ID:           u.ID,
		Username:     u.Username,
		Avatar:       u.AvatarURL,
		CreatedAt:    ParseTime(u.CreatedAt),
		Rating:       u.Rating,
		ReviewsCount: u.ReviewsCount,
	}
}

func FromListing(l model.Listing) Listing {
	return Listing{
		ID:          l.ID,
		UserID:      l.UserID,
		Username:    l.Username,
		Title:       l.Title,
		Description: l.Description,
		ImageURL:    l.ImageURL,
		GameURL:     l.GameURL,
		GameName:    l.GameName,
		CreatedAt:   formatTime(l.CreatedAt),
		Views:       l.Views,
		ExpiresAt:   formatTime(l.ExpiresAt),
	}
}

// Model converts to the domain listing. Servers that do not send
// expires_at get createdAt + ttl.
func (l Listing) Model(ttl time.Duration) model.Listing {
	created := ParseTime(l.CreatedAt)
	expires := ParseTime(l.ExpiresAt)
	if expires.IsZero() {
		expires = created.Add(ttl)
	}
	return model.Listing{
		ID:          l.ID,
		UserID:      l.UserID,
		Username:    l.Username,
		Title:       l.Title,
		Description: l.Description,
		ImageURL:    l.ImageURL,
		GameURL:     l.GameURL,
		GameName:    l.GameName,
		CreatedAt:   created,
		Views:       l.Views,
		ExpiresAt:   expires,
	}
}

func FromMessage(m model.Message) Message {
	return Message{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Content:    m.Content,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  formatTime(m.CreatedAt),
	}
}

func (m Message) Model() model.Message {
	return model.Message{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Content:    m.Content,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  ParseTime(m.CreatedAt),
	}
}

func FromReport(r model.Report) Report {
	return Report{
		ID:               r.ID,
		ReporterID:       r.ReporterID,
		ReporterUsername: r.ReporterUsername,
		ReportedUserID:   r.ReportedUserID,
		ReportedUsername: r.ReportedUsername,
		ListingID:        r.ListingID,
		ListingTitle:     r.ListingTitle,
		Reason:           r.Reason,
		CreatedAt:        formatTime(r.CreatedAt),
	}
}

func (r Report) Model() model.Report {
	return model.Report{
		ID:               r.ID,
		ReporterID:       r.ReporterID,
		ReporterUsername: r.ReporterUsername,
		ReportedUserID:   r.ReportedUserID,
		ReportedUsername: r.ReportedUsername,
		ListingID:        r.ListingID,
		ListingTitle:     r.ListingTitle,
		Reason:           r.Reason,
		CreatedAt:        ParseTime(r.CreatedAt),
	}
}

func FromReview(r model.Review) Review {
	return Review{
		ID:           r.ID,
		FromUserID:   r.FromUserID,
		FromUsername: r.FromUsername,
		ToUserID:     r.ToUserID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    formatTime(r.CreatedAt),
	}
}

func (r Review) Model() model.Review {
	return model.Review{
		ID:           r.ID,
		FromUserID:   r.FromUserID,
		FromUsername: r.FromUsername,
		ToUserID:     r.ToUserID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    ParseTime(r.CreatedAt),
	}
}

// Convert maps a slice through f, never returning nil.
func Convert[A, B any](in []A, f func(A) B) []B {
	out := make([]B, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
