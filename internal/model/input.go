package model

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials are used by both register and login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ListingInput struct {
	UserID      int64  `json:"userId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	ImageURL    string `json:"imageUrl,omitempty"`
	GameURL     string `json:"gameUrl,omitempty"`
	GameName    string `json:"gameName,omitempty"`
}

type MessageInput struct {
	FromUserID int64  `json:"fromUserId" validate:"required"`
	ToUserID   int64  `json:"toUserId" validate:"required,nefield=FromUserID"`
	Content    string `json:"content" validate:"required"`
	ReplyToID  *int64 `json:"replyToId,omitempty"`
}

// ReportInput must set exactly one of ReportedUserID and ListingID.
type ReportInput struct {
	ReporterID     int64  `json:"reporterId" validate:"required"`
	ReportedUserID *int64 `json:"reportedUserId,omitempty"`
	ListingID      *int64 `json:"listingId,omitempty"`
	Reason         string `json:"reason" validate:"required"`
}

type ReviewInput struct {
	FromUserID int64  `json:"fromUserId" validate:"required"`
	ToUserID   int64  `json:"toUserId" validate:"required,nefield=FromUserID"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	Comment    string `json:"comment" validate:"required"`
}

// Normalize trims the free-text fields in place.
func (c *Credentials) Normalize() {
	c.Username = strings.TrimSpace(c.Username)
}

func (in *ListingInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.GameURL = strings.TrimSpace(in.GameURL)
	in.GameName = strings.TrimSpace(in.GameName)
}

func (in *MessageInput) Normalize() {
	in.Content = strings.TrimSpace(in.Content)
}

func (in *ReportInput) Normalize() {
	in.Reason = strings.TrimSpace(in.Reason)
}

func (in *ReviewInput) Normalize() {
	in.Comment = strings.TrimSpace(in.Comment)
}

// Validate checks struct tags and returns the first failure as a
// ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(err.Error())
	}

	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperr.InvalidField(field, "is required")
	case "nefield":
		return apperr.InvalidField(field, "cannot target yourself")
	case "min", "max":
		return apperr.InvalidField(field, "must be between 1 and 5")
	default:
		return apperr.InvalidField(field, "is invalid")
	}
}

// ValidateReport additionally enforces the user-or-listing variant rule.
func ValidateReport(in ReportInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if (in.ReportedUserID == nil) == (in.ListingID == nil) {
		return apperr.Validation("a report targets exactly one user or listing")
	}
	if in.ReportedUserID != nil && *in.ReportedUserID == in.ReporterID {
		return apperr.InvalidField("reportedUserId", "cannot target yourself")
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
