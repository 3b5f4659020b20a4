package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

func TestExtractGameName(t *testing.T) {
	name, ok := ExtractGameName("https://www.roblox.com/games/920587237/Adopt-Me")
	require.True(t, ok)
	assert.Equal(t, "Adopt Me", name)

	name, ok = ExtractGameName("https://www.roblox.com/games/1/Blox%20Fruits?ref=x")
	require.True(t, ok)
	assert.Equal(t, "Blox Fruits", name)

	_, ok = ExtractGameName("https://example.com/catalog/1/Hat")
	assert.False(t, ok)

	_, ok = ExtractGameName("https://www.roblox.com/games/1/%zz")
	assert.False(t, ok)
}

func TestListingActiveBoundary(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := Listing{CreatedAt: created, ExpiresAt: created.Add(24 * 24 * time.Hour)}

	assert.True(t, l.Active(l.ExpiresAt.Add(-time.Millisecond)))
	assert.False(t, l.Active(l.ExpiresAt))
	assert.False(t, l.Active(l.ExpiresAt.Add(time.Millisecond)))

	kept := ActiveListings([]Listing{l, {ID: 2, ExpiresAt: created.Add(time.Hour)}}, created.Add(2*time.Hour))
	require.Len(t, kept, 1)
	assert.Equal(t, l.ExpiresAt, kept[0].ExpiresAt)
}

func TestFilterListings(t *testing.T) {
	listings := []Listing{
		{ID: 1, Title: "Rare pet", GameName: "Adopt Me"},
		{ID: 2, Title: "Sword", Description: "legendary", GameName: "Blox Fruits"},
		{ID: 3, Title: "Hat"},
	}

	got := FilterListings(listings, "LEGEND", "")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got = FilterListings(listings, "", "adopt me")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	assert.Len(t, FilterListings(listings, "", ""), 3)
	assert.Equal(t, []string{"Adopt Me", "Blox Fruits"}, ListingTags(listings))
	assert.Equal(t, "adopt-me", listings[0].Tag())
	assert.Empty(t, listings[2].Tag())
}

func TestBuildChats(t *testing.T) {
	users := []User{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}, {ID: 3, Username: "c"}}
	messages := []Message{
		{ID: 10, FromUserID: 1, ToUserID: 2, Content: "hi"},
		{ID: 11, FromUserID: 3, ToUserID: 1, Content: "yo"},
		{ID: 12, FromUserID: 2, ToUserID: 1, Content: "hey back"},
		{ID: 13, FromUserID: 9, ToUserID: 1, Content: "ghost"},
		{ID: 14, FromUserID: 2, ToUserID: 3, Content: "not mine"},
	}

	chats := BuildChats(1, messages, users)
	require.Len(t, chats, 2)
	assert.Equal(t, int64(2), chats[0].UserID)
	assert.Equal(t, "hey back", chats[0].LastMessage)
	assert.Equal(t, int64(3), chats[1].UserID)
	assert.Equal(t, "yo", chats[1].LastMessage)

	assert.Len(t, Thread(messages, 2, 1), 2)
	assert.Len(t, MessagesFor(messages, 3), 2)

	fresh := NewSince(messages, 1, map[int64]struct{}{11: {}})
	require.Len(t, fresh, 2)
	assert.Equal(t, int64(12), fresh[0].ID)
}

func TestComputeRating(t *testing.T) {
	reviews := []Review{
		{ToUserID: 1, Rating: 5},
		{ToUserID: 1, Rating: 4},
		{ToUserID: 1, Rating: 4},
		{ToUserID: 2, Rating: 1},
	}
	assert.Equal(t, Rating{Rating: 4.3, Count: 3}, ComputeRating(reviews, 1))
	assert.Equal(t, Rating{}, ComputeRating(reviews, 7))
	assert.Len(t, ReviewsFor(reviews, 2), 1)
}

func TestValidateInputs(t *testing.T) {
	err := Validate(ReviewInput{FromUserID: 1, ToUserID: 2, Rating: 6, Comment: "ok"})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "rating")

	err = Validate(MessageInput{FromUserID: 1, ToUserID: 1, Content: "self"})
	assert.True(t, apperr.IsValidation(err))

	in := ListingInput{UserID: 1, Title: "  ", Description: "d"}
	in.Normalize()
	assert.True(t, apperr.IsValidation(Validate(in)))

	assert.NoError(t, Validate(Credentials{Username: "bob", Password: "x"}))
}

func TestValidateReport(t *testing.T) {
	uid, lid := int64(2), int64(5)

	assert.NoError(t, ValidateReport(ReportInput{ReporterID: 1, ReportedUserID: &uid, Reason: "spam"}))
	assert.NoError(t, ValidateReport(ReportInput{ReporterID: 1, ListingID: &lid, Reason: "scam"}))
	assert.True(t, apperr.IsValidation(ValidateReport(ReportInput{ReporterID: 1, Reason: "none"})))
	assert.True(t, apperr.IsValidation(ValidateReport(ReportInput{ReporterID: 1, ReportedUserID: &uid, ListingID: &lid, Reason: "both"})))
	assert.True(t, apperr.IsValidation(ValidateReport(ReportInput{ReporterID: 1, ReportedUserID: &uid})))
}

func TestReportNotice(t *testing.T) {
	uid, lid := int64(2), int64(3)
	user := Report{ReportedUserID: &uid, ReportedUsername: "bob", Reason: "scam"}
	listing := Report{ListingID: &lid, ListingTitle: "Sword", Reason: "fake"}

	assert.False(t, user.IsListingReport())
	assert.True(t, listing.IsListingReport())
	assert.Equal(t, "Report on user bob: scam", user.Notice())
	assert.Equal(t, `Report on listing "Sword": fake`, listing.Notice())
}

func TestMedia(t *testing.T) {
	assert.NoError(t, ValidateImageType("image/png"))
	assert.NoError(t, ValidateImageType("image/jpeg"))
	assert.Error(t, ValidateImageType("image/gif"))

	url, err := ImageDataURL("image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", url)

	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=bob", DefaultAvatar("bob"))
	assert.Equal(t, "blocked:42", KeyBlocked(42))
	assert.True(t, IsBlockedKey("blocked:42"))
	assert.False(t, IsBlockedKey("blocked:"))
}
