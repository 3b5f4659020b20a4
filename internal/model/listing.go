package model

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// DefaultListingImage is used when a listing is created without an image.
const DefaultListingImage = "https://images.unsplash.com/photo-1614680376739-414d95ff43df?w=400"

var gameURLPattern = regexp.MustCompile(`/games/\d+/([^/?]+)`)

type Listing struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	GameURL     string    `json:"gameUrl,omitempty"`
	GameName    string    `json:"gameName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Views       int       `json:"views"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Active reports whether the listing is still visible at now.
// A listing is visible only while now < expiresAt.
func (l Listing) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}

// Tag is the filter key derived from the game name. Empty when no game.
func (l Listing) Tag() string {
	if l.GameName == "" {
		return ""
	}
	return slug.Make(l.GameName)
}

// ActiveListings keeps listings with expiresAt > now, preserving order.
func ActiveListings(listings []Listing, now time.Time) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Active(now) {
			out = append(out, l)
		}
	}
	return out
}

// ExtractGameName derives a readable game name from a game page URL such
// as https://www.roblox.com/games/920587237/Adopt-Me. Dashes become spaces
// and escapes are decoded. ok is false when the URL is not a game URL.
func ExtractGameName(gameURL string) (name string, ok bool) {
	m := gameURLPattern.FindStringSubmatch(gameURL)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	decoded, err := url.PathUnescape(strings.ReplaceAll(m[1], "-", " "))
	if err != nil {
		return "", false
	}
	return decoded, true
}

// ListingTags returns the distinct game names, sorted.
func ListingTags(listings []Listing) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, l := range listings {
		if l.GameName == "" {
			continue
		}
		if _, dup := seen[l.GameName]; dup {
			continue
		}
		seen[l.GameName] = struct{}{}
		tags = append(tags, l.GameName)
	}
	sort.Strings(tags)
	return tags
}

// FilterListings applies the free-text query (title, description, game
// name; case-insensitive) and the optional game tag.
func FilterListings(listings []Listing, query, tag string) []Listing {
	q := strings.ToLower(strings.TrimSpace(query))
	tagKey := ""
	if tag != "" {
		tagKey = slug.Make(tag)
	}

	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Title), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) &&
			!strings.Contains(strings.ToLower(l.GameName), q) {
			continue
		}
		if tagKey != "" && l.Tag() != tagKey {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ListingsByOwner returns the listings owned by userID.
func ListingsByOwner(listings []Listing, userID int64) []Listing {
	var out []Listing
	for _, l := range listings {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}
