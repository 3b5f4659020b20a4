package model

import (
	"fmt"
	"time"
)

// Report targets exactly one of a user or a listing.
type Report struct {
	ID               int64     `json:"id"`
	ReporterID       int64     `json:"reporterId"`
	ReporterUsername string    `json:"reporterUsername"`
	ReportedUserID   *int64    `json:"reportedUserId,omitempty"`
	ReportedUsername string    `json:"reportedUsername,omitempty"`
	ListingID        *int64    `json:"listingId,omitempty"`
	ListingTitle     string    `json:"listingTitle,omitempty"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Targets reports whether the report is about userID.
func (r Report) Targets(userID int64) bool {
	return r.ReportedUserID != nil && *r.ReportedUserID == userID
}

// IsListingReport reports whether this is the listing variant.
func (r Report) IsListingReport() bool {
	return r.ListingID != nil
}

// Notice is the text forwarded to the support inbox when the report is filed.
func (r Report) Notice() string {
	if r.IsListingReport() {
		return fmt.Sprintf("Report on listing %q: %s", r.ListingTitle, r.Reason)
	}
	return fmt.Sprintf("Report on user %s: %s", r.ReportedUsername, r.Reason)
}
