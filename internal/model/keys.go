package model

import "strconv"

// Store keys. Every key is namespaced by the store (see config STORE_NAMESPACE).
const (
	KeyUsers        = "users"
	KeyListings     = "listings"
	KeyMessages     = "messages"
	KeyReports      = "reports"
	KeyReviews      = "reviews"
	KeyCurrentUser  = "current_user"
	KeySoundEnabled = "sound_enabled"

	blockedPrefix = "blocked:"
)

// KeyBlocked is the per-user block list key.
func KeyBlocked(userID int64) string {
	return blockedPrefix + strconv.FormatInt(userID, 10)
}

// IsBlockedKey reports whether key is a per-user block list key.
func IsBlockedKey(key string) bool {
	return len(key) > len(blockedPrefix) && key[:len(blockedPrefix)] == blockedPrefix
}
