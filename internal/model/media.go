package model

import (
	"encoding/base64"
	"regexp"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

var imageTypePattern = regexp.MustCompile(`^image/(png|jpeg|jpg)$`)

// ValidateImageType accepts PNG and JPEG only.
func ValidateImageType(contentType string) error {
	if !imageTypePattern.MatchString(contentType) {
		return apperr.InvalidField("image", "only PNG and JPG images are allowed")
	}
	return nil
}

// ImageDataURL validates the type and encodes data as a data: URL.
func ImageDataURL(contentType string, data []byte) (string, error) {
	if err := ValidateImageType(contentType); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.InvalidField("image", "empty file")
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
