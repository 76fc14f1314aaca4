// Package domain contains entities without transport or storage logic, just meta-data
package domain

import "errors"

const MaxUserIDLen = 128

var ErrUserIDEmpty = errors.New("user id empty")

type UserID string

// Profile is display data owned by an external profile store.
type Profile struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// FallbackProfile is used when the profile store has no entry for a user.
func FallbackProfile(id UserID) Profile {
	return Profile{UserID: id, DisplayName: string(id)}
}

func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return "", ErrUserIDEmpty
	}
	if len(s) > MaxUserIDLen {
		return "", errors.New("user id too long")
	}
	return UserID(s), nil
}
