package wireguard

import (
	"fmt"
	"regexp"
	"strconv"

	"wg-access-bot/internal/constants"
	"wg-access-bot/internal/errors"
)

// Profile names exclude the separator, so a peer ID parses back into its
// (telegram ID, name) pair unambiguously and distinct pairs never collide.
var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateProfileName checks a profile name against the naming rules
func ValidateProfileName(name string) error {
	if len(name) < constants.MinProfileNameLength || len(name) > constants.MaxProfileNameLength {
		return &errors.ValidationError{
			Field: "name",
			Message: fmt.Sprintf("profile name must be between %d and %d characters",
				constants.MinProfileNameLength, constants.MaxProfileNameLength),
		}
	}

	if !profileNamePattern.MatchString(name) {
		return &errors.ValidationError{
			Field:   "name",
			Message: "profile name must contain only Latin letters, numbers, and underscores",
		}
	}

	return nil
}

// PeerID derives the external peer identifier for a user's profile. The
// derivation is pure and stable for the profile's lifetime.
func PeerID(telegramID int64, name string) string {
	return strconv.FormatInt(telegramID, 10) + constants.PeerIDSeparator + name
}
