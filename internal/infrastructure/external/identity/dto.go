// Package identity implements the identity provider API client.
// Leaderboard identity queries ("@handle") resolve through this client;
// stored player names are the fallback when the provider is unreachable.
package identity

import (
	"fmt"
	"strconv"
)

// UserDTO mirrors the provider's user object. Snowflake IDs come over the
// wire as strings to survive JSON number precision.
type UserDTO struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// SnowflakeID parses the string snowflake into a uint64.
func (d UserDTO) SnowflakeID() (uint64, error) {
	id, err := strconv.ParseUint(d.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed snowflake %q: %w", d.ID, err)
	}
	return id, nil
}

// User is the resolved identity used by the query layer.
type User struct {
	// ID is the provider account ID.
	ID uint64

	// Username is the unique account handle.
	Username string

	// DisplayName is the user-facing name; falls back to Username.
	DisplayName string

	// AvatarURL is the resolved avatar address, empty when unset.
	AvatarURL string
}

// toUser converts a wire DTO into the resolved form.
func toUser(dto UserDTO) (*User, error) {
	id, err := dto.SnowflakeID()
	if err != nil {
		return nil, err
	}

	display := dto.GlobalName
	if display == "" {
		display = dto.Username
	}

	u := &User{
		ID:          id,
		Username:    dto.Username,
		DisplayName: display,
	}
	if dto.Avatar != "" {
		u.AvatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", dto.ID, dto.Avatar)
	}
	return u, nil
}
