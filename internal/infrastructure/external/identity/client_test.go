package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserDTO_Parsing(t *testing.T) {
	jsonData := `{
    "id": "80351110224678912",
    "username": "nelly",
    "global_name": "Nelly",
    "avatar": "8342729096ea3675442027381ff50dfe"
}`

	var dto UserDTO
	err := json.Unmarshal([]byte(jsonData), &dto)
	assert.NoError(t, err)

	assert.Equal(t, "80351110224678912", dto.ID)
	assert.Equal(t, "nelly", dto.Username)
	assert.Equal(t, "Nelly", dto.GlobalName)

	id, err := dto.SnowflakeID()
	assert.NoError(t, err)
	assert.Equal(t, uint64(80351110224678912), id)
}

func TestToUser_DisplayNameFallback(t *testing.T) {
	dto := UserDTO{
		ID:       "123456789",
		Username: "player_one",
	}

	u, err := toUser(dto)
	assert.NoError(t, err)
	assert.Equal(t, uint64(123456789), u.ID)
	assert.Equal(t, "player_one", u.Username)
	assert.Equal(t, "player_one", u.DisplayName, "global name absent, username should stand in")
	assert.Empty(t, u.AvatarURL)
}

func TestToUser_MalformedSnowflake(t *testing.T) {
	dto := UserDTO{ID: "not-a-number", Username: "x"}

	_, err := toUser(dto)
	assert.Error(t, err)
}

func TestToUser_AvatarURL(t *testing.T) {
	dto := UserDTO{
		ID:         "42",
		Username:   "u",
		GlobalName: "U",
		Avatar:     "abcdef",
	}

	u, err := toUser(dto)
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/42/abcdef.png", u.AvatarURL)
}
