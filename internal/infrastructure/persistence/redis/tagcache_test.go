package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageKey_Deterministic(t *testing.T) {
	params := map[string]string{
		"sortBy": "rankedScore",
		"order":  "desc",
		"offset": "0",
		"limit":  "20",
	}

	// Порядок обхода map не должен влиять на результат.
	key := PageKey(params)
	for i := 0; i < 50; i++ {
		assert.Equal(t, key, PageKey(params))
	}
	assert.Equal(t, "leaderboard:page:limit=20:offset=0:order=desc:sortBy=rankedScore", key)
}

func TestPageKey_SkipsEmptyValues(t *testing.T) {
	withEmpty := PageKey(map[string]string{"sortBy": "rankedScore", "query": ""})
	without := PageKey(map[string]string{"sortBy": "rankedScore"})
	assert.Equal(t, without, withEmpty)
}

func TestPageKey_EscapesValues(t *testing.T) {
	// Имя с разделителями ключа не должно порождать коллизии.
	a := PageKey(map[string]string{"query": "a:b=c"})
	b := PageKey(map[string]string{"query": "a", "b": "c"})
	assert.NotEqual(t, a, b)

	assert.Equal(t, "leaderboard:page:query=a%3Ab%3Dc", a)
}

func TestPageKey_NoParams(t *testing.T) {
	assert.Equal(t, "leaderboard:page", PageKey(nil))
}

func TestTagSetKey(t *testing.T) {
	assert.Equal(t, "tag:leaderboard:all", tagSetKey("leaderboard:all"))
}
