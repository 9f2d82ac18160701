package redis

import (
	"testing"

	"github.com/sifan077/PowerHook/config"
	"github.com/stretchr/testify/assert"
)

func TestAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", Addr(config.RedisConfig{}))
	assert.Equal(t, "cache:6380", Addr(config.RedisConfig{Host: "cache", Port: 6380}))
}
