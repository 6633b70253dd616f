package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitRedis_EmptyAddrDisables(t *testing.T) {
	client, err := InitRedis("", "", 0)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitRedis_UnreachableFails(t *testing.T) {
	client, err := InitRedis("127.0.0.1:1", "", 0)
	assert.Error(t, err)
	assert.Nil(t, client)
}
