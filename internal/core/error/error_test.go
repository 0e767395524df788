package errx

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	notFound := WrapRedis(redis.Nil)
	assert.ErrorIs(t, notFound, ErrSessionNotFound)
	assert.ErrorIs(t, notFound, redis.Nil)
	assert.Equal(t, http.StatusNotFound, Status(notFound))

	down := WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, Status(down))
	assert.Equal(t, RedisErrorMessage, SafeMessage(down))
	assert.NotErrorIs(t, down, ErrSessionNotFound)
}

func TestWrapStore(t *testing.T) {
	assert.Nil(t, WrapStore(nil))
	assert.ErrorIs(t, WrapStore(sql.ErrNoRows), ErrSessionNotFound)
	assert.Equal(t, http.StatusServiceUnavailable, Status(WrapStore(errors.New("disk full"))))
}

func TestAppErrorAs(t *testing.T) {
	err := fmt.Errorf("load: %w", Invalid("thread id too long"))

	var ae *AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, ae.Error(), "thread id too long")
}

func TestStatusDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, Status(ErrSessionNotFound))
	assert.Equal(t, SystemErrorMessage, SafeMessage(errors.New("secret detail")))
}
