package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("STARFIELD_TEST_VALUE", "present")
	t.Setenv("STARFIELD_TEST_EMPTY", "")

	assert.Equal(t, "present", GetEnv("STARFIELD_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("STARFIELD_TEST_EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("STARFIELD_TEST_UNSET", "fallback"))
}

func TestGetEnvNumbers(t *testing.T) {
	t.Setenv("STARFIELD_TEST_INT", "42")
	t.Setenv("STARFIELD_TEST_BAD_INT", "forty-two")
	t.Setenv("STARFIELD_TEST_FLOAT", "2.5")

	assert.Equal(t, 42, GetEnvInt("STARFIELD_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("STARFIELD_TEST_BAD_INT", 1))
	assert.Equal(t, 2.5, GetEnvFloat("STARFIELD_TEST_FLOAT", 1))
	assert.Equal(t, 3*time.Minute, GetEnvDuration("STARFIELD_TEST_UNSET", 3, time.Minute))
}
