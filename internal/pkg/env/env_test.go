package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMapOverOS(t *testing.T) {
	t.Setenv("TEXTFOX_TEST_KEY", "from-os")
	Env = map[string]string{"TEXTFOX_TEST_KEY": "from-map"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-map", GetEnv("TEXTFOX_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("TEXTFOX_TEST_MISSING", "def"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEXTFOX_TEST_INT", "7")
	assert.Equal(t, 7, GetEnvInt("TEXTFOX_TEST_INT", 3))

	t.Setenv("TEXTFOX_TEST_INT", "junk")
	assert.Equal(t, 3, GetEnvInt("TEXTFOX_TEST_INT", 3))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEXTFOX_TEST_BOOL", "true")
	assert.True(t, GetEnvBool("TEXTFOX_TEST_BOOL", false))

	t.Setenv("TEXTFOX_TEST_BOOL", "junk")
	assert.True(t, GetEnvBool("TEXTFOX_TEST_BOOL", true))
}

func TestIsDev(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	assert.True(t, IsDev())

	t.Setenv("APP_ENV", "prod")
	assert.False(t, IsDev())
}
