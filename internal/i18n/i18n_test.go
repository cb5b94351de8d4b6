// internal/i18n/i18n_test.go
package i18n

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateWithFallback(t *testing.T) {
	require.NoError(t, Initialize())

	assert.NotEqual(t, KeyGemstoneNotFound, T("en", KeyGemstoneNotFound))
	assert.NotEqual(t, T("en", KeyGemstoneNotFound), T("zh_TW", KeyGemstoneNotFound))

	// Unknown language falls back to English, unknown key to itself.
	assert.Equal(t, T("en", KeyGemstoneNotFound), T("fr", KeyGemstoneNotFound))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
}

func TestLocalesDefineSameKeys(t *testing.T) {
	load := func(name string) map[string]string {
		data, err := localeFS.ReadFile("locales/" + name)
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	en := load("en.json")
	zh := load("zh_TW.json")
	for key := range en {
		assert.Contains(t, zh, key, "zh_TW is missing %s", key)
	}
	for key := range zh {
		assert.Contains(t, en, key, "en is missing %s", key)
	}
}

func TestSupportedLanguages(t *testing.T) {
	require.NoError(t, Initialize())
	assert.ElementsMatch(t, []string{"en", "zh_TW"}, GetSupportedLanguages())
}
