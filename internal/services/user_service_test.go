// internal/services/user_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func TestMergeProfileData(t *testing.T) {
	existing := models.JSONB{
		"full_name":   "Ada Lovelace",
		"phone":       "555-0100",
		"reset_token": "keep-me",
	}

	merged := MergeProfileData(existing, map[string]interface{}{
		"phone":       nil,
		"city":        "London",
		"reset_token": "overwrite",
	})

	assert.Equal(t, "Ada Lovelace", merged["full_name"])
	assert.Equal(t, "London", merged["city"])
	assert.NotContains(t, merged, "phone")
	assert.Equal(t, "keep-me", merged["reset_token"])

	// the input map is not modified
	assert.Equal(t, "555-0100", existing["phone"])
}
