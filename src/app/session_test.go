package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserClaims(t *testing.T) {
	t.Run("UsernameFallbackChain", func(t *testing.T) {
		claims := UserClaims{"cognito:username": "alice", "username": "al", "email": "a@example.com"}
		assert.Equal(t, "alice", claims.Username())

		claims = UserClaims{"username": "al", "email": "a@example.com"}
		assert.Equal(t, "al", claims.Username())

		claims = UserClaims{"email": "a@example.com"}
		assert.Equal(t, "a@example.com", claims.Username())

		assert.Empty(t, UserClaims{}.Username())
	})

	t.Run("Approved", func(t *testing.T) {
		assert.True(t, UserClaims{"custom:approved": "true"}.Approved())
		assert.True(t, UserClaims{"custom:approved": "True"}.Approved())
		assert.False(t, UserClaims{"custom:approved": "false"}.Approved())
		assert.False(t, UserClaims{}.Approved())
		// Non-string claims never grant access.
		assert.False(t, UserClaims{"custom:approved": true}.Approved())
	})

	t.Run("SplitBoxMember", func(t *testing.T) {
		assert.True(t, UserClaims{"custom:splitbox-access": "true"}.SplitBoxMember())
		assert.False(t, UserClaims{}.SplitBoxMember())
	})
}

func TestAllowedBuckets(t *testing.T) {
	configured := []string{"dashlab-bucket", "family-gallery", "personal-files"}

	t.Run("NoClaimKeepsAll", func(t *testing.T) {
		assert.Equal(t, configured, UserClaims{}.AllowedBuckets(configured))
	})

	t.Run("ClaimNarrowsSet", func(t *testing.T) {
		claims := UserClaims{"custom:buckets": "family-gallery, personal-files"}
		assert.Equal(t, []string{"family-gallery", "personal-files"}, claims.AllowedBuckets(configured))
	})

	t.Run("EmptyIntersectionFallsBack", func(t *testing.T) {
		claims := UserClaims{"custom:buckets": "not-a-bucket"}
		assert.Equal(t, configured, claims.AllowedBuckets(configured))
	})
}

func TestAllowedFolders(t *testing.T) {
	t.Run("DefaultsAlwaysPresent", func(t *testing.T) {
		folders := AllowedFolders("alice", nil)
		assert.Equal(t, []string{"alice/inputs/", "alice/outputs/", "shared/"}, folders)
	})

	t.Run("ExistingSharedAndInputSubfolders", func(t *testing.T) {
		existing := []string{"shared", "shared/music", "alice/inputs/2024", "bob/inputs/secret", "misc"}
		folders := AllowedFolders("alice", existing)
		assert.Contains(t, folders, "shared/music/")
		assert.Contains(t, folders, "alice/inputs/2024/")
		assert.NotContains(t, folders, "bob/inputs/secret/")
		assert.NotContains(t, folders, "misc/")
	})
}
