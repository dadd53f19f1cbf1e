package app

import (
	"sort"
	"strings"
)

// UserClaims is the claims map extracted from a verified ID token.
type UserClaims map[string]any

func (u UserClaims) str(key string) string {
	value, _ := u[key].(string)
	return value
}

// Username returns the best display identity available in the claims.
func (u UserClaims) Username() string {
	if name := u.str("cognito:username"); name != "" {
		return name
	}
	if name := u.str("username"); name != "" {
		return name
	}
	return u.str("email")
}

func (u UserClaims) Email() string {
	return u.str("email")
}

// Approved reports the custom:approved flag that gates the whole app.
func (u UserClaims) Approved() bool {
	return strings.EqualFold(u.str("custom:approved"), "true")
}

// SplitBoxMember reports access to the audio-splitting pages.
func (u UserClaims) SplitBoxMember() bool {
	return strings.EqualFold(u.str("custom:splitbox-access"), "true")
}

// AllowedBuckets narrows the configured bucket set when the custom:buckets
// claim is present. An empty intersection falls back to the full set.
func (u UserClaims) AllowedBuckets(configured []string) []string {
	raw := u.str("custom:buckets")
	if raw == "" {
		return configured
	}
	wanted := make(map[string]struct{})
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = struct{}{}
		}
	}
	allowed := make([]string, 0, len(configured))
	for _, name := range configured {
		if _, ok := wanted[name]; ok {
			allowed = append(allowed, name)
		}
	}
	if len(allowed) == 0 {
		return configured
	}
	return allowed
}

// AllowedFolders restricts the destination folders a user may write to:
// the shared area plus the user's own inputs and outputs. The defaults are
// always offered even when the folders do not exist yet.
func AllowedFolders(username string, existing []string) []string {
	allowed := map[string]struct{}{
		"shared/":              {},
		username + "/inputs/":  {},
		username + "/outputs/": {},
	}
	userInputs := username + "/inputs/"
	for _, folder := range existing {
		if folder == "" {
			continue
		}
		withSlash := folder
		if !strings.HasSuffix(withSlash, "/") {
			withSlash += "/"
		}
		if strings.HasPrefix(withSlash, "shared/") || strings.HasPrefix(withSlash, userInputs) {
			allowed[withSlash] = struct{}{}
		}
	}
	folders := make([]string, 0, len(allowed))
	for folder := range allowed {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}
