package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	app "dashlab/src/app"
	cfg "dashlab/src/configuration"
)

type (
	AuthHandler struct {
		oidcProvider      *oidc.Provider
		AuthConfig        *oauth2.Config
		ClientID          string
		Domain            string
		LogoutRedirect    string
		IDTokenCookieName string
		CookieDomain      string
		oauthStateString  string
	}
)

var (
	// exactAllowedPaths lists the routes reachable without a session.
	exactAllowedPaths = map[string]struct{}{
		"/":         {},
		"/login":    {},
		"/callback": {},
		"/logout":   {},
		"/health":   {},
	}
	prefixAllowedPaths = []string{"/assets", "/static", "/debug/pprof"}
)

func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewAuthHandler(config *cfg.Properties) *AuthHandler {
	handler := &AuthHandler{
		ClientID:          config.Auth.ID,
		Domain:            config.Auth.Domain,
		LogoutRedirect:    config.Auth.LogoutRedirect,
		IDTokenCookieName: config.Auth.IDTokenCookieName,
		CookieDomain:      config.Auth.CookieDomain,
	}

	provider, err := oidc.NewProvider(context.Background(), config.Auth.IssuerURL)
	if err != nil {
		log.Error().Err(err).Str("issuer", config.Auth.IssuerURL).Msg("could not create OIDC provider")
		return handler
	}
	handler.oidcProvider = provider
	handler.AuthConfig = &oauth2.Config{
		ClientID:     config.Auth.ID,
		ClientSecret: config.Auth.Secret,
		RedirectURL:  config.Auth.Redirect,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	return handler
}

func (a *AuthHandler) GetHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (a *AuthHandler) Login(c *gin.Context) {
	if a.AuthConfig == nil {
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"message": "authentication is not configured"})
		return
	}
	a.oauthStateString, _ = randString(16)
	c.Redirect(http.StatusFound, a.AuthConfig.AuthCodeURL(a.oauthStateString))
}

func (a *AuthHandler) Callback(c *gin.Context) {
	if a.AuthConfig == nil {
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"message": "authentication is not configured"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state != a.oauthStateString {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "no current state found"})
		return
	}

	token, err := a.AuthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "Error getting access token: " + err.Error()})
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "No ID token found in request to /callback"})
		return
	}

	c.SetCookie(a.IDTokenCookieName, rawIDToken, 3600, "/", a.CookieDomain, false, true)
	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session cookie and sends the browser through the hosted
// UI logout so the upstream session dies too.
func (a *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(a.IDTokenCookieName, "", -1, "/", a.CookieDomain, false, true)
	if a.Domain == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("https://%s/logout?client_id=%s&logout_uri=%s",
		a.Domain, a.ClientID, url.QueryEscape(a.LogoutRedirect)))
}

func (a *AuthHandler) Account(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		c.IndentedJSON(http.StatusUnauthorized, gin.H{"message": "No session found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{
		"username": claims.Username(),
		"email":    claims.Email(),
		"approved": claims.Approved(),
		"splitbox": claims.SplitBoxMember(),
	}})
}

// claims verifies the session cookie and returns the token claims, or false
// when there is no usable session.
func (a *AuthHandler) claims(c *gin.Context) (app.UserClaims, bool) {
	if a.oidcProvider == nil {
		return nil, false
	}
	cookie, err := c.Cookie(a.IDTokenCookieName)
	if err != nil || cookie == "" {
		return nil, false
	}

	verifier := a.oidcProvider.Verifier(&oidc.Config{ClientID: a.ClientID})
	idToken, err := verifier.Verify(c.Request.Context(), cookie)
	if err != nil {
		log.Debug().Err(err).Msg("could not verify ID token")
		return nil, false
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, false
	}
	return app.UserClaims(claims), true
}

// RequireLogin gates everything outside the allow-list behind a verified,
// approved session. Unauthorized requests are bounced to /login.
func (a *AuthHandler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := exactAllowedPaths[path]; ok {
			c.Next()
			return
		}
		for _, prefix := range prefixAllowedPaths {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		claims, ok := a.claims(c)
		if !ok || !claims.Approved() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set("user", claims)
		c.Next()
	}
}

func currentClaims(c *gin.Context) app.UserClaims {
	if value, ok := c.Get("user"); ok {
		if claims, ok := value.(app.UserClaims); ok {
			return claims
		}
	}
	return nil
}
