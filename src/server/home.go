package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "dashlab/src/app"
)

// ProjectCard is one entry on the landing page, with its access status
// resolved against the visitor's claims.
type ProjectCard struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Href        string `json:"href"`
	Status      string `json:"status"`
	StatusColor string `json:"status_color"`
	Enabled     bool   `json:"enabled"`
}

type projectRule struct {
	key         string
	title       string
	description string
	href        string
	requireAuth bool
	granted     func(app.UserClaims) bool
}

var projectRules = []projectRule{
	{
		key:         "slides",
		title:       "Slides Gallery",
		description: "Published slide decks, with PDF and PPTX downloads.",
		href:        "/slides-gallery",
	},
	{
		key:         "splitbox",
		title:       "SplitBox",
		description: "Split audio tracks into stems and inspect the analysis.",
		href:        "/splitbox/split",
		requireAuth: true,
		granted:     app.UserClaims.SplitBoxMember,
	},
	{
		key:         "file-explorer",
		title:       "File Explorer",
		description: "Browse, upload and organize files across buckets.",
		href:        "/file-explorer/buckets",
		requireAuth: true,
		granted:     app.UserClaims.Approved,
	},
	{
		key:         "gallery",
		title:       "Gallery",
		description: "Media gallery with a map of geotagged photos.",
		href:        "/gallery/files",
		requireAuth: true,
		granted:     app.UserClaims.Approved,
	},
}

// BuildProjectCards resolves every project's status for the given claims.
// Anonymous visitors get nil claims.
func BuildProjectCards(claims app.UserClaims) []ProjectCard {
	cards := make([]ProjectCard, 0, len(projectRules))
	for _, rule := range projectRules {
		card := ProjectCard{
			Key:         rule.key,
			Title:       rule.title,
			Description: rule.description,
			Href:        rule.href,
		}
		switch {
		case !rule.requireAuth:
			card.Status, card.StatusColor, card.Enabled = "Always available", "secondary", true
		case claims == nil:
			card.Status, card.StatusColor = "Need authorization", "warning"
		case rule.granted(claims):
			card.Status, card.StatusColor, card.Enabled = "Access granted", "success", true
		default:
			card.Status, card.StatusColor = "Need authorization", "warning"
		}
		cards = append(cards, card)
	}
	return cards
}

// Home is public: anonymous visitors see the cards with access statuses,
// not a redirect.
func (a *AuthHandler) Home(c *gin.Context) {
	claims, _ := a.claims(c)
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{
		"cards":     BuildProjectCards(claims),
		"logged_in": claims != nil,
	}})
}
