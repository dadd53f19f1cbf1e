package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	cfg "dashlab/src/configuration"
)

type (
	SlidesHandler struct {
		baseURL    string
		extraDecks []string
		client     *http.Client
	}

	SlideDeck struct {
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
		PDFURL  string `json:"pdf_url"`
		PPTXURL string `json:"pptx_url"`
	}
)

func NewSlidesHandler(props cfg.SlidesProperties) *SlidesHandler {
	baseURL := props.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &SlidesHandler{
		baseURL:    baseURL,
		extraDecks: props.ExtraDecks,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// fetchDecks scrapes the published index page for deck links. Only .html
// hrefs count; each deck gets derived PDF and PPTX download links.
func (s *SlidesHandler) fetchDecks() ([]SlideDeck, error) {
	resp, err := s.client.Get(s.baseURL + "index.html")
	if err != nil {
		return nil, fmt.Errorf("fetch slides index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch slides index: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse slides index: %w", err)
	}

	decks := make([]SlideDeck, 0)
	doc.Find("ul li a").Each(func(_ int, selection *goquery.Selection) {
		href, ok := selection.Attr("href")
		if !ok || !strings.HasSuffix(href, ".html") {
			return
		}
		name := strings.TrimSuffix(href, ".html")
		title := selection.Text()
		if strings.TrimSpace(title) == "" {
			title = name
		}
		decks = append(decks, SlideDeck{
			Title:   strings.TrimSpace(title),
			HTMLURL: s.baseURL + href,
			PDFURL:  s.baseURL + name + ".pdf",
			PPTXURL: s.baseURL + name + ".pptx",
		})
	})
	return decks, nil
}

// GetSlides returns the published decks plus any extra configured ones. A
// failed scrape degrades to an empty list with a message rather than an
// error status.
func (s *SlidesHandler) GetSlides(c *gin.Context) {
	decks, err := s.fetchDecks()
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch slide decks")
		c.JSON(http.StatusOK, gin.H{"status": "success", "payload": []SlideDeck{},
			"message": "Slide decks are temporarily unavailable."})
		return
	}
	for _, name := range s.extraDecks {
		if name = strings.TrimSpace(name); name != "" {
			decks = append(decks, SlideDeck{Title: name, HTMLURL: s.baseURL + name + ".html"})
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": decks})
}
