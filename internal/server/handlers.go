// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hagnberger/researchlens/internal/jobs"
	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/types"
)

const (
	defaultNumberArticles = 10
	defaultCategories     = "cs,math"
	defaultPageSize       = 10
	maxPageSize           = 100
	relatedLimit          = 10
)

// paperResponse is the wire shape of one paper. PublishedDate is null
// when the feed entry carried no date.
type paperResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Keywords      []string `json:"keywords"`
	Authors       []string `json:"authors"`
	Link          string   `json:"link"`
	Categories    string   `json:"categories"`
	PublishedDate *string  `json:"published_date"`
}

func serializePaper(p *types.Paper) paperResponse {
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		authors = append(authors, a.Name)
	}
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	var published *string
	if p.PublishedDate != "" {
		published = &p.PublishedDate
	}
	return paperResponse{
		ID:            p.ID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Keywords:      keywords,
		Authors:       authors,
		Link:          p.Link,
		Categories:    p.Categories,
		PublishedDate: published,
	}
}

func serializePapers(papers []*types.Paper) []paperResponse {
	out := make([]paperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, serializePaper(p))
	}
	return out
}

func (s *Server) handleHealthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleFetch queues a background ingestion run. The request is
// acknowledged as soon as the job is accepted; progress is visible only
// in the logs and in the growing catalog.
func (s *Server) handleFetch(c *gin.Context) {
	numberArticles := defaultNumberArticles
	if raw := c.Query("number_articles"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "number_articles must be a positive integer",
			})
			return
		}
		numberArticles = n
	}

	categories := splitCategories(c.DefaultQuery("categories", defaultCategories))
	if len(categories) == 0 {
		categories = splitCategories(defaultCategories)
	}

	jobID, err := s.queue.Submit("ingest", func(ctx context.Context) error {
		_, err := s.runner.Run(ctx, numberArticles, categories)
		return err
	})
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "error",
				"message": "too many pending ingestion jobs, try again later",
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": err.Error()})
		return
	}

	s.log.Info("ingestion triggered",
		"job_id", jobID, "number_articles", numberArticles, "categories", categories)
	c.JSON(http.StatusOK, gin.H{"status": "Data fetching and preprocessing started"})
}

func (s *Server) handleListPapers(c *gin.Context) {
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := intQuery(c, "page_size", defaultPageSize)
	if !ok {
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, papers, err := s.store.ListPage(c.Request.Context(), store.ListOptions{
		Page:       page,
		PageSize:   pageSize,
		Search:     c.Query("search"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Categories: splitCategories(c.Query("categories")),
	})
	if err != nil {
		s.log.Error("paper listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not list papers"})
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"current_page": page,
		"total_pages":  totalPages,
		"total_items":  total,
		"results":      serializePapers(papers),
	})
}

// handleRelatedPapers returns the nearest neighbors of a paper by
// embedding distance. An unknown id or a paper without an embedding
// yields an empty result set rather than an error.
func (s *Server) handleRelatedPapers(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "paper id must be an integer"})
		return
	}

	papers, err := s.store.NearestNeighbors(c.Request.Context(), id, relatedLimit)
	if err != nil {
		s.log.Error("related paper lookup failed", "paper_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not find related papers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": serializePapers(papers),
	})
}

// intQuery parses a positive integer query parameter, writing a 400
// response and returning ok=false on a malformed value.
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": name + " must be a positive integer",
		})
		return 0, false
	}
	return n, true
}

func splitCategories(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
