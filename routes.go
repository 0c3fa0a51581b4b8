package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/models"
	"pharma-deck/services"
	"pharma-deck/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultAttempts  = 3
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// storeError übersetzt Store-Fehler in HTTP-Antworten.
func storeError(c *gin.Context, log *zap.Logger, what string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	log.Error("Datenbankfehler", zap.String("what", what), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func setupIngestRoutes(router *gin.Engine, svc *services.IngestService) {
	router.POST("/ingest", func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		res := svc.Ingest(c.Request.Context(), req.Name)
		switch {
		case res.OK:
			c.JSON(http.StatusOK, res)
		case res.NotFound():
			c.JSON(http.StatusNotFound, res)
		default:
			c.JSON(http.StatusInternalServerError, res)
		}
	})
}

// interactionView ist eine Interaktion aus Sicht einer Substanz.
type interactionView struct {
	ID               string  `json:"id"`
	OtherCompoundID  *string `json:"other_compound_id,omitempty"`
	OtherRxCUI       string  `json:"other_rxcui,omitempty"`
	OtherName        string  `json:"other_name"`
	Severity         string  `json:"severity"`
	Description      string  `json:"description"`
	Source           string  `json:"source"`
	ResolutionStatus string  `json:"resolution_status"`
}

func setupCompoundRoutes(router *gin.Engine, store *storage.Store, log *zap.Logger) {
	rg := router.Group("/compounds")

	rg.GET("", func(c *gin.Context) {
		limit := min(queryInt(c, "limit", defaultListLimit), maxListLimit)
		compounds, err := store.ListCompounds(c.Request.Context(), c.Query("status"), limit)
		if err != nil {
			storeError(c, log, "compounds", err)
			return
		}
		c.JSON(http.StatusOK, compounds)
	})

	rg.GET("/:rxcui", func(c *gin.Context) {
		compound, err := store.CompoundByRxCUI(c.Request.Context(), c.Param("rxcui"))
		if err != nil {
			storeError(c, log, "compound", err)
			return
		}
		c.JSON(http.StatusOK, compound)
	})

	rg.POST("/:rxcui/obsolete", func(c *gin.Context) {
		if err := store.MarkObsolete(c.Request.Context(), c.Param("rxcui")); err != nil {
			storeError(c, log, "compound", err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/:rxcui/card", func(c *gin.Context) {
		ctx := c.Request.Context()
		compound, err := store.CompoundByRxCUI(ctx, c.Param("rxcui"))
		if err != nil {
			storeError(c, log, "compound", err)
			return
		}
		card, err := store.CurrentCard(ctx, compound.ID)
		if err != nil {
			storeError(c, log, "card", err)
			return
		}
		c.JSON(http.StatusOK, card)
	})

	rg.GET("/:rxcui/history", func(c *gin.Context) {
		ctx := c.Request.Context()
		compound, err := store.CompoundByRxCUI(ctx, c.Param("rxcui"))
		if err != nil {
			storeError(c, log, "compound", err)
			return
		}
		cards, err := store.CardHistory(ctx, compound.ID)
		if err != nil {
			storeError(c, log, "card history", err)
			return
		}
		c.JSON(http.StatusOK, cards)
	})

	rg.GET("/:rxcui/targets", func(c *gin.Context) {
		ctx := c.Request.Context()
		compound, err := store.CompoundByRxCUI(ctx, c.Param("rxcui"))
		if err != nil {
			storeError(c, log, "compound", err)
			return
		}
		targets, err := store.TargetsFor(ctx, compound.ID)
		if err != nil {
			storeError(c, log, "targets", err)
			return
		}
		c.JSON(http.StatusOK, targets)
	})

	rg.GET("/:rxcui/interactions", func(c *gin.Context) {
		ctx := c.Request.Context()
		compound, err := store.CompoundByRxCUI(ctx, c.Param("rxcui"))
		if err != nil {
			storeError(c, log, "compound", err)
			return
		}
		edges, err := store.InteractionsFor(ctx, compound.ID)
		if err != nil {
			storeError(c, log, "interactions", err)
			return
		}

		var otherIDs []string
		for _, e := range edges {
			if id := otherSide(e, compound.ID); id != nil {
				otherIDs = append(otherIDs, *id)
			}
		}
		others, err := store.CompoundsByIDs(ctx, otherIDs)
		if err != nil {
			storeError(c, log, "interaction partners", err)
			return
		}

		views := make([]interactionView, 0, len(edges))
		for _, e := range edges {
			v := interactionView{
				ID:               e.ID,
				OtherCompoundID:  otherSide(e, compound.ID),
				OtherName:        e.OtherDrugRawName,
				Severity:         e.Severity,
				Description:      e.Description,
				Source:           e.Source,
				ResolutionStatus: e.ResolutionStatus,
			}
			if v.OtherCompoundID != nil {
				if other, ok := others[*v.OtherCompoundID]; ok {
					v.OtherName = other.CanonicalName
					v.OtherRxCUI = other.RxCUI
				}
			}
			views = append(views, v)
		}
		c.JSON(http.StatusOK, views)
	})
}

// otherSide liefert die ID des Partners oder nil bei unaufgelösten Kanten.
func otherSide(e models.CompoundInteraction, compoundID string) *string {
	if e.CompoundBID == nil {
		return nil
	}
	if e.CompoundAID == compoundID {
		return e.CompoundBID
	}
	return &e.CompoundAID
}

func setupCardRoutes(router *gin.Engine, store *storage.Store, log *zap.Logger) {
	router.GET("/cards/:slug", func(c *gin.Context) {
		card, err := store.CardBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			storeError(c, log, "card", err)
			return
		}
		c.JSON(http.StatusOK, card)
	})
}

func setupQueueRoutes(router *gin.Engine, store *storage.Store, log *zap.Logger) {
	rg := router.Group("/queue")

	// Erwartet CSV im Body oder als Formular-Datei "file".
	rg.POST("/seed", func(c *gin.Context) {
		body := c.Request.Body
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			file, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
				return
			}
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
				return
			}
			defer f.Close()
			body = f
		}

		items, err := services.ParseQueueCSV(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := store.SeedQueue(c.Request.Context(), items)
		if err != nil {
			storeError(c, log, "queue", err)
			return
		}
		log.Info("Queue befüllt", zap.Int("items", n))
		c.JSON(http.StatusOK, gin.H{"seeded": n})
	})

	rg.POST("/requeue", func(c *gin.Context) {
		n, err := store.RequeueErrors(c.Request.Context(), queryInt(c, "max_attempts", defaultAttempts))
		if err != nil {
			storeError(c, log, "queue", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requeued": n})
	})

	rg.GET("/stats", func(c *gin.Context) {
		stats, err := store.QueueStats(c.Request.Context())
		if err != nil {
			storeError(c, log, "queue", err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}
