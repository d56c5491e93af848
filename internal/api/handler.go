package api

import (
	"bytes"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/export"
	"bookshop-pos/internal/service"
	"bookshop-pos/internal/util"
	"bookshop-pos/web"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the HTTP layer
type Options struct {
	AdminToken     string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler contains HTTP handlers
type Handler struct {
	inventoryService *service.InventoryService
	opts             Options
	logger           *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(inventoryService *service.InventoryService, opts Options) *Handler {
	return &Handler{
		inventoryService: inventoryService,
		opts:             opts,
		logger:           util.GetLogger(),
	}
}

var registerValidators sync.Once

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
				h.logger.Error("Failed to register notblank validator", zap.Error(err))
			}
		}
	})

	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", h.index)
	router.StaticFS("/static", http.FS(web.Static()))

	api := router.Group("/api")
	api.Use(rateLimiter(h.opts.RateLimitRPS, h.opts.RateLimitBurst))
	api.Use(requestTimeout(h.opts.RequestTimeout))
	{
		api.GET("/data", h.getData)
		api.GET("/catalog", h.getCatalog)
		api.POST("/books", h.adjustStock)
		api.POST("/transactions", h.recordTransaction)

		api.GET("/export/books.csv", h.exportBooks)
		api.GET("/export/transactions.csv", h.exportTransactions)

		admin := api.Group("")
		admin.Use(adminAuth(h.opts.AdminToken))
		{
			admin.PUT("/books/:id", h.setBookQuantity)
			admin.DELETE("/transactions/:id", h.deleteTransaction)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.inventoryService.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"details": err.Error(),
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// index serves the client application
func (h *Handler) index(c *gin.Context) {
	page, err := fs.ReadFile(web.Static(), "index.html")
	if err != nil {
		respondError(c, "Client unavailable", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// getData returns the full snapshot
func (h *Handler) getData(c *gin.Context) {
	snap, err := h.inventoryService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to load data", err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// getCatalog returns the title/price table
func (h *Handler) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventoryService.Catalog())
}

// adjustStock handles additions and sales against a title
func (h *Handler) adjustStock(c *gin.Context) {
	var req service.AdjustStockRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.inventoryService.AdjustStock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to update book", err)
		return
	}

	message := "Book quantity updated"
	if resp.Created {
		message = "Book added"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"book":    resp.Book,
	})
}

// recordTransaction appends a ledger entry
func (h *Handler) recordTransaction(c *gin.Context) {
	var req service.RecordTransactionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	tx, err := h.inventoryService.RecordTransaction(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to record transaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction recorded",
		"id":          tx.ID,
		"transaction": tx,
	})
}

// setBookQuantity overwrites a book's quantity by id
func (h *Handler) setBookQuantity(c *gin.Context) {
	id, ok := parseID(c, "Invalid book ID")
	if !ok {
		return
	}

	var req service.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	book, err := h.inventoryService.SetQuantity(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "Failed to update book", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book quantity updated",
		"book":    book,
	})
}

// deleteTransaction removes a ledger entry by id
func (h *Handler) deleteTransaction(c *gin.Context) {
	id, ok := parseID(c, "Invalid transaction ID")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete transaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction deleted",
	})
}

// exportBooks streams the book list as CSV
func (h *Handler) exportBooks(c *gin.Context) {
	snap, err := h.inventoryService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to export books", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Books(&buf, snap.Books); err != nil {
		respondError(c, "Failed to export books", err)
		return
	}
	writeCSV(c, "books.csv", buf.Bytes())
}

// exportTransactions streams the ledger as CSV
func (h *Handler) exportTransactions(c *gin.Context) {
	snap, err := h.inventoryService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to export transactions", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Transactions(&buf, snap.Transactions); err != nil {
		respondError(c, "Failed to export transactions", err)
		return
	}
	writeCSV(c, "transactions.csv", buf.Bytes())
}

func writeCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func parseID(c *gin.Context, summary string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, summary, errs.Validation("id must be an integer"))
		return 0, false
	}
	return id, true
}
