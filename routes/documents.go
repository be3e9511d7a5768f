package routes

import (
	"net/http"

	"edu-learning-platform/internal/config"
	"edu-learning-platform/internal/logger"
	"edu-learning-platform/internal/queue"
	"edu-learning-platform/internal/telemetry"
	"edu-learning-platform/middleware"
	"edu-learning-platform/models"
	"edu-learning-platform/services"
	"edu-learning-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetupDocumentRoutes registers the document ingestion and management
// endpoints. Content above the sync processing limit is queued for the
// background worker instead of being chunked inline.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, ingestion *services.IngestionService, documents services.DocumentStore, queueClient *asynq.Client, authMiddleware *middleware.AuthMiddleware, metrics *telemetry.Metrics) {
	docs := router.Group("/documents")
	docs.Use(authMiddleware.RequireAuth())

	docs.POST("", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		if userID == "" {
			utils.RespondWithUnauthorized(c, "User ID required")
			return
		}

		visibility := req.Visibility
		if visibility == "" {
			visibility = models.VisibilityPrivate
		}

		ownerID := userID
		if visibility == models.VisibilitySystem {
			if middleware.GetRole(c) != middleware.RoleAdmin {
				utils.RespondWithError(c, http.StatusForbidden, utils.ErrAuth, "Only admins can ingest system content", nil)
				return
			}
			ownerID = ""
		}

		// Large uploads go through the worker so the request doesn't
		// block on hundreds of embedding calls.
		if int64(len(req.Content)) > cfg.SyncProcessingLimit {
			doc, err := ingestion.CreatePending(c.Request.Context(), req.Title, ownerID, visibility)
			if err != nil {
				utils.RespondWithKnowledgeError(c, err)
				return
			}

			task, err := queue.NewIngestTask(doc.ID.Hex(), req.Content)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
				return
			}
			if _, err := queueClient.Enqueue(task); err != nil {
				logger.Error("Failed to enqueue ingestion task", "document_id", doc.ID.Hex(), "error", err)
				utils.RespondWithInternalError(c, "Failed to queue document for processing", nil)
				return
			}

			logger.Info("Document queued for ingestion", "document_id", doc.ID.Hex(), "chars", len(req.Content))
			c.JSON(http.StatusAccepted, models.IngestResponse{
				DocumentID: doc.ID.Hex(),
				Status:     models.DocStatusPending,
			})
			return
		}

		doc, created, err := ingestion.Ingest(c.Request.Context(), req.Title, req.Content, ownerID, visibility)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		if metrics != nil {
			metrics.RecordChunksIngested(int64(created))
		}
		logger.Info("Document ingested", "document_id", doc.ID.Hex(), "chunks", created)

		c.JSON(http.StatusCreated, models.IngestResponse{
			DocumentID:    doc.ID.Hex(),
			ChunksCreated: created,
			Status:        doc.Status,
		})
	})

	docs.PUT("/:id", func(c *gin.Context) {
		doc, ok := loadManagedDocument(c, documents)
		if !ok {
			return
		}

		var req models.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if int64(len(req.Content)) > cfg.SyncProcessingLimit {
			task, err := queue.NewIngestTask(doc.ID.Hex(), req.Content)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
				return
			}
			if _, err := queueClient.Enqueue(task); err != nil {
				logger.Error("Failed to enqueue re-ingestion task", "document_id", doc.ID.Hex(), "error", err)
				utils.RespondWithInternalError(c, "Failed to queue document for processing", nil)
				return
			}
			c.JSON(http.StatusAccepted, models.IngestResponse{
				DocumentID: doc.ID.Hex(),
				Status:     models.DocStatusPending,
			})
			return
		}

		created, err := ingestion.Reingest(c.Request.Context(), doc.ID, req.Content)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		if metrics != nil {
			metrics.RecordChunksIngested(int64(created))
		}
		logger.Info("Document re-ingested", "document_id", doc.ID.Hex(), "chunks", created)

		c.JSON(http.StatusOK, models.IngestResponse{
			DocumentID:    doc.ID.Hex(),
			ChunksCreated: created,
			Status:        models.DocStatusReady,
		})
	})

	docs.DELETE("/:id", func(c *gin.Context) {
		doc, ok := loadManagedDocument(c, documents)
		if !ok {
			return
		}

		if err := ingestion.Delete(c.Request.Context(), doc.ID); err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		logger.Info("Document deleted", "document_id", doc.ID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "document_id": doc.ID.Hex()})
	})

	docs.GET("", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		list, err := documents.ListDocuments(c.Request.Context(), userID)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": list,
			"count":     len(list),
		})
	})

	docs.GET("/:id", func(c *gin.Context) {
		docID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid document ID format", nil)
			return
		}

		doc, err := documents.GetDocument(c.Request.Context(), docID)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		if !doc.VisibleTo(middleware.GetUserID(c)) {
			// Hide the document's existence from non-owners.
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		c.JSON(http.StatusOK, doc)
	})
}

// loadManagedDocument resolves the :id parameter and checks that the caller
// may modify the document: owners manage their own content, admins manage
// system content.
func loadManagedDocument(c *gin.Context, documents services.DocumentStore) (*models.Document, bool) {
	docID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid document ID format", nil)
		return nil, false
	}

	doc, err := documents.GetDocument(c.Request.Context(), docID)
	if err != nil {
		utils.RespondWithKnowledgeError(c, err)
		return nil, false
	}

	userID := middleware.GetUserID(c)
	role := middleware.GetRole(c)
	if doc.OwnerID != userID && role != middleware.RoleAdmin {
		utils.RespondWithNotFound(c, "Document not found")
		return nil, false
	}
	if doc.OwnerID == "" && role != middleware.RoleAdmin {
		utils.RespondWithNotFound(c, "Document not found")
		return nil, false
	}

	return doc, true
}
