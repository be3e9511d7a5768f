package routes

import (
	"net/http"

	"edu-learning-platform/internal/config"
	"edu-learning-platform/internal/telemetry"
	"edu-learning-platform/middleware"
	"edu-learning-platform/models"
	"edu-learning-platform/services"
	"edu-learning-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type runEvaluationRequest struct {
	DatasetID string `json:"dataset_id" binding:"required"`
}

// SetupEvaluationRoutes registers the evaluation harness endpoints. Runs are
// synchronous: the handler blocks until every batch has settled.
func SetupEvaluationRoutes(router *gin.Engine, cfg *config.Config, evaluation *services.EvaluationService, authMiddleware *middleware.AuthMiddleware, metrics *telemetry.Metrics) {
	evals := router.Group("/evaluations")
	evals.Use(authMiddleware.RequireAuth())

	evals.POST("/datasets", func(c *gin.Context) {
		var req models.CreateDatasetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if len(req.Questions) == 0 {
			utils.RespondWithBadRequest(c, "Dataset needs at least one question", nil)
			return
		}

		userID := middleware.GetUserID(c)
		datasetID, err := evaluation.CreateDataset(c.Request.Context(), userID, req)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"dataset_id": datasetID.Hex(),
			"questions":  len(req.Questions),
		})
	})

	evals.POST("/run", func(c *gin.Context) {
		var req runEvaluationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		datasetID, err := primitive.ObjectIDFromHex(req.DatasetID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid dataset ID format", nil)
			return
		}

		userID := middleware.GetUserID(c)
		resp, err := evaluation.Run(c.Request.Context(), userID, datasetID)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		if metrics != nil {
			for _, result := range resp.Results {
				if result.Passed {
					metrics.RecordEvaluationOutcome("passed")
				} else {
					metrics.RecordEvaluationOutcome("failed")
				}
			}
			for range resp.Errors {
				metrics.RecordEvaluationOutcome("error")
			}
		}

		c.JSON(http.StatusOK, resp)
	})
}
