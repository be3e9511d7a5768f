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
)

// SetupQueryRoutes registers the grounded question-answering endpoint plus
// the conversation and citation read paths.
func SetupQueryRoutes(router *gin.Engine, cfg *config.Config, query *services.QueryService, citations *services.CitationService, conversations services.ConversationStore, authMiddleware *middleware.AuthMiddleware, metrics *telemetry.Metrics) {
	authed := router.Group("/")
	authed.Use(authMiddleware.RequireAuth())

	authed.POST("/query", func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		if userID == "" {
			utils.RespondWithUnauthorized(c, "User ID required")
			return
		}

		resp, err := query.Answer(c.Request.Context(), userID, req)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		if metrics != nil {
			metrics.RecordTokensUsed(int64(resp.Metadata.InputTokens+resp.Metadata.OutputTokens), cfg.LLMModel)
		}

		c.JSON(http.StatusOK, resp)
	})

	authed.GET("/conversations/:id", func(c *gin.Context) {
		conversationID := c.Param("id")
		userID := middleware.GetUserID(c)

		messages, err := conversations.AllMessages(c.Request.Context(), conversationID)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}
		if len(messages) == 0 {
			utils.RespondWithNotFound(c, "Conversation not found")
			return
		}

		// Conversations belong to the learner who started them.
		if messages[0].UserID != userID && middleware.GetRole(c) != middleware.RoleAdmin {
			utils.RespondWithNotFound(c, "Conversation not found")
			return
		}

		history := models.ConversationHistory{
			ConversationID: conversationID,
			Messages:       messages,
			CreatedAt:      messages[0].Timestamp,
			UpdatedAt:      messages[len(messages)-1].Timestamp,
		}
		for _, msg := range messages {
			history.TotalTokens += msg.TokenCost
		}

		c.JSON(http.StatusOK, history)
	})

	authed.GET("/queries/:id/citations", func(c *gin.Context) {
		queryID := c.Param("id")
		if queryID == "" {
			utils.RespondWithBadRequest(c, "Query ID required", nil)
			return
		}

		rows, err := citations.CitationsForQuery(c.Request.Context(), queryID)
		if err != nil {
			utils.RespondWithKnowledgeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"query_id":  queryID,
			"citations": rows,
			"count":     len(rows),
		})
	})
}
