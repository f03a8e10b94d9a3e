package huggingface

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/server"
)

// Handlers serves the Hugging Face native routes. Either router may be nil.
type Handlers struct {
	embeddings *EmbeddingsRouter
	asr        *ASRRouter
}

// NewHandlers creates the route handlers.
func NewHandlers(embeddings *EmbeddingsRouter, asr *ASRRouter) *Handlers {
	return &Handlers{embeddings: embeddings, asr: asr}
}

// Register mounts POST /embed and POST /predict.
func (h *Handlers) Register(r gin.IRoutes) {
	if h.embeddings != nil {
		r.POST("/embed", h.Embed)
	}
	if h.asr != nil {
		r.POST("/predict", h.Predict)
	}
}

// Embed handles POST /embed.
func (h *Handlers) Embed(c *gin.Context) {
	var req EmbeddingsRequest
	if err := server.DecodeJSON(c.Request, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	resp, err := h.embeddings.Route(ctx, dispatch.FromContextOrNew(ctx), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Predict handles POST /predict.
func (h *Handlers) Predict(c *gin.Context) {
	var req ASRRequest
	if err := server.DecodeJSON(c.Request, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := req.Decode(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	resp, err := h.asr.Route(ctx, dispatch.FromContextOrNew(ctx), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
