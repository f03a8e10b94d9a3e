package openai

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/sse"
)

// Handlers serves the OpenAI-compatible routes. Either router may be nil
// when the binary does not serve that task.
type Handlers struct {
	embeddings    *EmbeddingsRouter
	transcription *TranscriptionRouter
}

// NewHandlers creates the route handlers.
func NewHandlers(embeddings *EmbeddingsRouter, transcription *TranscriptionRouter) *Handlers {
	return &Handlers{embeddings: embeddings, transcription: transcription}
}

// Register mounts the routes under /v1 and at the root, as OpenAI clients
// differ on whether the base URL carries the version.
func (h *Handlers) Register(r gin.IRoutes) {
	for _, prefix := range []string{"/v1", ""} {
		if h.embeddings != nil {
			r.POST(prefix+"/embeddings", h.Embeddings)
		}
		if h.transcription != nil {
			r.POST(prefix+"/audio/transcriptions", h.Transcriptions)
		}
	}
}

// Embeddings handles POST /v1/embeddings.
func (h *Handlers) Embeddings(c *gin.Context) {
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

// Transcriptions handles POST /v1/audio/transcriptions.
func (h *Handlers) Transcriptions(c *gin.Context) {
	req, err := ParseTranscriptionRequest(c.Request)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	resp, err := h.transcription.Route(ctx, dispatch.FromContextOrNew(ctx), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	if resp.Stream {
		writeStream(c, resp)
		return
	}
	switch body := resp.Body().(type) {
	case string:
		c.String(http.StatusOK, body)
	default:
		c.JSON(http.StatusOK, body)
	}
}

func writeStream(c *gin.Context, resp TranscriptionResponse) {
	w, err := sse.NewWriter(c.Writer)
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	log := logger.WithContext(c.Request.Context())
	for _, event := range resp.Events() {
		if err := w.Send(event); err != nil {
			log.Warn("Transcription stream interrupted", logger.Fields(
				logger.FieldError, err.Error(),
				"events_sent", w.Events(),
			))
			return
		}
	}
}
