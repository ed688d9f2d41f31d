// Package handler provides the HTTP handlers of the bookrag service.
//
// Business failures never change the status code: every handler answers 200 and
// carries the failure as text in its usual payload field.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/bookrag/internal/bookrag/biz"
	applogger "github.com/kart-io/bookrag/pkg/infra/logger"
	"github.com/kart-io/bookrag/pkg/utils/validator"
)

// HealthMessage is returned by GET /.
const HealthMessage = "Brain is Online"

// Assistant is the business service behind the handlers.
type Assistant interface {
	Query(ctx context.Context, question string) (*biz.QueryResult, error)
	Translate(ctx context.Context, text string) (string, error)
	Personalize(ctx context.Context, text, hardware string) (string, error)
}

var _ Assistant = (*biz.RAGService)(nil)

// Handler handles bookrag HTTP requests.
type Handler struct {
	assistant Assistant
}

// NewHandler creates a new Handler.
func NewHandler(assistant Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of HEAD /.
type StatusResponse struct {
	Status string `json:"status"`
}

// ChatRequest represents a question about the book.
type ChatRequest struct {
	Question string `json:"question" binding:"notblank"`
}

// ChatResponse carries the answer, or a user-facing explanation on failure.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// TranslateRequest represents a translation request.
type TranslateRequest struct {
	Text string `json:"text" binding:"notblank"`
}

// TranslateResponse carries the Urdu translation.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// PersonalizeRequest represents a hardware-targeted rewrite request.
type PersonalizeRequest struct {
	Text     string `json:"text" binding:"notblank"`
	Hardware string `json:"hardware" binding:"required,oneof=cpu gpu"`
}

// PersonalizeResponse carries the rewritten text.
type PersonalizeResponse struct {
	PersonalizedText string `json:"personalized_text"`
}

// Health reports that the service is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Message: HealthMessage})
}

// Status answers HEAD requests from uptime monitors.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Chat answers a question from the indexed book content.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logInvalid(c, err)
		c.JSON(http.StatusOK, ChatResponse{Answer: biz.ValidationAnswer})
		return
	}

	result, err := h.assistant.Query(c.Request.Context(), req.Question)
	if err != nil {
		c.JSON(http.StatusOK, ChatResponse{Answer: biz.ErrorAnswer(err)})
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Answer: result.Answer})
}

// Translate translates text to Urdu.
func (h *Handler) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logInvalid(c, err)
		c.JSON(http.StatusOK, TranslateResponse{TranslatedText: biz.TranslationFailedAnswer})
		return
	}

	out, err := h.assistant.Translate(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusOK, TranslateResponse{TranslatedText: biz.TranslationFailedAnswer})
		return
	}
	c.JSON(http.StatusOK, TranslateResponse{TranslatedText: out})
}

// Personalize rewrites text for the reader's hardware.
func (h *Handler) Personalize(c *gin.Context) {
	var req PersonalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logInvalid(c, err)
		msg := validator.Global().Translate(err, requestLang(c)).First()
		c.JSON(http.StatusOK, PersonalizeResponse{PersonalizedText: "Error: " + msg})
		return
	}

	out, err := h.assistant.Personalize(c.Request.Context(), req.Text, req.Hardware)
	if err != nil {
		c.JSON(http.StatusOK, PersonalizeResponse{PersonalizedText: "Error: " + biz.ErrorAnswer(err)})
		return
	}
	c.JSON(http.StatusOK, PersonalizeResponse{PersonalizedText: out})
}

func (h *Handler) logInvalid(c *gin.Context, err error) {
	applogger.GetLogger(c.Request.Context()).Infow("invalid request",
		"path", c.FullPath(),
		"error", err.Error(),
	)
}

// requestLang picks the validation message language from Accept-Language.
func requestLang(c *gin.Context) string {
	if strings.HasPrefix(strings.ToLower(c.GetHeader("Accept-Language")), validator.LangZH) {
		return validator.LangZH
	}
	return validator.LangEN
}
