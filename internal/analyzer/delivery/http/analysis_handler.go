package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/analyzer/service"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"
	"smartstock-analyst/pkg/pdf"
	"smartstock-analyst/pkg/telegram"
	"smartstock-analyst/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// AnalysisHandler handles HTTP requests for stock analysis runs.
type AnalysisHandler struct {
	orchestrator service.Orchestrator
	renderer     pdf.ReportRenderer
	notifier     telegram.Notifier
	validate     *validator.Validate
	logger       *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(orchestrator service.Orchestrator, renderer pdf.ReportRenderer, notifier telegram.Notifier, logger *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		renderer:     renderer,
		notifier:     notifier,
		validate:     validator.New(),
		logger:       logger,
	}
}

// RegisterRoutes registers the analysis routes to the Echo group.
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Analyze)
	g.POST("/report", h.AnalyzeReport)
}

// Analyze godoc
// @Summary Run a stock analysis
// @Description Run the full analysis pipeline for a free-form question with an optional chart image
// @Tags analysis
// @Accept  mpfd
// @Produce  json
// @Param   question  formData  string  true   "Free-form question referencing a ticker"
// @Param   chart     formData  file    false  "Chart image (png or jpeg)"
// @Success 200 {object} dto.AnalysisResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /analysis [post]
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	record, pipelineErr := h.run(c)
	if pipelineErr != nil {
		return c.JSON(statusForKind(pipelineErr.Kind), dto.ErrorResponse{
			Kind:    string(pipelineErr.Kind),
			Message: pipelineErr.UserMessage(),
		})
	}

	return c.JSON(http.StatusOK, dto.AnalysisResponse{
		Record:  record,
		Partial: record.Partial(),
	})
}

// AnalyzeReport godoc
// @Summary Run a stock analysis and download the PDF report
// @Tags analysis
// @Accept  mpfd
// @Produce  application/pdf
// @Param   question  formData  string  true   "Free-form question referencing a ticker"
// @Param   chart     formData  file    false  "Chart image (png or jpeg)"
// @Success 200 {file} byte
// @Failure 400 {object} dto.ErrorResponse
// @Router /analysis/report [post]
func (h *AnalysisHandler) AnalyzeReport(c echo.Context) error {
	record, pipelineErr := h.run(c)
	if pipelineErr != nil {
		return c.JSON(statusForKind(pipelineErr.Kind), dto.ErrorResponse{
			Kind:    string(pipelineErr.Kind),
			Message: pipelineErr.UserMessage(),
		})
	}

	report, err := h.renderer.Render(record)
	if err != nil {
		h.logger.Error("Failed to render PDF report", logger.ErrorField(err), logger.StringField("symbol", record.Ticker.Symbol))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Kind:    "report_rendering_failure",
			Message: "The analysis completed but the report could not be rendered.",
		})
	}

	fileName := fmt.Sprintf("%s_analysis_report.pdf", record.Ticker.Symbol)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, "application/pdf", report)
}

func (h *AnalysisHandler) run(c echo.Context) (*entity.AnalysisRecord, *entity.PipelineError) {
	req := dto.AnalyzeRequest{Question: c.FormValue("question")}
	if err := h.validate.Struct(&req); err != nil {
		return nil, entity.NewPipelineError(entity.FailureExtraction, fmt.Errorf("invalid request payload: %w", err))
	}

	userReq := entity.UserRequest{Question: req.Question}
	if fileHeader, err := c.FormFile("chart"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, entity.NewPipelineError(entity.FailureUnsupportedImage, fmt.Errorf("failed to open uploaded chart: %w", err))
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			return nil, entity.NewPipelineError(entity.FailureUnsupportedImage, fmt.Errorf("failed to read uploaded chart: %w", err))
		}
		userReq.Image = image
		userReq.ImageMediaType = fileHeader.Header.Get("Content-Type")
	}

	record, err := h.orchestrator.Run(c.Request().Context(), userReq)
	if err != nil {
		var pipelineErr *entity.PipelineError
		if !errors.As(err, &pipelineErr) {
			pipelineErr = entity.NewPipelineError(entity.FailureProviderUnavailable, err)
		}
		utils.GoSafe(func() {
			if notifyErr := h.notifier.SendMessage(telegram.FormatErrorAlertMessage(time.Now().UTC(), pipelineErr.Error())); notifyErr != nil {
				h.logger.Warn("Failed to send telegram error alert", logger.ErrorField(notifyErr))
			}
		})
		return nil, pipelineErr
	}

	utils.GoSafe(func() {
		if notifyErr := h.notifier.SendMessage(telegram.FormatAnalysisMessage(record)); notifyErr != nil {
			h.logger.Warn("Failed to send telegram notification", logger.ErrorField(notifyErr))
		}
	})

	return record, nil
}

func statusForKind(kind entity.FailureKind) int {
	switch kind {
	case entity.FailureExtraction:
		return http.StatusUnprocessableEntity
	case entity.FailureInvalidTicker:
		return http.StatusNotFound
	case entity.FailureUnsupportedImage:
		return http.StatusBadRequest
	case entity.FailureProviderUnavailable, entity.FailureDataUnavailable:
		return http.StatusServiceUnavailable
	case entity.FailureModelMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
