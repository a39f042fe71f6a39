package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pvaldes/stockfolio/internal/domain"
	"github.com/pvaldes/stockfolio/internal/server/middleware"
)

// PortfolioService defines the methods the portfolio handler requires.
type PortfolioService interface {
	Portfolio(ctx context.Context, accountID string) (domain.PortfolioReport, error)
	Analytics(ctx context.Context, accountID string) (domain.AnalyticsReport, error)
}

// PortfolioHandler serves the portfolio and analytics report endpoints.
type PortfolioHandler struct {
	portfolios PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and logger.
func NewPortfolioHandler(portfolios PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, logger: logger}
}

// Portfolio returns the holdings report for the authenticated account.
// GET /api/portfolio
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	report, err := h.portfolios.Portfolio(r.Context(), accountID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: portfolio report failed",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Analytics returns the aggregate analytics report for the authenticated
// account.
// GET /api/analytics
func (h *PortfolioHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	report, err := h.portfolios.Analytics(r.Context(), accountID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: analytics report failed",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
