package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

type createPositionRequest struct {
	Symbol                  string          `json:"symbol"`
	Strategy                string          `json:"strategy"`
	StrikePrice             decimal.Decimal `json:"strike_price"`
	ExpirationDate          string          `json:"expiration_date"`
	PremiumReceived         decimal.Decimal `json:"premium_received"`
	ContractsCount          int             `json:"contracts_count"`
	UnderlyingPriceAtEntry  decimal.Decimal `json:"underlying_price_at_entry"`
	Notes                   string          `json:"notes"`
	PreTradeThesis          string          `json:"pre_trade_thesis"`
	MarketConditionsAtEntry string          `json:"market_conditions_at_entry"`
}

type editPositionRequest struct {
	Symbol                  *string          `json:"symbol"`
	Strategy                *string          `json:"strategy"`
	StrikePrice             *decimal.Decimal `json:"strike_price"`
	ExpirationDate          *string          `json:"expiration_date"`
	PremiumReceived         *decimal.Decimal `json:"premium_received"`
	ContractsCount          *int             `json:"contracts_count"`
	UnderlyingPriceAtEntry  *decimal.Decimal `json:"underlying_price_at_entry"`
	Notes                   *string          `json:"notes"`
	PreTradeThesis          *string          `json:"pre_trade_thesis"`
	MarketConditionsAtEntry *string          `json:"market_conditions_at_entry"`
	LessonsLearned          *string          `json:"lessons_learned"`
}

type closePositionRequest struct {
	Method             string          `json:"method"`
	ClosingPremiumPaid decimal.Decimal `json:"closing_premium_paid"`
	AssignmentPrice    decimal.Decimal `json:"assignment_price"`
	LessonsLearned     string          `json:"lessons_learned"`
}

type rollRequest struct {
	ClosingPremiumPaid decimal.Decimal `json:"closing_premium_paid"`
	NewStrike          decimal.Decimal `json:"new_strike_price"`
	NewExpiration      string          `json:"new_expiration_date"`
	NewPremiumReceived decimal.Decimal `json:"new_premium_received"`
}

func (req rollRequest) terms() (models.RollTerms, error) {
	expiration, err := parseDate("new_expiration_date", req.NewExpiration)
	if err != nil {
		return models.RollTerms{}, err
	}
	return models.RollTerms{
		ClosingPremiumPaid: req.ClosingPremiumPaid,
		NewStrike:          req.NewStrike,
		NewExpiration:      expiration,
		NewPremiumReceived: req.NewPremiumReceived,
	}, nil
}

type rollResponse struct {
	Predecessor *models.Position `json:"predecessor"`
	Successor   *models.Position `json:"successor"`
}

// ListPositions handles GET /positions?status=&symbol=&limit=
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	positions, err := h.store.ListPositions(r.Context(), models.PositionFilter{
		OwnerEmail: user.Email,
		Status:     r.URL.Query().Get("status"),
		Symbol:     strings.TrimSpace(r.URL.Query().Get("symbol")),
		Limit:      limit,
	})
	if err != nil {
		h.respondError(w, r, &models.DependencyError{Op: "list positions", Err: err})
		return
	}
	if positions == nil {
		positions = []*models.Position{}
	}
	respondJSON(w, http.StatusOK, positions)
}

// GetPosition handles GET /positions/{id}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	p, err := h.positions.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// CreatePosition handles POST /positions. Free plan users over a limit get 402.
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)
	now := h.now()

	var req createPositionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	expiration, err := parseDate("expiration_date", req.ExpirationDate)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	limit, err := h.limits.CheckLimit(ctx, user, now)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if limit.Blocked {
		respondJSON(w, http.StatusPaymentRequired, errorResponse{
			Error: "free plan limit reached: " + strings.Join(limit.Reasons, ", "),
			Usage: &limit,
		})
		return
	}

	p, err := h.positions.Create(ctx, user, models.PositionInput{
		Symbol:                  req.Symbol,
		Strategy:                req.Strategy,
		StrikePrice:             req.StrikePrice,
		ExpirationDate:          expiration,
		PremiumReceived:         req.PremiumReceived,
		ContractsCount:          req.ContractsCount,
		UnderlyingPriceAtEntry:  req.UnderlyingPriceAtEntry,
		Notes:                   req.Notes,
		PreTradeThesis:          req.PreTradeThesis,
		MarketConditionsAtEntry: req.MarketConditionsAtEntry,
	}, now)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.invalidateUsage(ctx, user.Email)
	respondJSON(w, http.StatusCreated, p)
}

// EditPosition handles PATCH /positions/{id}
func (h *Handler) EditPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req editPositionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	patch := models.PositionPatch{
		Symbol:                  req.Symbol,
		Strategy:                req.Strategy,
		StrikePrice:             req.StrikePrice,
		PremiumReceived:         req.PremiumReceived,
		ContractsCount:          req.ContractsCount,
		UnderlyingPriceAtEntry:  req.UnderlyingPriceAtEntry,
		Notes:                   req.Notes,
		PreTradeThesis:          req.PreTradeThesis,
		MarketConditionsAtEntry: req.MarketConditionsAtEntry,
		LessonsLearned:          req.LessonsLearned,
	}
	if req.ExpirationDate != nil {
		expiration, err := parseDate("expiration_date", *req.ExpirationDate)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		patch.ExpirationDate = &expiration
	}

	p, err := h.positions.Edit(r.Context(), userFrom(r.Context()), id, patch, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ClosePosition handles POST /positions/{id}/close
func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req closePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	p, err := h.positions.Close(ctx, user, id, req.Method, models.CloseParams{
		ClosingPremiumPaid: req.ClosingPremiumPaid,
		AssignmentPrice:    req.AssignmentPrice,
		LessonsLearned:     req.LessonsLearned,
	}, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.invalidateUsage(ctx, user.Email)
	respondJSON(w, http.StatusOK, p)
}

// RollPosition handles POST /positions/{id}/roll
func (h *Handler) RollPosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req rollRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	terms, err := req.terms()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	predecessor, successor, err := h.positions.Roll(ctx, user, id, terms, h.now())
	if predecessor != nil {
		h.invalidateUsage(ctx, user.Email)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rollResponse{Predecessor: predecessor, Successor: successor})
}

// RetryRoll handles POST /positions/{id}/roll/retry after a partial roll
func (h *Handler) RetryRoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req rollRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	terms, err := req.terms()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	successor, err := h.positions.RetrySuccessor(ctx, user, id, terms, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.invalidateUsage(ctx, user.Email)
	respondJSON(w, http.StatusOK, successor)
}
