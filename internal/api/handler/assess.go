package handler

import (
	"encoding/json"
	"net/http"

	"github.com/newthinker/momentum/internal/api/response"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/newthinker/momentum/internal/signal"
	"github.com/shopspring/decimal"
)

// AssessHandler assesses a single raw row on demand.
type AssessHandler struct {
	engine      *signal.Engine
	buyingPower decimal.Decimal
}

// NewAssessHandler creates an assess handler. buyingPower is used when
// the request omits one.
func NewAssessHandler(engine *signal.Engine, buyingPower decimal.Decimal) *AssessHandler {
	if engine == nil {
		engine = signal.NewEngine()
	}
	return &AssessHandler{engine: engine, buyingPower: buyingPower}
}

// AssessRequest is the body of POST /api/assess. Columns defaults to the
// Ticker/Name/Price/Change/Volume layout.
type AssessRequest struct {
	Row         map[string]any           `json:"row"`
	Columns     *normalize.ColumnMapping `json:"columns,omitempty"`
	BuyingPower decimal.NullDecimal      `json:"buying_power"`
}

// AssessResponse pairs the normalized record with its assessment
type AssessResponse struct {
	Record     core.QuoteRecord     `json:"record"`
	Assessment core.TradeAssessment `json:"assessment"`
}

// Assess normalizes the row and runs the signal engine on it.
func (h *AssessHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	columns := normalize.DefaultColumns()
	if req.Columns != nil {
		columns = *req.Columns
	}
	n, err := normalize.New(columns)
	if err != nil {
		response.Fail(w, err)
		return
	}

	out := n.NormalizeRow(0, normalize.Row(req.Row))
	if !out.OK() {
		response.Fail(w, core.WrapError(core.ErrRowParse, out.Err))
		return
	}

	budget := h.buyingPower
	if req.BuyingPower.Valid {
		budget = req.BuyingPower.Decimal
	}
	a, err := h.engine.Assess(*out.Record, budget)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, AssessResponse{Record: *out.Record, Assessment: a})
}
