package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loangraph/microlend/internal/contract"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent renders basis points as a two-decimal percentage, e.g. 525 -> "5.25".
func Percent(bp uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bp), 0).Div(hundred).StringFixed(2)
}

type assetView struct {
	asset.Asset
	YieldRatePercent   string `json:"yield_rate_percent"`
	PenaltyRatePercent string `json:"penalty_rate_percent"`
}

type loanView struct {
	contract.LoanView
	InterestPercent string `json:"interest_percent"`
	RepaidPercent   string `json:"repaid_percent"`
}

// ViewHandler serves display-oriented projections of ledger reads.
type ViewHandler struct {
	dispatcher *contract.Dispatcher
}

func NewViewHandler(dispatcher *contract.Dispatcher) *ViewHandler {
	return &ViewHandler{dispatcher: dispatcher}
}

func (h *ViewHandler) ListAssets(c *gin.Context) {
	res, ok := h.read(c, contract.LiquidityPool, "list-assets")
	if !ok {
		return
	}
	assets, _ := res.Value.([]asset.Asset)
	out := make([]assetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, newAssetView(a))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "height": res.Height})
}

func (h *ViewHandler) GetAsset(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("assetId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_asset_id"})
		return
	}
	res, ok := h.read(c, contract.LiquidityPool, "get-asset", id)
	if !ok {
		return
	}
	a, _ := res.Value.(asset.Asset)
	c.JSON(http.StatusOK, newAssetView(a))
}

func (h *ViewHandler) GetLoan(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("loanId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_loan_id"})
		return
	}
	res, ok := h.read(c, contract.LoanManager, "get-loan", id)
	if !ok {
		return
	}
	l, _ := res.Value.(contract.LoanView)
	c.JSON(http.StatusOK, newLoanView(l))
}

func (h *ViewHandler) read(c *gin.Context, name, method string, args ...uint64) (contract.Result, bool) {
	raw := make(contract.Args, 0, len(args))
	for _, a := range args {
		raw = append(raw, json.RawMessage(strconv.FormatUint(a, 10)))
	}
	res, err := h.dispatcher.Read(c.Request.Context(), contract.Call{Contract: name, Method: method, Args: raw})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return res, false
	}
	if !res.OK {
		c.JSON(http.StatusNotFound, res)
		return res, false
	}
	return res, true
}

func newAssetView(a asset.Asset) assetView {
	return assetView{
		Asset:              a,
		YieldRatePercent:   Percent(a.YieldRate),
		PenaltyRatePercent: Percent(a.PenaltyRate),
	}
}

func newLoanView(l contract.LoanView) loanView {
	repaid := "0.00"
	if l.TotalDue > 0 {
		paid := decimal.NewFromBigInt(new(big.Int).SetUint64(l.TotalDue-min(l.Outstanding, l.TotalDue)), 0)
		due := decimal.NewFromBigInt(new(big.Int).SetUint64(l.TotalDue), 0)
		repaid = paid.Mul(hundred).Div(due).StringFixed(2)
	}
	return loanView{
		LoanView:        l,
		InterestPercent: Percent(l.InterestRateBP),
		RepaidPercent:   repaid,
	}
}
