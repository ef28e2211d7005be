package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/contract"
	"github.com/loangraph/microlend/internal/http/middleware"
)

const maxAdvance = 100_000

type LedgerHandler struct {
	dispatcher *contract.Dispatcher
	logger     *slog.Logger
}

func NewLedgerHandler(dispatcher *contract.Dispatcher, logger *slog.Logger) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{dispatcher: dispatcher, logger: logger}
}

type callRequest struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

// Call runs a state-changing method as the authenticated principal.
func (h *LedgerHandler) Call(c *gin.Context) {
	req, ok := bindCall(c)
	if !ok {
		return
	}
	caller := middleware.Principal(c)
	if caller == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.dispatcher.Invoke(c.Request.Context(), contract.Call{
		Contract: c.Param("contract"),
		Method:   req.Method,
		Caller:   chain.Principal(caller),
		Args:     req.Args,
	})
	h.respond(c, res, err)
}

// Read evaluates a read-only method. Reads need no caller.
func (h *LedgerHandler) Read(c *gin.Context) {
	req, ok := bindCall(c)
	if !ok {
		return
	}
	res, err := h.dispatcher.Read(c.Request.Context(), contract.Call{
		Contract: c.Param("contract"),
		Method:   req.Method,
		Args:     req.Args,
	})
	h.respond(c, res, err)
}

func (h *LedgerHandler) Methods(c *gin.Context) {
	public, readOnly, err := h.dispatcher.Methods(c.Param("contract"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public": public, "read_only": readOnly})
}

func (h *LedgerHandler) Chain(c *gin.Context) {
	sys := h.dispatcher.System()
	var height, supply, claims, custody uint64
	sys.Host.Query(func(hgt uint64) {
		height = hgt
		supply = sys.Native.Supply()
		claims = sys.Claims.Supply()
		custody = sys.Pool.CustodyBalance()
	})
	c.JSON(http.StatusOK, gin.H{
		"height":          height,
		"native_symbol":   sys.Native.Symbol(),
		"native_supply":   supply,
		"claim_symbol":    sys.Claims.Symbol(),
		"claim_supply":    claims,
		"custody":         string(sys.Pool.Custody()),
		"custody_balance": custody,
	})
}

func (h *LedgerHandler) Balance(c *gin.Context) {
	who := chain.Principal(strings.TrimSpace(c.Param("principal")))
	if who == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_principal"})
		return
	}
	sys := h.dispatcher.System()
	var height, native, claims uint64
	sys.Host.Query(func(hgt uint64) {
		height = hgt
		native = sys.Native.Balance(who)
		claims = sys.Claims.Balance(who)
	})
	c.JSON(http.StatusOK, gin.H{
		"principal": string(who),
		"height":    height,
		"balances": gin.H{
			sys.Native.Symbol(): native,
			sys.Claims.Symbol(): claims,
		},
	})
}

type advanceRequest struct {
	Blocks uint64  `json:"blocks"`
	To     *uint64 `json:"to"`
}

// Advance moves the height forward for local testing.
func (h *LedgerHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	host := h.dispatcher.System().Host
	var (
		height uint64
		err    error
	)
	switch {
	case req.To != nil:
		height, err = host.SetHeight(c.Request.Context(), *req.To)
	case req.Blocks > 0 && req.Blocks <= maxAdvance:
		height, err = host.Advance(c.Request.Context(), req.Blocks)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_blocks"})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "height": height})
		return
	}
	h.logger.Info("height advanced", "height", height, "by", middleware.Principal(c))
	c.JSON(http.StatusOK, gin.H{"height": height})
}

func bindCall(c *gin.Context) (callRequest, bool) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return req, false
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_method"})
		return req, false
	}
	if req.Args == nil {
		req.Args = []json.RawMessage{}
	}
	return req, true
}

func (h *LedgerHandler) respond(c *gin.Context, res contract.Result, err error) {
	var argErr *contract.ArgError
	switch {
	case err == nil && res.OK:
		c.JSON(http.StatusOK, res)
	case err == nil:
		c.JSON(http.StatusUnprocessableEntity, res)
	case errors.As(err, &argErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_arguments", "detail": argErr.Error()})
	case errors.Is(err, contract.ErrUnknownContract), errors.Is(err, contract.ErrUnknownMethod):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, contract.ErrReadOnly):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
	default:
		h.logger.Error("ledger call failed", "contract", c.Param("contract"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
