package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MetaHandler struct {
	env       string
	version   string
	contracts []string
}

func NewMetaHandler(env, version string, contracts ...string) *MetaHandler {
	return &MetaHandler{env: env, version: version, contracts: contracts}
}

func (h *MetaHandler) GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":      "MicroLend Ledger",
		"version":   h.version,
		"env":       h.env,
		"contracts": h.contracts,
	})
}
