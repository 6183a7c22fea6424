package handler

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/infrastructure/export"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
)

// LedgerExporter renders the ledger as a workbook. Implemented by *export.Exporter.
type LedgerExporter interface {
	XLSX(ctx context.Context) ([]byte, int, error)
}

// LedgerHandler serves ledger downloads
type LedgerHandler struct {
	BaseHandler
	exporter LedgerExporter
	clock    func() time.Time
}

// NewLedgerHandler creates a LedgerHandler
func NewLedgerHandler(exporter LedgerExporter) *LedgerHandler {
	return &LedgerHandler{exporter: exporter, clock: time.Now}
}

// ExportXLSX handles GET /ledger/export.xlsx
func (h *LedgerHandler) ExportXLSX(c *gin.Context) {
	data, rows, err := h.exporter.XLSX(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		h.ErrorWithCode(c, dto.ErrCodeExport, "Could not export the ledger")
		return
	}

	filename := fmt.Sprintf("transactions_%s.xlsx", h.clock().Format("2006-01-02"))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("X-Ledger-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, export.ContentType, data)
}
