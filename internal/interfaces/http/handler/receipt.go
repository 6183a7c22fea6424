package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/application/issuance"
	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
	"github.com/nucleon/receipts/internal/interfaces/http/middleware"
)

// ReceiptIssuer issues receipts. Implemented by *issuance.Service.
type ReceiptIssuer interface {
	Issue(ctx context.Context, req issuance.IssueRequest) (*issuance.IssueResult, error)
	Profile() receipt.BrandingProfile
}

// ReceiptHandler serves receipt issuance
type ReceiptHandler struct {
	BaseHandler
	issuer   ReceiptIssuer
	location *time.Location
}

// NewReceiptHandler creates a ReceiptHandler. Request dates are read in loc.
func NewReceiptHandler(issuer ReceiptIssuer, loc *time.Location) *ReceiptHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReceiptHandler{issuer: issuer, location: loc}
}

// Issue handles POST /receipts. The response body is the receipt PDF;
// storage outcome is reported in headers, so a failed upload still
// answers 200 with the document. A ledger or local storage failure answers
// 500, still with the document, and the error code in X-Error-Code.
func (h *ReceiptHandler) Issue(c *gin.Context) {
	var req dto.IssueReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	issueReq := issuance.IssueRequest{
		StudentName: req.StudentName,
		Amount:      req.Amount,
		FeeType:     req.FeeType,
		Month:       req.Month,
	}
	if req.Date != "" {
		date, err := time.ParseInLocation(receipt.DisplayDateLayout, req.Date, h.location)
		if err != nil {
			h.BadRequest(c, "Date must be formatted as dd/mm/yyyy")
			return
		}
		issueReq.Date = date
	}

	result, err := h.issuer.Issue(c.Request.Context(), issueReq)
	if err != nil {
		var issueErr *issuance.IssueError
		if result == nil || result.Document.IsEmpty() || !errors.As(err, &issueErr) {
			h.HandleError(c, err)
			return
		}
		_ = c.Error(err)
		code, ok := issueErrorCodes[issueErr.Stage]
		if !ok {
			code = dto.ErrCodeInternal
		}
		header := c.Writer.Header()
		header.Set(dto.HeaderErrorCode, code)
		header.Set(dto.HeaderErrorMessage, headerText(issueErr.Message))
		h.writeReceipt(c, dto.GetHTTPStatus(code), result)
		return
	}

	h.writeReceipt(c, http.StatusOK, result)
}

func (h *ReceiptHandler) writeReceipt(c *gin.Context, status int, result *issuance.IssueResult) {
	header := c.Writer.Header()
	header.Set(dto.HeaderReceiptNumber, result.Record.Number)
	header.Set(dto.HeaderStorageMessage, headerText(result.StorageMessage()))
	switch {
	case !result.Recorded:
		header.Set(dto.HeaderStorageStatus, dto.StorageStatusSkipped)
	case result.Storage.OK():
		header.Set(dto.HeaderStorageStatus, dto.StorageStatusStored)
		header.Set(dto.HeaderStorageLocation, escapeLocation(result.Storage.Location))
	default:
		header.Set(dto.HeaderStorageStatus, dto.StorageStatusFailed)
	}
	if link := result.Link(); link != "" {
		header.Set(dto.HeaderShareLink, link)
	}
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": result.Record.DocumentName(),
	}))

	c.Data(status, "application/pdf", result.Document.Bytes())
}

// ReceiptOptions lists the values the issuing form offers
type ReceiptOptions struct {
	Organization string   `json:"organization"`
	Currency     string   `json:"currency"`
	CurrencyCode string   `json:"currency_code"`
	FeeTypes     []string `json:"fee_types"`
	Months       []string `json:"months"`
	// MonthRequired lists the fee types that need a month
	MonthRequired []string `json:"month_required"`
}

// Options handles GET /receipts/options
func (h *ReceiptHandler) Options(c *gin.Context) {
	profile := h.issuer.Profile()
	opts := ReceiptOptions{
		Organization: profile.OrganizationName,
		Currency:     profile.CurrencySymbol,
		CurrencyCode: string(profile.Currency),
	}
	for _, f := range receipt.AllFeeTypes() {
		opts.FeeTypes = append(opts.FeeTypes, f.String())
		if f.RequiresMonth() {
			opts.MonthRequired = append(opts.MonthRequired, f.String())
		}
	}
	for _, m := range receipt.AllMonths() {
		opts.Months = append(opts.Months, m.String())
	}
	h.Success(c, opts)
}

// escapeLocation percent-encodes a path or URL for use in a header
func escapeLocation(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return (&url.URL{Path: location}).EscapedPath()
}

// headerText encodes non-ASCII text as an RFC 2047 word
func headerText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
	return mime.QEncoding.Encode("utf-8", s)
}
