package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docport/docport/internal/pkg/errcode"
	"github.com/docport/docport/internal/pkg/otp"
	"github.com/docport/docport/internal/pkg/response"
	"github.com/docport/docport/internal/service"
)

type ShareHandler struct {
	shares    *service.ShareService
	summaries *service.SummaryService
}

func NewShareHandler(shares *service.ShareService, summaries *service.SummaryService) *ShareHandler {
	return &ShareHandler{shares: shares, summaries: summaries}
}

type createShareRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

type verifyShareRequest struct {
	Code string `json:"code"`
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	share, err := h.shares.Create(c.Request.Context(), getUserID(c), c.Param("id"), req.RecipientEmail)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, share)
}

func (h *ShareHandler) Verify(c *gin.Context) {
	var req verifyShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	code := strings.TrimSpace(req.Code)
	if !otp.IsCode(code, otp.DefaultLength) {
		response.Error(c, errcode.ErrInvalid, "code must be 6 digits")
		return
	}
	grant, err := h.shares.Verify(c.Request.Context(), c.Param("id"), code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, grant)
}

func (h *ShareHandler) Download(c *gin.Context) {
	url, err := h.shares.GrantedDownloadURL(c.Request.Context(), getShareGrant(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

func (h *ShareHandler) Summary(c *gin.Context) {
	doc, err := h.shares.SharedDocument(c.Request.Context(), getShareGrant(c))
	if err != nil {
		handleError(c, err)
		return
	}
	sum, err := h.summaries.GetOrCreate(c.Request.Context(), doc.ID, doc.FilePath)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sum)
}

// SummaryStream delivers the summary as server-sent events; each chunk is one
// `data:` event and the stream ends with `event: done`.
func (h *ShareHandler) SummaryStream(c *gin.Context) {
	doc, err := h.shares.SharedDocument(c.Request.Context(), getShareGrant(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	err = h.summaries.Stream(ctx, doc.ID, doc.FilePath, func(chunk string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for _, line := range strings.Split(chunk, "\n") {
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(c.Writer, "\n"); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		// headers are already out; signal failure in-band
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", "summary generation failed")
		c.Writer.Flush()
		return
	}
	fmt.Fprint(c.Writer, "event: done\ndata: \n\n")
	c.Writer.Flush()
}
