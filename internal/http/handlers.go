package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/usecase"
)

var validate = validator.New()

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ledgerRefResponse struct {
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
	Cost        string `json:"cost,omitempty"`
}

type recordResponse struct {
	ID          string             `json:"id"`
	CaseID      string             `json:"case_id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	ContentHash string             `json:"content_hash"`
	MimeType    string             `json:"mime_type"`
	SizeBytes   int64              `json:"size_bytes"`
	SubmittedBy string             `json:"submitted_by"`
	BlobRef     string             `json:"blob_ref,omitempty"`
	Ledger      *ledgerRefResponse `json:"ledger,omitempty"`
	Verified    bool               `json:"blockchain_verified"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toRecordResponse(rec evidence.Record) recordResponse {
	resp := recordResponse{
		ID:          rec.ID,
		CaseID:      rec.CaseID,
		Name:        rec.Name,
		Type:        rec.Type,
		Description: rec.Description,
		Location:    rec.Location,
		ContentHash: rec.ContentHash,
		MimeType:    rec.MimeType,
		SizeBytes:   rec.SizeBytes,
		SubmittedBy: rec.SubmittedBy,
		BlobRef:     rec.BlobRef,
		Verified:    rec.LedgerVerified(),
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt,
	}
	if rec.LedgerVerified() {
		resp.Ledger = &ledgerRefResponse{
			TxID:        rec.LedgerTxID,
			BlockNumber: rec.LedgerBlockNumber,
			Cost:        rec.LedgerCost,
		}
	}
	return resp
}

type uploadForm struct {
	CaseID       string `form:"caseId" validate:"required"`
	EvidenceType string `form:"evidenceType" validate:"required"`
	Description  string `form:"description"`
	Location     string `form:"location"`
}

func (s *Server) handleUpload(c *gin.Context) {
	uploader, err := identity(c)
	if err != nil {
		writeError(c, err)
		return
	}

	form := uploadForm{
		CaseID:       c.PostForm("caseId"),
		EvidenceType: c.PostForm("evidenceType"),
		Description:  c.PostForm("description"),
		Location:     c.PostForm("location"),
	}
	if err := validate.Struct(form); err != nil {
		writeError(c, evidence.ErrMissingFields)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, evidence.ErrMissingFields)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, evidence.ErrMissingFields)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "UPLOAD_READ_FAILED", "could not read uploaded file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	result, err := s.ingest.Ingest(c.Request.Context(), usecase.IngestInput{
		CaseID:      form.CaseID,
		Name:        fileHeader.Filename,
		Type:        form.EvidenceType,
		Description: form.Description,
		Location:    form.Location,
		MimeType:    mimeType,
		Data:        data,
		Uploader:    uploader,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	message := "evidence uploaded"
	if len(result.Warnings) > 0 {
		message = "evidence uploaded with warnings"
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  message,
		"evidence": toRecordResponse(result.Record),
		"warnings": result.Warnings,
	})
}

func (s *Server) handleList(c *gin.Context) {
	filter := evidence.ListFilter{
		CaseID:      c.Query("case_id"),
		Status:      evidence.Status(c.Query("status")),
		SubmittedBy: c.Query("submitted_by"),
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	}
	records, total, err := s.query.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evidence": toRecordResponses(records),
		"total":    total,
	})
}

func (s *Server) handleGet(c *gin.Context) {
	rec, err := s.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(rec))
}

func (s *Server) handleListByCase(c *gin.Context) {
	records, err := s.query.ListByCase(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"case_id":  c.Param("case_id"),
		"evidence": toRecordResponses(records),
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	requester, err := identity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	file, err := s.export.ExportOne(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Watermark-Applied", fmt.Sprintf("%t", file.WatermarkApplied))
	c.Header("X-Downloaded-By", file.DownloadedBy)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

type bulkExportRequest struct {
	EvidenceIDs []string `json:"evidence_ids" binding:"required"`
}

func (s *Server) handleBulkExport(c *gin.Context) {
	requester, err := identity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req bulkExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, evidence.ErrNoItems)
		return
	}

	// Validation and record resolution happen before any response bytes go
	// out; the archive itself streams straight to the client.
	plan, err := s.export.PrepareBundle(c.Request.Context(), req.EvidenceIDs, requester)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("evidence_export_%d.zip", time.Now().Unix())
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Export-Count", fmt.Sprintf("%d", plan.Found))
	c.Header("X-Exported-By", plan.ExportedBy)
	c.Status(http.StatusOK)
	if _, err := plan.Write(c.Request.Context(), c.Writer); err != nil {
		// Headers are committed; the truncated archive is the only signal
		// left to the client. The failure is already logged downstream.
		c.Abort()
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	requester, err := identity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := s.query.DownloadHistory(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evidence_id": c.Param("id"),
		"downloads":   entries,
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	proof, err := s.ingest.VerifyAnchor(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proof)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.query.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func toRecordResponses(records []evidence.Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func intQuery(c *gin.Context, name string) int {
	v := c.Query(name)
	if v == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 0 {
		return 0
	}
	return n
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, evidence.ErrInvalidWallet):
		status, code = http.StatusBadRequest, "INVALID_WALLET"
	case errors.Is(err, evidence.ErrMissingFields):
		status, code = http.StatusBadRequest, "MISSING_FIELDS"
	case errors.Is(err, evidence.ErrUnsupportedType):
		status, code = http.StatusBadRequest, "UNSUPPORTED_TYPE"
	case errors.Is(err, evidence.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, evidence.ErrNoItems):
		status, code = http.StatusBadRequest, "NO_ITEMS"
	case errors.Is(err, evidence.ErrTooManyItems):
		status, code = http.StatusBadRequest, "TOO_MANY_ITEMS"
	case errors.Is(err, evidence.ErrMissingCredentials):
		status, code = http.StatusUnauthorized, "MISSING_CREDENTIALS"
	case errors.Is(err, evidence.ErrBadPayload):
		status, code = http.StatusBadRequest, "BAD_PAYLOAD"
	case errors.Is(err, evidence.ErrExpired):
		status, code = http.StatusUnauthorized, "SIGNATURE_EXPIRED"
	case errors.Is(err, evidence.ErrReplay):
		status, code = http.StatusUnauthorized, "NONCE_REUSED"
	case errors.Is(err, evidence.ErrMethodMismatch):
		status, code = http.StatusUnauthorized, "METHOD_MISMATCH"
	case errors.Is(err, evidence.ErrPathMismatch):
		status, code = http.StatusUnauthorized, "PATH_MISMATCH"
	case errors.Is(err, evidence.ErrInvalidSignature):
		status, code = http.StatusUnauthorized, "INVALID_SIGNATURE"
	case errors.Is(err, evidence.ErrSignatureMismatch):
		status, code = http.StatusUnauthorized, "SIGNATURE_MISMATCH"
	case errors.Is(err, evidence.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, evidence.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, evidence.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, evidence.ErrRecordStore):
		status, code = http.StatusInternalServerError, "RECORD_STORE_FAILURE"
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
