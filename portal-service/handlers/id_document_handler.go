package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/portal-service/middleware"
	"portal-backend/portal-service/services"
	"portal-backend/shared/apperrors"
	"portal-backend/shared/utils/payload"
)

type IDDocumentHandler struct {
	documents *services.IDDocumentService
}

func NewIDDocumentHandler(documents *services.IDDocumentService) *IDDocumentHandler {
	return &IDDocumentHandler{documents: documents}
}

// VerifyRequest is the body of a document review.
type VerifyRequest struct {
	Verified  bool   `json:"verified" example:"true"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// GET /api/id-documents/
// @Summary List ID documents
// @Description Staff get all pending submissions, others their latest one
// @Tags id-documents
// @Produce json
// @Security TokenAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /id-documents/ [get]
func (h *IDDocumentHandler) List(c *gin.Context) {
	out, err := h.documents.List(c.Request.Context(), middleware.GetViewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/id-documents/
// @Summary Submit ID document
// @Tags id-documents
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "Scan of the document"
// @Security TokenAuth
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} map[string]string
// @Router /id-documents/ [post]
func (h *IDDocumentHandler) Submit(c *gin.Context) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		apperrors.Respond(c, apperrors.FieldError("document", "No file was submitted."))
		return
	}
	defer file.Close()

	out, err := h.documents.Submit(c.Request.Context(), middleware.GetViewer(c), services.Upload{
		FileName: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// PUT /api/id-documents/{id}/verify/
// @Summary Review ID document
// @Description Sets the verified flag and corrects submitter details
// @Tags id-documents
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param body body VerifyRequest true "Decision"
// @Security TokenAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /id-documents/{id}/verify/ [put]
func (h *IDDocumentHandler) Verify(c *gin.Context) {
	var p payload.VerifyDocumentPayload
	if !bindJSON(c, &p) {
		return
	}

	out, err := h.documents.Verify(c.Request.Context(), middleware.GetViewer(c), submissionIDParam(c), &p)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/id-documents/by-user/{id}/
// @Summary List ID documents of a user
// @Tags id-documents
// @Produce json
// @Param id path string true "User ID"
// @Security TokenAuth
// @Success 200 {array} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /id-documents/by-user/{id}/ [get]
func (h *IDDocumentHandler) ListByUser(c *gin.Context) {
	out, err := h.documents.ListByUser(c.Request.Context(), middleware.GetViewer(c), userIDParam(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
