package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type uploadContext struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Field      string `json:"field"`
}

type uploadSignRequest struct {
	FileName string        `json:"fileName"`
	MimeType string        `json:"mimeType"`
	Size     int64         `json:"size"`
	Context  uploadContext `json:"context"`
}

type uploadCompleteRequest struct {
	ObjectKey string        `json:"objectKey"`
	MimeType  string        `json:"mimeType"`
	Context   uploadContext `json:"context"`
}

type uploadSignResponse struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"objectKey"`
	FilePath  string            `json:"filePath"`
	ExpiresAt string            `json:"expiresAt"`
}

type uploadCompleteResponse struct {
	ObjectKey   string `json:"objectKey"`
	FilePath    string `json:"filePath"`
	DownloadURL string `json:"downloadUrl"`
}

const maxUploadSizeBytes int64 = 25 * 1024 * 1024

var attachmentMimeTypes = map[string]bool{
	"application/pdf":          true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"image/jpeg": true,
	"image/png":  true,
	"text/csv":   true,
}

// signUploadHandler issues a presigned PUT so the browser uploads straight to
// object storage; the API never proxies file bytes.
func signUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok || userId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tenant, _ := utils.GetTenantNameFromContext(c.Request.Context())
		if tenant == "" {
			tenant = "default"
		}

		var req uploadSignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.FileName == "" || req.MimeType == "" || req.Size <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileName, mimeType and size are required"})
			return
		}
		if req.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 25MB limit"})
			return
		}
		if !attachmentMimeTypes[req.MimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		ext := strings.ToLower(filepath.Ext(req.FileName))
		if ext == "" {
			ext = extensionFromMimeType(req.MimeType)
		}
		if ext == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file extension is required"})
			return
		}

		folder := sanitizeSegment(strings.ToLower(strings.TrimSpace(req.Context.EntityType)))
		if folder == "" {
			folder = "uploads"
		}
		objectKey := utils.GenerateFileKey(tenant, folder, ext)

		bucket := utils.GetStorageBucket()
		if bucket == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage is not configured"})
			return
		}
		storage, err := utils.NewS3Storage(c.Request.Context())
		if err != nil {
			logUploadError(logger, c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": uploadErrorMessage("failed to sign upload", err)})
			return
		}

		expiry := 15 * time.Minute
		uploadURL, err := storage.PresignUpload(c.Request.Context(), bucket, objectKey, req.MimeType, expiry)
		if err != nil {
			logUploadError(logger, c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": uploadErrorMessage("failed to sign upload", err)})
			return
		}

		logger.WithFields(logrus.Fields{
			"tenant":     tenant,
			"mime_type":  req.MimeType,
			"size":       req.Size,
			"object_key": objectKey,
		}).Info("[upload.sign]")

		c.JSON(http.StatusOK, gin.H{
			"data": uploadSignResponse{
				UploadURL: uploadURL,
				Method:    http.MethodPut,
				Headers:   map[string]string{"Content-Type": req.MimeType},
				ObjectKey: objectKey,
				FilePath:  utils.BuildFilePath(bucket, objectKey),
				ExpiresAt: time.Now().UTC().Add(expiry).Format(time.RFC3339),
			},
		})
	}
}

// completeUploadHandler confirms a signed upload and hands back a time-limited
// download URL for the stored object.
func completeUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok || userId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tenant, _ := utils.GetTenantNameFromContext(c.Request.Context())
		if tenant == "" {
			tenant = "default"
		}

		var req uploadCompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.ObjectKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "objectKey is required"})
			return
		}
		// Tenants can only complete keys under their own prefix.
		if !strings.HasPrefix(req.ObjectKey, "files/"+tenant+"/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
			return
		}

		bucket := utils.GetStorageBucket()
		if bucket == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage is not configured"})
			return
		}
		storage, err := utils.NewS3Storage(c.Request.Context())
		if err != nil {
			logUploadError(logger, c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": uploadErrorMessage("failed to resolve upload", err)})
			return
		}
		downloadURL, err := storage.Presign(c.Request.Context(), bucket, req.ObjectKey, utils.DefaultPresignExpiry)
		if err != nil {
			logUploadError(logger, c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": uploadErrorMessage("failed to resolve upload", err)})
			return
		}

		logger.WithFields(logrus.Fields{
			"object_key": req.ObjectKey,
			"status":     "completed",
		}).Info("[upload.complete]")

		c.JSON(http.StatusOK, gin.H{
			"data": uploadCompleteResponse{
				ObjectKey:   req.ObjectKey,
				FilePath:    utils.BuildFilePath(bucket, req.ObjectKey),
				DownloadURL: downloadURL,
			},
		})
	}
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.ms-excel":
		return ".xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "text/csv":
		return ".csv"
	default:
		return ""
	}
}

func uploadErrorMessage(base string, err error) string {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		return base
	}
	return base + ": " + err.Error()
}

func logUploadError(logger *logrus.Logger, c *gin.Context, err error) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	logger.WithFields(logrus.Fields{
		"error":          err.Error(),
		"correlation_id": cid,
	}).Error("[upload.error]")
}
