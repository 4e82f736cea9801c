package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"secure_chat_relay/internal/relay/repository"
	"secure_chat_relay/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// maxUploadBytes 50MB cap, mirrors the app-level BodyLimit
const maxUploadBytes = 50 << 20

// UploadResponse POST /api/upload reply, the url goes into a message's fileData
type UploadResponse struct {
	Success      bool   `json:"success"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
	URL          string `json:"url"`
}

// UploadHandler encrypted blob upload/download. Content is already
// ciphertext when it arrives, the server just stores bytes.
type UploadHandler struct {
	store repository.UploadStore
}

// NewUploadHandler create upload handler
func NewUploadHandler(store repository.UploadStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload godoc
// @Summary Upload a file
// @Description Stores an uploaded (client-side encrypted) file and returns the descriptor to reference it from a message.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to store"
// @Success 200 {object} UploadResponse "Upload response"
// @Failure 400 {object} ErrorResponse "Bad Request"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /api/upload [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	// 1. 解析表單資料
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Missing file"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "File too large"})
	}

	// 2. 產生儲存檔名，帶時間戳加 uuid 避免碰撞
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), filepath.Ext(fileHeader.Filename))

	file, err := fileHeader.Open()
	if err != nil {
		logger.Log.Errorf("Open upload failed", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// 3. 寫入儲存層
	if err := h.store.Save(c.UserContext(), name, file, fileHeader.Size, contentType); err != nil {
		logger.Log.Errorf("Store upload failed", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	return c.JSON(UploadResponse{
		Success:      true,
		Filename:     name,
		OriginalName: fileHeader.Filename,
		Size:         fileHeader.Size,
		Mimetype:     contentType,
		URL:          "/uploads/" + name,
	})
}

// Serve godoc
// @Summary Download an uploaded file
// @Description Streams a previously uploaded file back to the client.
// @Tags Uploads
// @Produce application/octet-stream
// @Param name path string true "Stored filename"
// @Success 200 {string} string "File content"
// @Failure 404 {object} ErrorResponse "File not found"
// @Router /uploads/{name} [get]
func (h *UploadHandler) Serve(c *fiber.Ctx) error {
	// 只取檔名，防止路徑跳脫
	name := filepath.Base(c.Params("name"))
	if name == "" || name == "." || name == ".." {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid filename"})
	}

	rc, err := h.store.Open(c.UserContext(), name)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}
	return c.SendStream(rc)
}
