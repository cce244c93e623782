package middleware

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
)

// FileUploadValidator rejects oversized or obviously non-image uploads
// before the handler spends any decode work on them. Content sniffing
// stays permissive: an unknown container is allowed through so the
// decode chain can have a go at it.
func FileUploadValidator(cfg *config.Config) fiber.Handler {
	extMap := make(map[string]struct{})
	for _, e := range cfg.AllowedFileExt {
		extMap[strings.ToLower(e)] = struct{}{}
	}
	maxSize := int64(cfg.AllowedMaxFileSize) * 1024 * 1024

	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid multipart form",
			})
		}

		for _, files := range form.File {
			for _, file := range files {
				if err := validateFile(file, extMap, maxSize); err != nil {
					return c.Status(err.Code).JSON(fiber.Map{
						"error": err.Message,
					})
				}
			}
		}

		return c.Next()
	}
}

// validateFile checks the file size, extension and leading bytes
func validateFile(file *multipart.FileHeader, extMap map[string]struct{}, maxSize int64) *fiber.Error {
	if file.Size > maxSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := extMap[ext]; !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file type")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]

	if !isValidMagic(ext, file.Header.Get("Content-Type"), head, file.Filename) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file content")
	}

	return nil
}

// isValidMagic cross-checks the claimed extension against what the
// bytes actually are. A declared JPEG that sniffs as PNG is suspicious;
// a file that sniffs as nothing at all may still be a valid image in
// some container the sniffer does not know, so it passes.
func isValidMagic(ext, declaredType string, head []byte, filename string) bool {
	sniffed := imgio.Sniff(head, declaredType, filename)
	if sniffed == imgio.FormatUnknown {
		return true
	}
	switch ext {
	case ".jpg", ".jpeg":
		return sniffed == imgio.FormatJPEG
	case ".png":
		return sniffed == imgio.FormatPNG
	case ".webp":
		return sniffed == imgio.FormatWebP
	case ".avif":
		return sniffed == imgio.FormatAVIF
	case ".heic", ".heif":
		// Some HEIC containers carry AVIF-family brands.
		return sniffed.HEIFFamily()
	default:
		return false
	}
}
