package controllers

import (
	"io"
	"net/http"

	"trinetra-be/services"

	"github.com/gin-gonic/gin"
)

// UploadImage accepts a proof-of-completion photo and returns its durable
// URL. Unlike the creation path, upload failure here is fatal: the proof
// image is mandatory for completing a task.
func UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := services.UploadImage(c.Request.Context(), "worker-completions", fileHeader.Filename, contentType, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
