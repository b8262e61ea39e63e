package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/services/filestorage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

func UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to open file"})
		return
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file"})
		return
	}

	app := currentApp(c)
	if app.Uploader() == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "file uploads are not configured"})
		return
	}

	url := make(chan string, 1)
	app.Uploader().UploadBytes(fileBytes, filepath.Ext(file.Filename), url)

	uploaded := <-url
	if uploaded == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data": map[string]string{
			"url": uploaded,
		},
	})
}

func GetFile(c *gin.Context) {
	filename := c.Param("filename")
	app := currentApp(c)

	storage, err := filestorage.NewFileStorage(app.Config())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if app.Config().Filesystem == config.FilesystemLocal {
		file, err := storage.ResolveFile(filename, "", false)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
			return
		}

		c.File(file)
		return
	}

	file, err := storage.GetFile(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
		return
	}

	mimeType := mimetype.Detect(file.Content).String()
	c.Data(http.StatusOK, mimeType, file.Content)
}
