package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// uploadImage salva un'immagine incorporabile nel contenuto delle sezioni
func (s *Server) uploadImage(c *gin.Context) {
	username := c.Param("username")

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nessuna immagine fornita"})
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nessuna immagine selezionata"})
		return
	}
	if header.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Immagine troppo grande (max %d byte)", s.maxUpload)})
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		s.fail(c, err)
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Il file non è un'immagine (" + mt.String() + ")"})
		return
	}

	filename, err := s.store.SaveImage(c.Request.Context(), username, header.Filename, data)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventImageUploaded, Username: username})
	c.JSON(http.StatusOK, gin.H{
		"filename": filename,
		"url":      "/users/" + username + "/images/" + filename,
	})
}

// serveImage restituisce un'immagine caricata
func (s *Server) serveImage(c *gin.Context) {
	data, err := s.store.ReadImage(c.Request.Context(), c.Param("username"), c.Param("filename"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
