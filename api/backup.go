package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guideboard/guide"
	"guideboard/store"
)

// ImportRequest importazione di un backup come nuovo utente.
// Username sostituisce quello contenuto nel bundle.
type ImportRequest struct {
	Bundle   json.RawMessage `json:"bundle" binding:"required"`
	Username string          `json:"username" binding:"omitempty,username"`
}

// exportBundle scarica il backup completo dell'utente
func (s *Server) exportBundle(c *gin.Context) {
	username := c.Param("username")
	doc, err := s.store.GetDocument(c.Request.Context(), username)
	if err != nil {
		s.fail(c, err)
		return
	}

	now := time.Now()
	bundle := guide.Export(doc, username, now)
	filename := fmt.Sprintf("poe2-guide-backup-%s-%s.json", username, now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.IndentedJSON(http.StatusOK, bundle)
}

// newUserImport crea un nuovo utente con il contenuto del bundle
func (s *Server) newUserImport(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Richiesta non valida: " + err.Error()})
		return
	}

	bundle, err := guide.ParseBundle(req.Bundle)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Username != "" {
		bundle.Username = req.Username
	}

	ctx := c.Request.Context()
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	// il server non può chiedere un altro nome: lo segnala e lascia scegliere al client
	username, err := guide.ImportName(bundle, users, nil)
	if errors.Is(err, guide.ErrImportCancelled) {
		c.JSON(http.StatusConflict, gin.H{
			"error":    "Nome utente già in uso o mancante",
			"code":     "username_taken",
			"username": bundle.Username,
		})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	doc := guide.NewUserDocument(bundle)
	if err := guide.ValidateDocument(doc); err != nil {
		s.fail(c, err)
		return
	}

	created, err := s.store.CreateUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "username_taken", "username": username})
			return
		}
		s.fail(c, err)
		return
	}
	s.hub.Broadcast(Event{Type: EventUserCreated, Username: created})

	if err := s.saveDocument(c, created, doc); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("📥 Backup importato come nuovo utente",
		zap.String("user", created),
		zap.Int("sezioni", len(doc.Sections)),
		zap.Int("collegamenti", len(doc.Links)))

	c.JSON(http.StatusOK, gin.H{
		"username": created,
		"sections": len(doc.Sections),
		"links":    len(doc.Links),
	})
}

// mergeImport aggiunge il contenuto del bundle al documento dell'utente
func (s *Server) mergeImport(c *gin.Context) {
	username := c.Param("username")

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Impossibile leggere il backup"})
		return
	}
	bundle, err := guide.ParseBundle(raw)
	if err != nil {
		s.fail(c, err)
		return
	}

	doc, err := s.store.GetDocument(c.Request.Context(), username)
	if err != nil {
		s.fail(c, err)
		return
	}

	report := guide.Merge(doc, bundle, guide.NewID)
	if err := guide.ValidateDocument(doc); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.saveDocument(c, username, doc); err != nil {
		s.fail(c, err)
		return
	}

	if len(report.DroppedLinks) > 0 {
		s.logger.Warn("collegamenti scartati durante l'unione",
			zap.String("user", username),
			zap.Strings("links", report.DroppedLinks))
	}
	c.JSON(http.StatusOK, report)
}
