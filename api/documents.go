package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guideboard/guide"
)

// CreateUserRequest richiesta di creazione utente
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// listUsers elenca gli utenti
func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// createUser crea un utente con documento vuoto
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nome utente obbligatorio"})
		return
	}

	username, err := s.store.CreateUser(c.Request.Context(), req.Username)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.hub.Broadcast(Event{Type: EventUserCreated, Username: username})
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getDocument restituisce il documento completo dell'utente
func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.store.GetDocument(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// putDocument sostituisce integralmente il documento dell'utente
func (s *Server) putDocument(c *gin.Context) {
	username := c.Param("username")

	doc := guide.NewDocument()
	if err := c.ShouldBindJSON(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Documento JSON non valido: " + err.Error()})
		return
	}
	doc.Normalize()

	if err := guide.ValidateDocument(doc); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.saveDocument(c, username, doc); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// saveDocument scrive il documento e notifica i client collegati
func (s *Server) saveDocument(c *gin.Context, username string, doc *guide.Document) error {
	if s.watcher != nil {
		s.watcher.Ignore(username)
	}
	if err := s.store.PutDocument(c.Request.Context(), username, doc); err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventDocumentSaved, Username: username})
	return nil
}
