// Package server exposes the agent over HTTP: a chat endpoint, the message
// feed for frontend polling, a live websocket feed, and a health check.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nakaltrade/nakal-agent/internal/agent"
)

// ChatHandler answers one chat message.
type ChatHandler interface {
	HandleChat(ctx context.Context, message string) string
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The frontend is served from a different origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the HTTP routes.
type Server struct {
	handler  ChatHandler
	messages *agent.MessageLog
}

// New creates a server for the given chat handler and message feed.
func New(handler ChatHandler, messages *agent.MessageLog) *Server {
	return &Server{handler: handler, messages: messages}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/chat", s.chat)
	router.GET("/agent_messages", s.agentMessages)
	router.GET("/ws/messages", s.messageStream)
	router.GET("/health", s.health)

	return router
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	response := s.handler.HandleChat(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, gin.H{"response": response})
}

func (s *Server) agentMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": s.messages.Snapshot()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"response": "NakalTrade agent is healthy!"})
}

// messageStream upgrades to a websocket and pushes each new agent message
// as it is recorded. The connection closes when the client goes away.
func (s *Server) messageStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	feed, cancel := s.messages.Subscribe()
	defer cancel()

	// Reads are discarded; their only purpose is detecting disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
