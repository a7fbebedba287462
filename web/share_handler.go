package web

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"motoroute/mq/mq"
)

const (
	maxResolveTokens = 50
	pingInterval     = 30 * time.Second
	writeWait        = 10 * time.Second
)

func (s *Server) enableSharing(c *gin.Context) {
	t, ok := s.ownedTrip(c)
	if !ok {
		return
	}
	token, err := s.shares.EnableSharing(c.Request.Context(), t.ID)
	if err != nil {
		writeError(c, "enable sharing", err)
		return
	}
	c.JSON(http.StatusOK, shareResponse{Token: token, URL: s.shares.BuildShareURL(token)})
}

func (s *Server) disableSharing(c *gin.Context) {
	t, ok := s.ownedTrip(c)
	if !ok {
		return
	}
	if err := s.shares.DisableSharing(c.Request.Context(), t.ID); err != nil {
		writeError(c, "disable sharing", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getShared(c *gin.Context) {
	t, err := s.shares.ResolveShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, "load shared trip", err)
		return
	}
	if t == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, s.toTripResponse(t, false))
}

// resolveShared resolves several tokens at once; trip reads are batched by the
// request's data loader. Unresolvable tokens map to null.
func (s *Server) resolveShared(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Tokens) > maxResolveTokens {
		badRequest(c)
		return
	}

	ctx := c.Request.Context()
	results := make([]*tripResponse, len(req.Tokens))
	errs := make([]error, len(req.Tokens))
	var wg sync.WaitGroup
	for i, token := range req.Tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			t, err := s.shares.ResolveShareToken(ctx, token)
			if err != nil {
				errs[i] = err
				return
			}
			if t != nil {
				resp := s.toTripResponse(t, false)
				results[i] = &resp
			}
		}(i, token)
	}
	wg.Wait()

	out := make(map[string]*tripResponse, len(req.Tokens))
	for i, token := range req.Tokens {
		if errs[i] != nil {
			writeError(c, "resolve shared trips", errs[i])
			return
		}
		out[token] = results[i]
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) copyShared(c *gin.Context) {
	id, err := s.shares.CopyToAccount(c.Request.Context(), c.Param("token"), principalFrom(c).UserID)
	if err != nil {
		writeError(c, "copy trip", err)
		return
	}
	t, err := s.reloadTrip(c, id)
	if err != nil {
		writeError(c, "copy trip", err)
		return
	}
	c.JSON(http.StatusCreated, s.toTripResponse(t, true))
}

// sharedEvents streams change events of a shared trip over a websocket. The
// stream ends when the trip is deleted or stops being shared.
func (s *Server) sharedEvents(c *gin.Context) {
	t, err := s.shares.ResolveShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, "subscribe", err)
		return
	}
	if t == nil {
		notFound(c)
		return
	}
	if s.queue == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "events are not available"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// reads only detect the client going away
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	out := make(chan tripEventMessage)
	mq.SubscribeProcessor[mq.TripEventQueue, mq.TripEvent, tripEventMessage](t.ID, ctx, s.queue, tripEventToMessage, out)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			if msg.Action == mq.ActionDelete.String() || msg.Action == mq.ActionUnshare.String() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg.Action),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
