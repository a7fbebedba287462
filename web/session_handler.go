package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbt "motoroute/db/db"
	"motoroute/session"
	"motoroute/verify"
)

// editor returns the caller's editing session, reopening it when the server
// restarted while the session token stayed valid.
func (s *Server) editor(c *gin.Context) *session.Session {
	p := principalFrom(c)
	if sess, ok := s.sessions.Get(p.UserID); ok {
		return sess
	}
	settings := dbt.DefaultUserSettings()
	if profile, err := s.auth.Profile(c.Request.Context(), p.UserID); err == nil {
		settings = profile.Settings
	}
	return s.sessions.Open(p.UserID, settings)
}

func (s *Server) writeEditorState(c *gin.Context, sess *session.Session) {
	state := editorStateResponse{
		Waypoints:     sess.Waypoints(),
		AvoidHighways: sess.AvoidHighways(),
		Route:         sess.Route(),
		SavedTrips:    s.toTripList(sess.SavedTrips()),
	}
	if current := sess.CurrentTrip(); current != nil {
		resp := s.toTripResponse(current, true)
		state.CurrentTrip = &resp
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) editorState(c *gin.Context) {
	sess := s.editor(c)
	if c.Query("wait") == "true" {
		sess.Wait()
	}
	s.writeEditorState(c, sess)
}

func (s *Server) addWaypoint(c *gin.Context) {
	var req addWaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if !req.Position.Valid() {
		writeError(c, "add waypoint", verify.Errorf("position", "is out of range"))
		return
	}
	sess := s.editor(c)
	sess.AddWaypoint(req.Position, req.Address)
	s.writeEditorState(c, sess)
}

func (s *Server) removeWaypoint(c *gin.Context) {
	sess := s.editor(c)
	sess.RemoveWaypoint(c.Param("waypointId"))
	s.writeEditorState(c, sess)
}

func (s *Server) clearWaypoints(c *gin.Context) {
	sess := s.editor(c)
	sess.ClearWaypoints()
	s.writeEditorState(c, sess)
}

func (s *Server) setPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	sess := s.editor(c)
	sess.SetAvoidHighways(req.AvoidHighways)
	s.writeEditorState(c, sess)
}

func (s *Server) newTrip(c *gin.Context) {
	sess := s.editor(c)
	sess.NewTrip()
	s.writeEditorState(c, sess)
}

func (s *Server) saveTrip(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	sess := s.editor(c)
	if _, err := sess.Save(c.Request.Context(), req.Name, req.Description); err != nil {
		writeError(c, "save trip", err)
		return
	}
	s.writeEditorState(c, sess)
}

func (s *Server) loadTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c)
		return
	}
	sess := s.editor(c)
	if _, err := sess.Load(c.Request.Context(), id); err != nil {
		writeError(c, "load trip", err)
		return
	}
	s.writeEditorState(c, sess)
}

func (s *Server) deleteSessionTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c)
		return
	}
	sess := s.editor(c)
	if err := sess.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "delete trip", err)
		return
	}
	s.writeEditorState(c, sess)
}
