package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motoroute/auth"
	"motoroute/verify"
)

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
}

func (s *Server) writeSession(c *gin.Context, status int, res *auth.SignInResult) {
	c.JSON(status, sessionResponse{
		Token:     res.Token,
		ExpiresAt: res.Principal.ExpiresAt,
		User:      toProfileResponse(res.Profile),
	})
}

func (s *Server) signUp(c *gin.Context) {
	var req auth.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := s.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		writeError(c, "create account", err)
		return
	}
	s.writeSession(c, http.StatusCreated, res)
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, "sign in", err)
		return
	}
	s.writeSession(c, http.StatusOK, res)
}

func (s *Server) signInWithGoogle(c *gin.Context) {
	var req googleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := s.auth.SignInWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		writeError(c, "sign in", err)
		return
	}
	s.writeSession(c, http.StatusOK, res)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		writeError(c, "sign out", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	p := principalFrom(c)
	profile, err := s.auth.Profile(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, "load profile", err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (s *Server) computeRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	for i, wp := range req.Waypoints {
		if !wp.Position.Valid() {
			writeError(c, "compute route", verify.Errorf("waypoints", "waypoint %d has an invalid position", i+1))
			return
		}
	}
	summary, err := s.agg.ComputeRoute(c.Request.Context(), req.Waypoints, req.AvoidHighways)
	if err != nil {
		writeError(c, "compute route", err)
		return
	}
	c.JSON(http.StatusOK, routeResponse{Summary: summary})
}
