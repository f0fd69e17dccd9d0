package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/optimize"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/service"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.Signup(c.Request.Context(), req.Username, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleStrategies(c *gin.Context) {
	descs, err := s.svc.Strategies(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, descs)
}

func (s *Server) handleSeries(c *gin.Context) {
	series, err := s.svc.Series(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if series == nil {
		series = []journal.SeriesInfo{}
	}
	c.JSON(http.StatusOK, series)
}

type checkRequest struct {
	Ticker  string `json:"ticker" binding:"required"`
	EndDate string `json:"end_date" binding:"required"`
}

func (s *Server) handleCheckData(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	end, err := pricing.ParseDate(req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	ticker, err := s.svc.CheckData(c.Request.Context(), req.Ticker, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker})
}

type runRequest struct {
	StrategyID string             `json:"strategy_id" binding:"required"`
	Ticker     string             `json:"ticker" binding:"required"`
	StartDate  string             `json:"start_date" binding:"required"`
	EndDate    string             `json:"end_date" binding:"required"`
	Frequency  int                `json:"frequency"`
	Commission *float64           `json:"commission"`
	Cash       float64            `json:"cash"`
	Params     map[string]float64 `json:"params"`
}

func (r runRequest) toService() (service.RunRequest, error) {
	start, err := pricing.ParseDate(r.StartDate)
	if err != nil {
		return service.RunRequest{}, err
	}
	end, err := pricing.ParseDate(r.EndDate)
	if err != nil {
		return service.RunRequest{}, err
	}
	return service.RunRequest{
		StrategyID: r.StrategyID,
		Ticker:     r.Ticker,
		Start:      start,
		End:        end,
		Frequency:  r.Frequency,
		Commission: r.Commission,
		Cash:       r.Cash,
		Params:     r.Params,
	}, nil
}

func (s *Server) handleRun(c *gin.Context) {
	var body runRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req, err := body.toService()
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.svc.Run(c.Request.Context(), owner(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListSessions(c *gin.Context) {
	list, err := s.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner(c), "sessions": list})
}

func (s *Server) handlePurge(c *gin.Context) {
	n, err := s.svc.Purge(c.Request.Context(), owner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.svc.Load(c.Request.Context(), owner(c), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), owner(c), c.Param("name")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleExport renders a session as an org-mode document.
func (s *Server) handleExport(c *gin.Context) {
	sess, err := s.svc.Load(c.Request.Context(), owner(c), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}

	switch format := c.DefaultQuery("format", "org"); format {
	case "org":
		c.Header("Content-Type", "text/org; charset=utf-8")
		err = journal.WriteSessionOrg(c.Writer, sess)
	default:
		badRequest(c, fmt.Errorf("unknown format %q", format))
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("session", sess.Name).Msg("export failed")
	}
}

type saveRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.Save(c.Request.Context(), owner(c), c.Param("name"), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "permanent": true})
}

func (s *Server) handleRerun(c *gin.Context) {
	sess, err := s.svc.Rerun(c.Request.Context(), owner(c), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type optimizeRequest struct {
	Ranges map[string]optimize.Range `json:"ranges" binding:"required"`
}

func (s *Server) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	start := time.Now()
	sess, err := s.svc.Optimize(c.Request.Context(), owner(c), c.Param("name"), req.Ranges)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("session", sess.Name).Dur("took", time.Since(start)).Msg("optimization done")
	c.JSON(http.StatusOK, sess)
}
