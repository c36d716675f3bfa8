package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	schedulerdomain "github.com/smallbiznis/netbill/internal/scheduler/domain"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// JobRunner is the slice of the scheduler the admin API drives.
type JobRunner interface {
	Jobs() []string
	Running(name string) bool
	Trigger(ctx context.Context, name string) (schedulerdomain.RunRecord, error)
	Runs(ctx context.Context, filter schedulerdomain.ListRunsFilter) ([]schedulerdomain.RunRecord, error)
}

type jobView struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

func (s *Server) ListJobs(c *gin.Context) {
	names := s.jobs.Jobs()
	out := make([]jobView, 0, len(names))
	for _, name := range names {
		out = append(out, jobView{Name: name, Running: s.jobs.Running(name)})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// RunJob executes a job synchronously. A job that fails still answers 200;
// the outcome is in the returned run record.
func (s *Server) RunJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("job"))
	run, err := s.jobs.Trigger(c.Request.Context(), name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("admin.job.triggered",
		zap.String("job", name),
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
	)
	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) ListRuns(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	runs, err := s.jobs.Runs(c.Request.Context(), schedulerdomain.ListRunsFilter{
		Job:   strings.TrimSpace(c.Query("job")),
		Limit: limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if runs == nil {
		runs = []schedulerdomain.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func parseLimit(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultRunsLimit, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidRequest)
	}
	if parsed > maxRunsLimit {
		parsed = maxRunsLimit
	}
	return parsed, nil
}
