package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"jenkins-monitor/src/auth"
	"jenkins-monitor/src/loganalyzer"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/stages"
)

type jobsResponse struct {
	Jobs []provider.Job `json:"jobs"`
}

type buildsResponse struct {
	JobName   string                 `json:"jobName"`
	Builds    []stages.BuildSnapshot `json:"builds"`
	LastBuild *stages.BuildSnapshot  `json:"lastBuild"`
}

type logsResponse struct {
	Logs    string `json:"logs"`
	Command string `json:"command"`
}

type stagesResponse struct {
	Stages       []provider.StageRecord `json:"stages"`
	FailedStage  string                 `json:"failedStage,omitempty"`
	CurrentStage string                 `json:"currentStage,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.provider.ListJobs(r.Context())
	if err != nil {
		s.log.Error("list jobs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch jobs",
			"jobs":  []provider.Job{},
		})
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	visible := make([]provider.Job, 0, len(jobs))
	for _, j := range jobs {
		if claims.CanSeeJob(j.Name) {
			visible = append(visible, j)
		}
	}
	writeJSON(w, http.StatusOK, jobsResponse{Jobs: visible})
}

// handleParameters answers 200 even when Jenkins fails; the job then reads as
// having no parameters.
func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobVar(w, r)
	if !ok {
		return
	}

	params, err := s.provider.FetchJobParameters(r.Context(), job)
	if err != nil {
		s.log.Warn("parameters of %s: %v", job, err)
		params = provider.NoParameters()
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobVar(w, r)
	if !ok {
		return
	}

	resp := buildsResponse{JobName: job, Builds: []stages.BuildSnapshot{}}
	snaps, err := s.resolver.RecentBuilds(r.Context(), job)
	switch {
	case errors.Is(err, provider.ErrJobNotFound):
		// Unknown jobs list as empty.
	case err != nil:
		s.log.Error("recent builds of %s: %v", job, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to fetch Jenkins data",
			"message": err.Error(),
			"builds":  []stages.BuildSnapshot{},
		})
		return
	default:
		resp.Builds = snaps
	}

	if len(resp.Builds) > 0 {
		resp.LastBuild = &resp.Builds[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	job, number, ok := s.buildVars(w, r)
	if !ok {
		return
	}

	snap, err := s.resolver.Build(r.Context(), job, number)
	if err != nil {
		s.log.Warn("build %s #%d: %v", job, number, err)
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Failed to fetch build data", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	job, number, ok := s.buildVars(w, r)
	if !ok {
		return
	}

	text, err := s.provider.FetchConsoleText(r.Context(), job, number)
	if err != nil {
		s.log.Warn("console text %s #%d: %v", job, number, err)
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Failed to fetch build logs", Message: err.Error()})
		return
	}

	command, _ := loganalyzer.FindFailingCommand(text)
	writeJSON(w, http.StatusOK, logsResponse{Logs: text, Command: command})
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	job, number, ok := s.buildVars(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	meta, err := s.provider.FetchBuildMetadata(ctx, job, number)
	if err != nil {
		s.log.Warn("build %s #%d: %v", job, number, err)
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Failed to fetch build data", Message: err.Error()})
		return
	}

	stageList, err := s.provider.FetchStageList(ctx, job, number)
	if err != nil {
		s.log.Warn("stage list %s #%d: %v", job, number, err)
		stageList = nil
	}

	snap := stages.Resolve(ctx, *meta, stageList, func(ctx context.Context) (string, error) {
		return s.provider.FetchConsoleText(ctx, job, number)
	})

	if stageList == nil {
		stageList = []provider.StageRecord{}
	}
	writeJSON(w, http.StatusOK, stagesResponse{
		Stages:       stageList,
		FailedStage:  snap.FailedStage,
		CurrentStage: snap.CurrentStage,
	})
}

// jobVar decodes the job path variable and checks the caller may see it.
func (s *Server) jobVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	job, err := url.PathUnescape(mux.Vars(r)["job"])
	if err != nil || job == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid job name"})
		return "", false
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if !claims.CanSeeJob(job) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Access denied."})
		return "", false
	}
	return job, true
}

func (s *Server) buildVars(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	job, ok := s.jobVar(w, r)
	if !ok {
		return "", 0, false
	}
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil || number <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid build number"})
		return "", 0, false
	}
	return job, number, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
