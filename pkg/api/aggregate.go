package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/aggregate"
)

// ApplicantEnrolleeResponse is the body of GET /api/applicant-enrollee
type ApplicantEnrolleeResponse struct {
	ApplicantEnrolleeData []aggregate.YearTotal `json:"applicantEnrolleeData"`
}

// AggregateHandler serves the dashboard aggregation routes
type AggregateHandler struct {
	service *aggregate.Service
	logger  *zap.Logger
}

// NewAggregateHandler creates a handler over the aggregation service
func NewAggregateHandler(service *aggregate.Service, logger *zap.Logger) *AggregateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregateHandler{service: service, logger: logger.Named("aggregate-handler")}
}

// query adapts an aggregation to a GET handler reading its filter from param
func query[T any](h *AggregateHandler, param string, fn func(context.Context, string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fn(c.Request.Context(), c.Query(param))
		if err != nil {
			h.logger.Error("Failed to fetch data",
				zap.String("path", c.FullPath()),
				zap.String(param, c.Query(param)),
				zap.Error(err))
			RespondError(c, http.StatusInternalServerError, CodeScan, "Failed to fetch data")
			return
		}
		RespondOK(c, DataEnvelope{Data: data})
	}
}

// ApplicantEnrollee serves per-year totals for an optional courseCode
func (h *AggregateHandler) ApplicantEnrollee(c *gin.Context) {
	data, err := h.service.ApplicantEnrollee(c.Request.Context(), c.Query("courseCode"))
	if err != nil {
		h.logger.Error("Failed to fetch applicant enrollee data", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, CodeScan, "Failed to fetch data")
		return
	}
	RespondOK(c, ApplicantEnrolleeResponse{ApplicantEnrolleeData: data})
}

// Register mounts every aggregation route on g
func (h *AggregateHandler) Register(g *gin.RouterGroup) {
	s := h.service

	// Student profile dimensions
	g.GET("/family-monthly-income", query(h, "college", s.FamilyMonthlyIncome))
	g.GET("/years-of-residency", query(h, "college", s.YearsOfResidency))
	g.GET("/profile-age", query(h, "college", s.ProfileAge))
	g.GET("/deans-lister", query(h, "college", s.DeansLister))
	g.GET("/presidents-lister", query(h, "college", s.PresidentsLister))
	g.GET("/working-student", query(h, "college", s.WorkingStudent))
	g.GET("/is-pwd", query(h, "college", s.IsPWD))
	g.GET("/is-lgbtqia", query(h, "college", s.IsLGBTQIA))
	g.GET("/academic-status", query(h, "college", s.AcademicStatus))
	g.GET("/shs-strand", query(h, "college", s.SHSStrand))
	g.GET("/civil-status", query(h, "college", s.CivilStatus))
	g.GET("/enrollment-data", query(h, "college", s.EnrollmentData))

	// Enrollment dimensions
	g.GET("/residency", query(h, "college", s.Residency))
	g.GET("/pasig-barangay", query(h, "college", s.PasigBarangay))
	g.GET("/non-pasig-residents", query(h, "college", s.NonPasigResidents))
	g.GET("/age-distribution", query(h, "college", s.AgeDistribution))
	g.GET("/enrollment-income", query(h, "college", s.EnrollmentIncome))
	g.GET("/gender", query(h, "college", s.Gender))
	g.GET("/religion", query(h, "college", s.Religion))
	g.GET("/feeder-school", query(h, "course", s.FeederSchool))

	g.GET("/applicant-enrollee", h.ApplicantEnrollee)
}
