package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/scan"
	"github.com/David-Botos/enrollment-ingress/pkg/store"
)

// AllColleges is the filter value the dashboard sends for "no filter"
const AllColleges = "All Colleges"

const (
	fillPrimary   = "hsl(var(--chart-1))"
	fillSecondary = "hsl(var(--chart-2))"
)

// Labels used by the enrollment breakdowns
const (
	LabelPasig    = "pasig"
	LabelNonPasig = "nonpasig"
	LabelFemale   = "female"
	LabelMale     = "male"
	LabelUnknown  = "Unknown"
)

// ScanObserver is notified after every completed table scan
type ScanObserver interface {
	ObserveScan(table string, stats scan.Stats)
}

// Service answers dashboard queries by scanning the store and bucketing rows
type Service struct {
	store    *store.Store
	pageSize int
	logger   *zap.Logger
	observer ScanObserver
}

// NewService creates an aggregation service. observer may be nil.
func NewService(st *store.Store, pageSize int, logger *zap.Logger, observer ScanObserver) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Service{store: st, pageSize: pageSize, logger: logger, observer: observer}
}

// IsAll reports whether a filter value means "every row"
func IsAll(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || v == AllColleges || v == "All College"
}

// ProgramRow is one (email, program) pair of the raw enrollment listing
type ProgramRow struct {
	Email             string `json:"email"`
	CurricularProgram string `json:"curricularProgram"`
}

// YearTotal holds applicant and enrollee counts for one academic year
type YearTotal struct {
	AcademicYear   string `json:"academic_year"`
	ApplicantCount int    `json:"applicant_count"`
	EnrolleeCount  int    `json:"enrollee_count"`
}

func filterFor(column, value string, mode store.MatchMode) store.Filter {
	if IsAll(value) {
		return store.Filter{}
	}
	return store.Filter{Column: column, Value: strings.TrimSpace(value), Mode: mode}
}

func collect[T any](ctx context.Context, s *Service, table string, fetch scan.PageFunc[T]) ([]T, error) {
	start := time.Now()
	rows, stats, err := scan.All(ctx, s.pageSize, fetch)
	if err != nil {
		s.logger.Error("Scan failed",
			zap.String("table", table),
			zap.Int("requests", stats.Requests),
			zap.Error(err))
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}

	if s.observer != nil {
		s.observer.ObserveScan(table, stats)
	}
	s.logger.Debug("Scanned table",
		zap.String("table", table),
		zap.Int("rows", stats.Rows),
		zap.Int("requests", stats.Requests),
		zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

func (s *Service) profiles(ctx context.Context, college string, mode store.MatchMode) ([]model.StudentProfile, error) {
	f := filterFor("curricular_program", college, mode)
	return collect(ctx, s, "student_profiles", s.store.Profiles(f))
}

func (s *Service) enrollments(ctx context.Context, course string, mode store.MatchMode) ([]model.EnrollmentRecord, error) {
	f := filterFor("course", course, mode)
	return collect(ctx, s, "enrollments", s.store.Enrollments(f))
}

func (s *Service) correlations(ctx context.Context, course string) ([]model.CorrelationRecord, error) {
	f := filterFor("course", course, store.MatchExact)
	return collect(ctx, s, "applicant_enrollee_correlations", s.store.Correlations(f))
}

func yesNoFill(label string) string {
	if label == model.LabelYes {
		return fillPrimary
	}
	return fillSecondary
}

// FamilyMonthlyIncome buckets profiles by income bracket
func (s *Service) FamilyMonthlyIncome(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, model.IncomeBrackets.Labels(), func(p model.StudentProfile) string {
		return p.FamilyMonthlyIncome
	}), nil
}

// YearsOfResidency buckets profiles by years lived in Pasig. The program
// filter matches exactly.
func (s *Service) YearsOfResidency(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, model.ResidencyBrackets.Labels(), func(p model.StudentProfile) string {
		return p.YearsInPasig
	}), nil
}

// ProfileAge buckets profiles by age bracket
func (s *Service) ProfileAge(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, model.AgeBrackets.Labels(), func(p model.StudentProfile) string {
		return p.Age
	}), nil
}

// DeansLister reports the share of dean's listers among rows answering Yes or No
func (s *Service) DeansLister(ctx context.Context, college string) (Share, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return Share{}, err
	}
	b := Fixed(rows, model.YesNo, func(p model.StudentProfile) string { return p.DeansLister })
	yes := Count(b, model.LabelYes)
	total := Total(b)
	return Share{
		Name:  "Dean's Lister",
		Value: Percentage(yes, total),
		Count: yes,
		Total: total,
		Fill:  fillPrimary,
	}, nil
}

// PresidentsLister splits profiles into president's listers and the rest
func (s *Service) PresidentsLister(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	b := Fixed(rows, model.YesNo, func(p model.StudentProfile) string { return p.PresidentsLister })
	return []Bucket{
		{Label: "President's Lister", Count: Count(b, model.LabelYes), Fill: fillPrimary},
		{Label: "Non-President's Lister", Count: Count(b, model.LabelNo), Fill: fillSecondary},
	}, nil
}

// WorkingStudent counts working and non-working students
func (s *Service) WorkingStudent(ctx context.Context, college string) ([]Bucket, error) {
	return s.yesNo(ctx, college, func(p model.StudentProfile) string { return p.WorkingStudent })
}

// IsLGBTQIA counts students identifying as LGBTQIA
func (s *Service) IsLGBTQIA(ctx context.Context, college string) ([]Bucket, error) {
	return s.yesNo(ctx, college, func(p model.StudentProfile) string { return p.IsLGBTQIA })
}

// IsPWD counts students with a disability. A missing answer counts as No.
func (s *Service) IsPWD(ctx context.Context, college string) ([]Bucket, error) {
	return s.yesNo(ctx, college, func(p model.StudentProfile) string {
		if p.IsPWD == "" {
			return model.LabelNo
		}
		return p.IsPWD
	})
}

func (s *Service) yesNo(ctx context.Context, college string, labelOf func(model.StudentProfile) string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return WithFill(Fixed(rows, model.YesNo, labelOf), yesNoFill), nil
}

// AcademicStatus tallies the academic status labels found in the data
func (s *Service) AcademicStatus(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	b := Dynamic(rows, func(p model.StudentProfile) string { return p.AcademicStatus })
	return WithFill(b, func(label string) string {
		if label == "Regular" {
			return "var(--color-regular)"
		}
		return "var(--color-irregular)"
	}), nil
}

// SHSStrand tallies senior high school strands
func (s *Service) SHSStrand(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return Dynamic(rows, func(p model.StudentProfile) string { return p.StrandInSHS }), nil
}

// CivilStatus tallies civil status labels
func (s *Service) CivilStatus(ctx context.Context, college string) ([]Bucket, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return Dynamic(rows, func(p model.StudentProfile) string { return p.CivilStatus }), nil
}

// EnrollmentData lists the email and program of every matching profile
func (s *Service) EnrollmentData(ctx context.Context, college string) ([]ProgramRow, error) {
	rows, err := s.profiles(ctx, college, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]ProgramRow, len(rows))
	for i, p := range rows {
		out[i] = ProgramRow{Email: p.Email, CurricularProgram: p.CurricularProgram}
	}
	return out, nil
}

// Residency splits enrollees into Pasig residents and non-residents
func (s *Service) Residency(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, []string{LabelPasig, LabelNonPasig}, func(e model.EnrollmentRecord) string {
		if e.IsPasigueno {
			return LabelPasig
		}
		return LabelNonPasig
	}), nil
}

// PasigBarangay tallies the barangays of enrollees living in Pasig
func (s *Service) PasigBarangay(ctx context.Context, course string) ([]Bucket, error) {
	return s.barangays(ctx, course, true)
}

// NonPasigResidents tallies the localities of enrollees living outside Pasig
func (s *Service) NonPasigResidents(ctx context.Context, course string) ([]Bucket, error) {
	return s.barangays(ctx, course, false)
}

func (s *Service) barangays(ctx context.Context, course string, pasig bool) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Dynamic(rows, func(e model.EnrollmentRecord) string {
		if e.IsPasigueno != pasig {
			return ""
		}
		if e.Barangay == "" {
			return LabelUnknown
		}
		return e.Barangay
	}), nil
}

// AgeDistribution buckets enrollees by age bracket
func (s *Service) AgeDistribution(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, model.AgeBrackets.Labels(), func(e model.EnrollmentRecord) string {
		return model.AgeBrackets.Assign(float64(e.Age))
	}), nil
}

// EnrollmentIncome buckets enrollees by family monthly income
func (s *Service) EnrollmentIncome(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, model.IncomeBrackets.Labels(), func(e model.EnrollmentRecord) string {
		return model.IncomeBrackets.Assign(e.FamilyMonthlyIncome)
	}), nil
}

// Gender counts female and male enrollees, ignoring case
func (s *Service) Gender(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	return Fixed(rows, []string{LabelFemale, LabelMale}, func(e model.EnrollmentRecord) string {
		return strings.ToLower(e.Gender)
	}), nil
}

// Religion tallies religions of enrollees whose course starts with course
func (s *Service) Religion(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchPrefix)
	if err != nil {
		return nil, err
	}
	return Dynamic(rows, func(e model.EnrollmentRecord) string { return e.Religion }), nil
}

// FeederSchool tallies feeder school types, lower-cased
func (s *Service) FeederSchool(ctx context.Context, course string) ([]Bucket, error) {
	rows, err := s.enrollments(ctx, course, store.MatchExact)
	if err != nil {
		return nil, err
	}
	b := Dynamic(rows, func(e model.EnrollmentRecord) string { return strings.ToLower(e.FeederSchoolType) })
	return WithFill(b, func(label string) string {
		if label == "public" {
			return "var(--color-public)"
		}
		return "var(--color-private)"
	}), nil
}

// ApplicantEnrollee returns per-year counts in ascending year order. With no
// course filter the counts of every course are summed per year.
func (s *Service) ApplicantEnrollee(ctx context.Context, courseCode string) ([]YearTotal, error) {
	rows, err := s.correlations(ctx, courseCode)
	if err != nil {
		return nil, err
	}

	out := []YearTotal{}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.AcademicYear]
		if !ok {
			i = len(out)
			index[r.AcademicYear] = i
			out = append(out, YearTotal{AcademicYear: r.AcademicYear})
		}
		out[i].ApplicantCount += r.ApplicantCount
		out[i].EnrolleeCount += r.EnrolleeCount
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AcademicYear < out[j].AcademicYear
	})
	return out, nil
}
