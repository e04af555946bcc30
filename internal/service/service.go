package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"coursebook/internal/codec"
	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/provider"
)

// ErrNotFound means no course has the requested id
var ErrNotFound = errors.New("course not found")

// Import strategies
const (
	StrategyMerge   = "merge"
	StrategyReplace = "replace"
)

// SaveOutcome reports what Save did
type SaveOutcome int

const (
	// Skipped means a new course had no fields at all, so nothing was stored
	Skipped SaveOutcome = iota
	Created
	Updated
)

func (o SaveOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "skipped"
	}
}

// CourseService provides business logic for course operations
type CourseService struct {
	provider *provider.Provider
	log      *zap.Logger
}

// NewCourseService creates a new course service
func NewCourseService(p *provider.Provider, log *zap.Logger) *CourseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseService{
		provider: p,
		log:      log,
	}
}

// Provider returns the gateway the service works through
func (s *CourseService) Provider() *provider.Provider {
	return s.provider
}

// ListCourses returns every course in the given order. Columns limits the
// fields that are filled in; empty means all.
func (s *CourseService) ListCourses(ctx context.Context, columns []string, order string) ([]domain.Course, error) {
	cur, err := s.provider.Query(ctx, contract.CollectionURI, provider.QueryArgs{
		Columns: columns,
		Order:   order,
	})
	if err != nil {
		return nil, err
	}
	courses, err := cur.Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to read courses: %w", err)
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return courses, nil
}

// GetCourse retrieves a single course by id
func (s *CourseService) GetCourse(ctx context.Context, id int64) (*domain.Course, error) {
	cur, err := s.provider.Query(ctx, contract.ItemURI(id), provider.QueryArgs{})
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("failed to read course %d: %w", id, err)
		}
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return cur.Course(), nil
}

// CreateCourse stores a new course and sets its id
func (s *CourseService) CreateCourse(ctx context.Context, course *domain.Course) error {
	uri, err := s.provider.Insert(ctx, contract.CollectionURI, course.Values())
	if err != nil {
		return err
	}

	m, err := provider.Resolve(uri)
	if err != nil {
		return fmt.Errorf("insert returned %s: %w", uri, err)
	}
	course.ID = m.ID
	return nil
}

// UpdateCourse applies a partial set of values to one course
func (s *CourseService) UpdateCourse(ctx context.Context, id int64, values domain.Values) error {
	n, err := s.provider.Update(ctx, contract.ItemURI(id), values, domain.Filter{})
	if err != nil {
		return err
	}
	if n == 0 && len(values) > 0 {
		return fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return nil
}

// SaveCourse stores course the way the editor does. A course without an id
// is inserted unless every field is blank, in which case nothing happens.
// A course with an id replaces every writable field of the stored one.
func (s *CourseService) SaveCourse(ctx context.Context, course *domain.Course) (SaveOutcome, error) {
	if course.ID == 0 {
		if isBlank(course) {
			return Skipped, nil
		}
		if err := s.CreateCourse(ctx, course); err != nil {
			return Skipped, err
		}
		return Created, nil
	}

	if err := s.UpdateCourse(ctx, course.ID, course.Values()); err != nil {
		return Skipped, err
	}
	return Updated, nil
}

// DeleteCourse removes one course
func (s *CourseService) DeleteCourse(ctx context.Context, id int64) error {
	n, err := s.provider.Delete(ctx, contract.ItemURI(id), domain.Filter{})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return nil
}

// ClearCourses removes every course and returns how many went
func (s *CourseService) ClearCourses(ctx context.Context) (int64, error) {
	n, err := s.provider.Delete(ctx, contract.CollectionURI, domain.Filter{})
	if err != nil {
		return 0, err
	}
	s.log.Info("cleared courses", zap.Int64("rows", n))
	return n, nil
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Created  int    `json:"created"`
	Deleted  int64  `json:"deleted"`
	Strategy string `json:"strategy"`
}

// Import reads courses in format from r and inserts them. Ids in the input
// are ignored. "replace" clears the table first, "merge" only appends.
// Courses are inserted one statement at a time, so a failure part way
// leaves the earlier ones stored.
func (s *CourseService) Import(ctx context.Context, format string, r io.Reader, strategy string) (*ImportResult, error) {
	if strategy == "" {
		strategy = StrategyMerge
	}
	if strategy != StrategyMerge && strategy != StrategyReplace {
		return nil, fmt.Errorf("%w: invalid strategy %s, must be 'merge' or 'replace'", provider.ErrInvalidArgument, strategy)
	}

	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	courses, err := c.Parse(r)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if err := courses[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: course %d: %v", provider.ErrInvalidArgument, i+1, err)
		}
	}

	result := &ImportResult{Strategy: strategy}
	if strategy == StrategyReplace {
		if result.Deleted, err = s.ClearCourses(ctx); err != nil {
			return result, err
		}
	}

	for i := range courses {
		course := courses[i]
		course.ID = 0
		if err := s.CreateCourse(ctx, &course); err != nil {
			return result, fmt.Errorf("import course %q: %w", course.Name, err)
		}
		result.Created++
	}

	s.log.Info("imported courses",
		zap.String("format", c.Format()),
		zap.String("strategy", strategy),
		zap.Int("created", result.Created),
		zap.Int64("deleted", result.Deleted))
	return result, nil
}

// Export writes every course in format to w, ordered by id
func (s *CourseService) Export(ctx context.Context, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	courses, err := s.ListCourses(ctx, nil, contract.ColumnID)
	if err != nil {
		return err
	}
	return c.Export(courses, w)
}

func isBlank(c *domain.Course) bool {
	return c.Name == "" && c.Room == "" && c.Teacher == "" && c.Time == "" && c.Day == ""
}
