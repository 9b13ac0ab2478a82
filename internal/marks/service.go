// ============================================================================
// internal/marks/service.go
// Upsert engine: batch mark uploads into the student collection, plus the
// report/roster read paths and class mark statistics
// ============================================================================

package marks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"markregister/internal/ingest"
	"markregister/internal/shared"
)

const queryTimeout = 10 * time.Second

// Service implements the mark upsert engine and report reads over MongoDB
type Service struct {
	db            *mongo.Database
	studentsCol   *mongo.Collection
	classesCol    *mongo.Collection
	institutesCol *mongo.Collection
	maxBatchSize  int
	rollLocks     *keyedMutex
}

// NewService creates a new marks Service instance
func NewService(db *mongo.Database, maxBatchSize int) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = 5000
	}
	return &Service{
		db:            db,
		studentsCol:   db.Collection(shared.ColStudents),
		classesCol:    db.Collection(shared.ColClasses),
		institutesCol: db.Collection(shared.ColInstitutes),
		maxBatchSize:  maxBatchSize,
		rollLocks:     newKeyedMutex(),
	}
}

// UploadRequest is one client-submitted batch of exam submissions
type UploadRequest struct {
	Students    []ingest.Submission `json:"students"`
	ClassID     string              `json:"classId"`
	TestType    string              `json:"testType"`
	InstituteID string              `json:"instituteId"`
}

// RecordResult reports the outcome of one record within a batch
type RecordResult struct {
	RollNo  string `json:"rollNo"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// UploadBatch validates and persists a batch of exam submissions. Per-record
// upserts run concurrently with a per-roll-number lock; the returned results
// report every record individually, and the error carries the first
// per-record failure so the batch as a whole still signals failure the way
// callers expect.
func (s *Service) UploadBatch(ctx context.Context, req UploadRequest) ([]RecordResult, error) {
	// Validation happens before any database work
	if req.ClassID == "" {
		return nil, shared.InvalidArgumentf("classId is required")
	}
	if req.InstituteID == "" {
		return nil, shared.InvalidArgumentf("instituteId is required")
	}
	if !shared.IsValidExamType(req.TestType) {
		return nil, shared.InvalidArgumentf("testType must be IIT or CDF")
	}
	if len(req.Students) == 0 {
		return nil, shared.InvalidArgumentf("students batch is empty")
	}
	if len(req.Students) > s.maxBatchSize {
		return nil, shared.InvalidArgumentf("batch of %d records exceeds limit of %d", len(req.Students), s.maxBatchSize)
	}

	// The target class must exist before anything is written
	var class shared.Class
	if err := shared.FindOneWithTimeout(ctx, s.classesCol, bson.M{"_id": req.ClassID}, &class, queryTimeout); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, shared.NotFoundf("class %s", req.ClassID)
		}
		return nil, shared.Internalf("failed to look up class: %v", err)
	}

	results := make([]RecordResult, len(req.Students))
	g, gctx := errgroup.WithContext(ctx)

	for i, sub := range req.Students {
		i, sub := i, sub
		g.Go(func() error {
			created, err := s.upsertOne(gctx, sub, req.ClassID, req.InstituteID)
			results[i] = RecordResult{RollNo: sub.RollNo, Created: created}
			if err != nil {
				results[i].Error = err.Error()
				return fmt.Errorf("student %s: %w", sub.RollNo, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// upsertOne applies one submission: create the student on first sight, or
// replace/append the matching exam entry. Holds the roll-number lock for the
// whole find-modify-save sequence.
func (s *Service) upsertOne(ctx context.Context, sub ingest.Submission, classID, instituteID string) (created bool, err error) {
	if sub.RollNo == "" {
		return false, fmt.Errorf("missing roll number")
	}

	unlock := s.rollLocks.Lock(sub.RollNo)
	defer unlock()

	opCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var student shared.Student
	err = s.studentsCol.FindOne(opCtx, bson.M{"roll_no": sub.RollNo}).Decode(&student)
	if err == mongo.ErrNoDocuments {
		student = shared.Student{
			ID:          shared.GenerateStudentID(),
			RollNo:      sub.RollNo,
			Name:        sub.Name,
			ClassID:     classID,
			InstituteID: instituteID,
			Exams:       []shared.Exam{sub.Exam},
			CreatedAt:   time.Now(),
		}
		if _, err := s.studentsCol.InsertOne(opCtx, student); err != nil {
			return false, fmt.Errorf("failed to create student: %w", err)
		}
		if err := s.addToClass(opCtx, classID, student.ID); err != nil {
			return true, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up student: %w", err)
	}

	student.Exams = MergeExam(student.Exams, sub.Exam)
	if student.InstituteID != "" && student.InstituteID != instituteID {
		// Affiliation drift is allowed but worth noticing
		log.Printf("Warning: student %s institute changed %s -> %s on upload", sub.RollNo, student.InstituteID, instituteID)
	}
	student.InstituteID = instituteID
	if sub.Name != "" {
		student.Name = sub.Name
	}

	// Whole-document replace, matching the save-student semantics
	if _, err := s.studentsCol.ReplaceOne(opCtx, bson.M{"_id": student.ID}, student); err != nil {
		return false, fmt.Errorf("failed to save student: %w", err)
	}

	if err := s.addToClass(opCtx, classID, student.ID); err != nil {
		return false, err
	}
	return false, nil
}

// addToClass adds the student reference to the class membership set.
// $addToSet makes repeat additions a no-op.
func (s *Service) addToClass(ctx context.Context, classID, studentID string) error {
	_, err := s.classesCol.UpdateOne(ctx,
		bson.M{"_id": classID},
		bson.M{"$addToSet": bson.M{"students": studentID}},
	)
	if err != nil {
		return fmt.Errorf("failed to update class membership: %w", err)
	}
	return nil
}

// ============================================================================
// Read Paths
// ============================================================================

// StudentSummary is the brief roster entry shape
type StudentSummary struct {
	Name   string `json:"name"`
	RollNo string `json:"rollNo"`
}

// GetReport returns the full persisted student document for one roll number
func (s *Service) GetReport(ctx context.Context, rollNo string) (*shared.Student, error) {
	if rollNo == "" {
		return nil, shared.InvalidArgumentf("rollNo is required")
	}

	var student shared.Student
	err := shared.FindOneWithTimeout(ctx, s.studentsCol, bson.M{"roll_no": rollNo}, &student, queryTimeout)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("student %s", rollNo)
	}
	if err != nil {
		return nil, shared.Internalf("failed to fetch report: %v", err)
	}
	return &student, nil
}

// ListStudents returns name and roll number for every student
func (s *Service) ListStudents(ctx context.Context) ([]StudentSummary, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	findOptions := shared.BuildFindOptions(0, "roll_no", 1).
		SetProjection(bson.M{"name": 1, "roll_no": 1})

	cursor, err := s.studentsCol.Find(queryCtx, bson.M{}, findOptions)
	if err != nil {
		return nil, shared.Internalf("failed to list students: %v", err)
	}
	defer cursor.Close(queryCtx)

	var summaries []StudentSummary
	for cursor.Next(queryCtx) {
		var st shared.Student
		if err := cursor.Decode(&st); err != nil {
			continue
		}
		summaries = append(summaries, StudentSummary{Name: st.Name, RollNo: st.RollNo})
	}
	return summaries, nil
}

// GetClassStudents returns the roster summary for one class
func (s *Service) GetClassStudents(ctx context.Context, classID string) ([]StudentSummary, error) {
	students, err := s.classStudents(ctx, classID)
	if err != nil {
		return nil, err
	}

	summaries := make([]StudentSummary, 0, len(students))
	for _, st := range students {
		summaries = append(summaries, StudentSummary{Name: st.Name, RollNo: st.RollNo})
	}
	return summaries, nil
}

// GetClassReports returns the full roster with embedded exam histories,
// after checking the caller owns the class (its incharge, or same-institute
// principal/manager; admin passes unconditionally).
func (s *Service) GetClassReports(ctx context.Context, classID string, caller *shared.User) ([]shared.Student, error) {
	if caller == nil {
		return nil, shared.PermissionDeniedf("caller identity required")
	}

	class, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case shared.RoleAdmin:
		// full access
	case shared.RoleIncharge:
		if class.ClassTeacherID != caller.ID {
			return nil, shared.PermissionDeniedf("class %s is not assigned to this incharge", classID)
		}
	case shared.RolePrincipal, shared.RoleManager:
		if class.InstituteID != caller.InstitutionID {
			return nil, shared.PermissionDeniedf("class %s belongs to another institute", classID)
		}
	default:
		return nil, shared.PermissionDeniedf("role %s cannot read class reports", caller.Role)
	}

	return s.classStudents(ctx, classID)
}

func (s *Service) getClass(ctx context.Context, classID string) (*shared.Class, error) {
	if classID == "" {
		return nil, shared.InvalidArgumentf("classId is required")
	}

	var class shared.Class
	err := shared.FindOneWithTimeout(ctx, s.classesCol, bson.M{"_id": classID}, &class, queryTimeout)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("class %s", classID)
	}
	if err != nil {
		return nil, shared.Internalf("failed to fetch class: %v", err)
	}
	return &class, nil
}

func (s *Service) classStudents(ctx context.Context, classID string) ([]shared.Student, error) {
	class, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(class.StudentIDs) == 0 {
		return []shared.Student{}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.studentsCol.Find(queryCtx,
		bson.M{"_id": bson.M{"$in": class.StudentIDs}},
		shared.BuildFindOptions(0, "roll_no", 1))
	if err != nil {
		return nil, shared.Internalf("failed to fetch class students: %v", err)
	}
	defer cursor.Close(queryCtx)

	var students []shared.Student
	for cursor.Next(queryCtx) {
		var st shared.Student
		if err := cursor.Decode(&st); err != nil {
			continue
		}
		students = append(students, st)
	}
	return students, nil
}

// ============================================================================
// Class Statistics
// ============================================================================

// ExamStatistics summarizes total-marks distribution for one exam
type ExamStatistics struct {
	ExamType string  `json:"examType"`
	ExamName string  `json:"examName"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StdDev   float64 `json:"stdDev"`
}

// ClassStatistics holds per-exam mark statistics for a class roster
type ClassStatistics struct {
	ClassID  string           `json:"classId"`
	Students int              `json:"students"`
	Exams    []ExamStatistics `json:"exams"`
}

// GetClassStatistics computes total-marks statistics per (exam type, exam
// name) across a class roster.
func (s *Service) GetClassStatistics(ctx context.Context, classID string) (*ClassStatistics, error) {
	students, err := s.classStudents(ctx, classID)
	if err != nil {
		return nil, err
	}

	return ComputeClassStatistics(classID, students)
}

// ComputeClassStatistics aggregates exam totals over a roster. Exams appear
// in first-seen order.
func ComputeClassStatistics(classID string, students []shared.Student) (*ClassStatistics, error) {
	type key struct{ examType, examName string }
	totals := make(map[key][]float64)
	var order []key

	for _, st := range students {
		for _, exam := range st.Exams {
			k := key{exam.ExamType, exam.ExamName}
			if _, seen := totals[k]; !seen {
				order = append(order, k)
			}
			totals[k] = append(totals[k], exam.ExamData.TotalMarks)
		}
	}

	result := &ClassStatistics{ClassID: classID, Students: len(students)}
	for _, k := range order {
		data := stats.Float64Data(totals[k])

		mean, err := stats.Mean(data)
		if err != nil {
			return nil, shared.Internalf("failed to compute mean for %s %s: %v", k.examType, k.examName, err)
		}
		median, _ := stats.Median(data)
		min, _ := stats.Min(data)
		max, _ := stats.Max(data)
		stdDev, _ := stats.StandardDeviation(data)

		result.Exams = append(result.Exams, ExamStatistics{
			ExamType: k.examType,
			ExamName: k.examName,
			Count:    len(data),
			Mean:     mean,
			Median:   median,
			Min:      min,
			Max:      max,
			StdDev:   stdDev,
		})
	}

	return result, nil
}
