// ============================================================================
// internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// Exam Types & Roles
// ============================================================================

const (
	ExamTypeIIT = "IIT"
	ExamTypeCDF = "CDF"
)

const (
	RoleAdmin     = "admin"
	RolePrincipal = "principal"
	RoleIncharge  = "incharge"
	RoleManager   = "manager"
)

const (
	InstituteTypeSchool  = "school"
	InstituteTypeCollege = "college"
)

// IsValidExamType checks if the exam type is a recognized kind
func IsValidExamType(examType string) bool {
	return examType == ExamTypeIIT || examType == ExamTypeCDF
}

// IsValidRole checks if user role is valid
func IsValidRole(role string) bool {
	validRoles := map[string]bool{
		RoleAdmin: true, RolePrincipal: true, RoleIncharge: true, RoleManager: true,
	}
	return validRoles[role]
}

// IsValidInstituteType checks if institute type is valid
func IsValidInstituteType(t string) bool {
	return t == InstituteTypeSchool || t == InstituteTypeCollege
}

// ============================================================================
// Student Models
// ============================================================================

// Answer is a single question entry inside an IIT exam record
type Answer struct {
	QuestionNumber int32  `bson:"question_number" json:"questionNumber"`
	CorrectOption  string `bson:"correct_option" json:"correctOption"`
	SelectedOption string `bson:"selected_option" json:"selectedOption"`
}

// ExamData is the kind-dependent exam payload. For IIT exams SubjectScores
// carries the four fixed slots (subject1..subject4); for CDF exams it is an
// open mapping keyed by whatever subject columns the source file had.
type ExamData struct {
	ExamName   string  `bson:"exam_name" json:"examName"`
	Date       string  `bson:"date,omitempty" json:"date,omitempty"`
	TotalMarks float64 `bson:"total_marks" json:"totalMarks"`
	Rank       int32   `bson:"rank" json:"rank"`

	SubjectScores map[string]float64 `bson:"subject_scores" json:"subjectScores"`
	SubjectRanks  map[string]int32   `bson:"subject_ranks,omitempty" json:"subjectRanks,omitempty"`

	// IIT-specific fields
	ExamSet          string   `bson:"exam_set,omitempty" json:"examSet,omitempty"`
	Grade            string   `bson:"grade,omitempty" json:"grade,omitempty"`
	CorrectAnswers   int32    `bson:"correct_answers,omitempty" json:"correctAnswers,omitempty"`
	IncorrectAnswers int32    `bson:"incorrect_answers,omitempty" json:"incorrectAnswers,omitempty"`
	NotAttempted     int32    `bson:"not_attempted,omitempty" json:"notAttempted,omitempty"`
	Answers          []Answer `bson:"answers,omitempty" json:"answers,omitempty"`
}

// Exam is one entry in a student's exam history. The (ExamType, ExamName)
// pair is unique within a student; re-uploading the same pair replaces the
// entry in place.
type Exam struct {
	ExamType string   `bson:"exam_type" json:"examType"` // IIT or CDF
	ExamName string   `bson:"exam_name" json:"examName"`
	ExamData ExamData `bson:"exam_data" json:"examData"`
}

// Student represents a student document. RollNo is the system-wide unique
// identity key; the record is created lazily on first mark upload.
type Student struct {
	ID          string    `bson:"_id" json:"id"`
	RollNo      string    `bson:"roll_no" json:"rollNo"`
	Name        string    `bson:"name" json:"name"`
	ClassID     string    `bson:"class_id,omitempty" json:"classId,omitempty"`
	InstituteID string    `bson:"institute_id,omitempty" json:"instituteId,omitempty"`
	Exams       []Exam    `bson:"exams" json:"exams"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// ============================================================================
// Class Models
// ============================================================================

// Class represents a class/section within an institute
type Class struct {
	ID             string    `bson:"_id" json:"id"`
	ClassName      string    `bson:"class_name" json:"className"`
	Year           int32     `bson:"year" json:"year"`
	Section        string    `bson:"section" json:"section"`
	ClassTeacherID string    `bson:"class_teacher_id,omitempty" json:"classTeacherId,omitempty"`
	StudentIDs     []string  `bson:"students" json:"students"`
	InstituteID    string    `bson:"institute_id" json:"instituteId"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// ============================================================================
// Institute Models
// ============================================================================

// Address is the institute postal address subdocument
type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Pincode string `bson:"pincode,omitempty" json:"pincode,omitempty"`
}

// Contact is the institute contact info subdocument
type Contact struct {
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Website string `bson:"website,omitempty" json:"website,omitempty"`
}

// Institute represents a school or college
type Institute struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	InstituteCode string    `bson:"institute_code" json:"instituteCode"`
	Type          string    `bson:"type" json:"type"` // school or college
	Address       Address   `bson:"address,omitempty" json:"address,omitempty"`
	Contact       Contact   `bson:"contact,omitempty" json:"contact,omitempty"`
	Logo          string    `bson:"logo,omitempty" json:"logo,omitempty"`
	ClassIDs      []string  `bson:"classes" json:"classes"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// ============================================================================
// User Models
// ============================================================================

// User represents an account (admin, principal, incharge, or manager)
type User struct {
	ID            string    `bson:"_id" json:"id"`
	Username      string    `bson:"username" json:"username"`
	PasswordHash  string    `bson:"password_hash" json:"-"` // Never expose in JSON
	Name          string    `bson:"name" json:"name"`
	Role          string    `bson:"role" json:"role"`
	InstitutionID string    `bson:"institution_id,omitempty" json:"institutionId,omitempty"`
	IsActive      bool      `bson:"is_active" json:"isActive"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// ============================================================================
// Audit Models
// ============================================================================

// LoginLog records one login (and the matching logout, once it happens)
type LoginLog struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"userId"`
	IP          string    `bson:"ip" json:"ip"`
	OS          string    `bson:"os" json:"os"`
	Browser     string    `bson:"browser" json:"browser"`
	LoggedInAt  time.Time `bson:"logged_in_at" json:"loggedInAt"`
	LoggedOutAt time.Time `bson:"logged_out_at,omitempty" json:"loggedOutAt,omitempty"`
}

// Visitor records one hit on a tracked page (signup/login)
type Visitor struct {
	ID        string    `bson:"_id" json:"id"`
	IP        string    `bson:"ip" json:"ip"`
	OS        string    `bson:"os" json:"os"`
	Browser   string    `bson:"browser" json:"browser"`
	URL       string    `bson:"url" json:"url"`
	VisitedAt time.Time `bson:"visited_at" json:"visitedAt"`
}
