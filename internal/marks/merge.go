// ============================================================================
// internal/marks/merge.go
// Exam-history merge: the replace-in-place-or-append invariant
// ============================================================================

package marks

import "markregister/internal/shared"

// MergeExam applies one submitted exam to a student's exam history. If an
// entry with the same (exam type, exam name) pair exists, its payload is
// replaced in place, preserving list position; otherwise the exam is
// appended. Last write wins; no history is retained.
func MergeExam(exams []shared.Exam, exam shared.Exam) []shared.Exam {
	for i := range exams {
		if exams[i].ExamType == exam.ExamType && exams[i].ExamName == exam.ExamName {
			exams[i] = exam
			return exams
		}
	}
	return append(exams, exam)
}
