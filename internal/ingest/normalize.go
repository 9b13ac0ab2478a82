// ============================================================================
// internal/ingest/normalize.go
// Exam schema normalizer: heterogeneous row records into canonical
// kind-tagged exam submissions
// ============================================================================

package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"markregister/internal/shared"
)

// maxAnswerQuestions bounds the per-question answer-key scan for IIT sheets
const maxAnswerQuestions = 90

// Submission is one normalized exam-submission record, ready for the upsert
// engine.
type Submission struct {
	RollNo string      `json:"rollNo"`
	Name   string      `json:"name"`
	Exam   shared.Exam `json:"exam"`
}

// Normalizer maps row records onto canonical exam submissions using a
// configurable header alias table.
type Normalizer struct {
	aliases *AliasTable
}

// NewNormalizer creates a normalizer with the given alias table, falling
// back to the compiled defaults when nil.
func NewNormalizer(aliases *AliasTable) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize converts parsed rows into submissions for the declared exam
// kind. It never fails on malformed cell values (they coerce to zero); the
// only error is an unrecognized exam kind.
func (n *Normalizer) Normalize(rows []Row, examType string) ([]Submission, error) {
	switch examType {
	case shared.ExamTypeIIT:
		return n.normalizeIIT(rows), nil
	case shared.ExamTypeCDF:
		return n.normalizeCDF(rows), nil
	default:
		return nil, shared.InvalidArgumentf("unknown exam type %q", examType)
	}
}

func (n *Normalizer) normalizeIIT(rows []Row) []Submission {
	a := &n.aliases.IIT
	subs := make([]Submission, 0, len(rows))

	for i, row := range rows {
		scores := make(map[string]float64, len(a.Subjects))
		ranks := make(map[string]int32, len(a.Subjects))
		for slot, aliases := range a.Subjects {
			key := fmt.Sprintf("subject%d", slot+1)
			scores[key] = Num(firstOf(row, aliases))
			ranks[key] = 0
		}

		data := shared.ExamData{
			ExamName:         firstOf(row, a.ExamName),
			Date:             firstOf(row, a.Date),
			TotalMarks:       Num(firstOf(row, a.TotalMarks)),
			Rank:             Int(firstOf(row, a.Rank)),
			ExamSet:          firstOf(row, a.ExamSet),
			Grade:            firstOf(row, a.Grade),
			CorrectAnswers:   Int(firstOf(row, a.Correct)),
			IncorrectAnswers: Int(firstOf(row, a.Incorrect)),
			NotAttempted:     Int(firstOf(row, a.NotAttempted)),
			SubjectScores:    scores,
			SubjectRanks:     ranks,
			Answers:          extractAnswers(row),
		}
		if data.ExamName == "" {
			data.ExamName = defaultExamName(shared.ExamTypeIIT, i)
		}

		subs = append(subs, Submission{
			RollNo: firstOf(row, a.RollNo),
			Name:   firstOf(row, a.Name),
			Exam: shared.Exam{
				ExamType: shared.ExamTypeIIT,
				ExamName: data.ExamName,
				ExamData: data,
			},
		})
	}

	return subs
}

func (n *Normalizer) normalizeCDF(rows []Row) []Submission {
	a := &n.aliases.CDF
	excluded := a.cdfExclusionSet()
	subs := make([]Submission, 0, len(rows))

	for i, row := range rows {
		// Schema-on-read: every non-excluded header is a subject column
		scores := make(map[string]float64)
		for header, value := range row {
			if excluded[strings.ToLower(header)] {
				continue
			}
			scores[header] = Num(value)
		}

		data := shared.ExamData{
			ExamName:      firstOf(row, a.ExamName),
			Date:          firstOf(row, a.Date),
			TotalMarks:    Num(firstOf(row, a.TotalMarks)),
			Rank:          Int(firstOf(row, a.Rank)),
			SubjectScores: scores,
		}
		if data.ExamName == "" {
			data.ExamName = defaultExamName(shared.ExamTypeCDF, i)
		}

		subs = append(subs, Submission{
			RollNo: firstOf(row, a.RollNo),
			Name:   firstOf(row, a.Name),
			Exam: shared.Exam{
				ExamType: shared.ExamTypeCDF,
				ExamName: data.ExamName,
				ExamData: data,
			},
		})
	}

	return subs
}

// firstOf returns the first non-empty value among the alias candidates,
// in order.
func firstOf(row Row, aliases []string) string {
	for _, key := range aliases {
		if v := row[key]; v != "" {
			return v
		}
	}
	return ""
}

// defaultExamName synthesizes a dedup key for rows that carry no exam name,
// so the upsert key is never empty. Rows are numbered from 1.
func defaultExamName(examType string, rowIndex int) string {
	return fmt.Sprintf("%s-Test-%d", examType, rowIndex+1)
}

// extractAnswers pulls the per-question answer key columns ("Q 1 Key" /
// "Q 1 Options") present on some IIT sheets. Sheets without answer columns
// produce no entries.
func extractAnswers(row Row) []shared.Answer {
	found := false
	for q := 1; q <= maxAnswerQuestions; q++ {
		if _, ok := row[fmt.Sprintf("Q %d Key", q)]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	answers := make([]shared.Answer, 0, maxAnswerQuestions)
	for q := 1; q <= maxAnswerQuestions; q++ {
		correct := row[fmt.Sprintf("Q %d Key", q)]
		selected := row[fmt.Sprintf("Q %d Options", q)]
		if correct == "" {
			correct = "-"
		}
		if selected == "" {
			selected = "-"
		}
		answers = append(answers, shared.Answer{
			QuestionNumber: int32(q),
			CorrectOption:  correct,
			SelectedOption: selected,
		})
	}
	return answers
}

// ============================================================================
// Permissive Numeric Coercion
// ============================================================================

// Num coerces a cell value to float64. Empty or unparseable input becomes 0;
// coercion never fails.
func Num(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// Int coerces a cell value to int32 with the same zero-fallback policy.
// Fractional input truncates toward zero.
func Int(v string) int32 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	i, err := strconv.ParseInt(v, 10, 32)
	if err == nil {
		return int32(i)
	}
	// "3.0" style cells appear in some exports
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int32(f)
}
