// ============================================================================
// internal/report/document.go
// Report card document model: structured description of one student's
// report, built from the persisted exam history
// ============================================================================

package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"markregister/internal/shared"
)

// Placeholder rendered for missing cell values, keeping the printed layout
// stable.
const missingCell = "-"

// Style holds the document colors as hex strings
type Style struct {
	HeaderBG   string `json:"headerBg"`
	HeaderText string `json:"headerText"`
	BodyText   string `json:"bodyText"`
	PageBG     string `json:"pageBg"`
}

// DefaultStyle returns the report card color scheme
func DefaultStyle() Style {
	return Style{
		HeaderBG:   "#1e40af",
		HeaderText: "#ffffff",
		BodyText:   "#000000",
		PageBG:     "#ffffff",
	}
}

// TableSection is one per-exam table: a heading, a header row, and a single
// data row.
type TableSection struct {
	Heading string   `json:"heading"`
	Columns []string `json:"columns"`
	Row     []string `json:"row"`
}

// Document is the structured report card description handed to the PDF
// renderer.
type Document struct {
	Title         string       `json:"title"`
	InstituteName string       `json:"instituteName"`
	LogoPath      string       `json:"logoPath,omitempty"`
	StudentName   string       `json:"studentName"`
	RollNo        string       `json:"rollNo"`
	Sections      []TableSection `json:"sections"`
	Signatures    [3]string    `json:"signatures"`
	Style         Style        `json:"style"`
}

// BuildDocument assembles the report card for one student: header block,
// one table section per exam in list order, and the fixed signature block.
// institute may be nil when logo/letterhead resolution failed.
func BuildDocument(student *shared.Student, institute *shared.Institute) *Document {
	doc := &Document{
		Title:       "Academic Report Card",
		StudentName: student.Name,
		RollNo:      student.RollNo,
		Signatures:  [3]string{"Principal", "Class Teacher", "Guardian"},
		Style:       SanitizeStyle(DefaultStyle()),
	}
	if institute != nil {
		doc.InstituteName = institute.Name
		doc.LogoPath = institute.Logo
	}

	for _, exam := range student.Exams {
		doc.Sections = append(doc.Sections, buildSection(exam))
	}

	return doc
}

func buildSection(exam shared.Exam) TableSection {
	section := TableSection{
		Heading: fmt.Sprintf("%s - %s", exam.ExamType, exam.ExamName),
	}

	data := exam.ExamData
	section.Columns = append(section.Columns, "Date")
	section.Row = append(section.Row, orDash(data.Date))

	if exam.ExamType == shared.ExamTypeIIT {
		// Fixed positional layout for IIT exams
		section.Columns = append(section.Columns, "Physics", "Chemistry", "Maths", "Biology")
		for _, key := range []string{"subject1", "subject2", "subject3", "subject4"} {
			section.Row = append(section.Row, formatScore(data.SubjectScores[key]))
		}
	} else {
		// Dynamic layout for CDF exams: whatever subject keys this exam has,
		// minus the stray date key some historical records carry inside the
		// score mapping
		for _, key := range cdfSubjectKeys(data.SubjectScores) {
			section.Columns = append(section.Columns, key)
			section.Row = append(section.Row, formatScore(data.SubjectScores[key]))
		}
	}

	section.Columns = append(section.Columns, "Total Marks", "Rank")
	section.Row = append(section.Row, formatScore(data.TotalMarks), formatRank(data.Rank))

	return section
}

// cdfSubjectKeys returns the subject columns for a CDF exam in a stable
// order, filtering the duplicate "date of test" key.
func cdfSubjectKeys(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		if strings.ToLower(key) == "date of test" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return missingCell
	}
	return v
}

func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func formatRank(r int32) string {
	if r == 0 {
		return missingCell
	}
	return fmt.Sprintf("%d", r)
}
