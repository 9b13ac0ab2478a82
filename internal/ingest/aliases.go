// ============================================================================
// internal/ingest/aliases.go
// Configurable column-header alias tables for the exam schema normalizer
// ============================================================================

package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// IITAliases lists the accepted column headers for each logical field of an
// IIT exam sheet, in probing order (canonical header first, then historical
// variants). Subjects holds one ordered alias list per fixed subject slot.
type IITAliases struct {
	RollNo       []string   `json:"rollNo"`
	Name         []string   `json:"name"`
	ExamName     []string   `json:"examName"`
	ExamSet      []string   `json:"examSet"`
	Date         []string   `json:"date"`
	TotalMarks   []string   `json:"totalMarks"`
	Grade        []string   `json:"grade"`
	Rank         []string   `json:"rank"`
	Correct      []string   `json:"correctAnswers"`
	Incorrect    []string   `json:"incorrectAnswers"`
	NotAttempted []string   `json:"notAttempted"`
	Subjects     [][]string `json:"subjects"`
}

// CDFAliases lists the accepted headers for the fixed fields of a CDF exam
// sheet. Every header not matched by any of these lists (or by Exclude)
// becomes a subject-score key: the CDF subject set is schema-on-read.
type CDFAliases struct {
	RollNo     []string `json:"rollNo"`
	Name       []string `json:"name"`
	ExamName   []string `json:"examName"`
	Date       []string `json:"date"`
	TotalMarks []string `json:"totalMarks"`
	Rank       []string `json:"rank"`
	Exclude    []string `json:"exclude"`
}

// AliasTable is the full header-alias configuration. It ships with compiled
// defaults covering the known historical file variants and can be replaced
// wholesale from a JSON file, so new variants are a data change, not a code
// change.
type AliasTable struct {
	IIT IITAliases `json:"iit"`
	CDF CDFAliases `json:"cdf"`
}

// DefaultAliasTable returns the alias table covering the file variants seen
// in production so far. The subject-slot lists carry both the positional
// "Subject N" scheme and the older human subject names.
func DefaultAliasTable() *AliasTable {
	return &AliasTable{
		IIT: IITAliases{
			RollNo:       []string{"Roll No", "ROLL NO", "Roll no", "RollNo"},
			Name:         []string{"Name", "NAME", "NAME OF THE STUDENT"},
			ExamName:     []string{"Exam", "EXAM", "Exam Name", "EXAM NAME"},
			ExamSet:      []string{"Exam set", "EXAM SET", "Exam Set"},
			Date:         []string{"Date", "DATE", "Date of Exam", "DATE OF EXAM"},
			TotalMarks:   []string{"Total Marks", "TOTAL MARKS", "TM"},
			Grade:        []string{"Grade", "GRADE"},
			Rank:         []string{"Rank", "RANK", "TR"},
			Correct:      []string{"Correct Answers", "CORRECT ANSWERS"},
			Incorrect:    []string{"Incorrect Answers", "INCORRECT ANSWERS"},
			NotAttempted: []string{"Not attempted", "NOT ATTEMPTED", "Not Attempted"},
			Subjects: [][]string{
				{"Subject 1", "Subject1", "SUBJECT 1", "Physics", "PHYSICS", "S1"},
				{"Subject 2", "Subject2", "SUBJECT 2", "Chemistry", "CHEMISTRY", "S2"},
				{"Subject 3", "Subject3", "SUBJECT 3", "Maths", "MATHS", "S3"},
				{"Subject 4", "Subject4", "SUBJECT 4", "Biology", "BIOLOGY", "S4"},
			},
		},
		CDF: CDFAliases{
			RollNo:     []string{"ROLL NO", "Roll No", "Roll no", "RollNo"},
			Name:       []string{"NAME OF THE STUDENT", "Name", "NAME"},
			ExamName:   []string{"TEST NAME", "Test Name", "Test"},
			Date:       []string{"DATE OF TEST", "Date of Test", "Date", "DATE"},
			TotalMarks: []string{"TM", "Total Marks", "TOTAL MARKS"},
			Rank:       []string{"TR", "Rank", "RANK"},
			Exclude:    []string{"S.NO", "S NO", "SNO", "Sl No", "Remarks", "REMARKS"},
		},
	}
}

// LoadAliasTable reads an alias table from a JSON file. Lists left empty in
// the file fall back to the compiled defaults, so an override file only
// needs to name the fields it extends.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	table := &AliasTable{}
	if err := json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to parse alias file %s: %w", path, err)
	}

	defaults := DefaultAliasTable()
	fillIITDefaults(&table.IIT, &defaults.IIT)
	fillCDFDefaults(&table.CDF, &defaults.CDF)

	return table, nil
}

func fillIITDefaults(t, d *IITAliases) {
	if len(t.RollNo) == 0 {
		t.RollNo = d.RollNo
	}
	if len(t.Name) == 0 {
		t.Name = d.Name
	}
	if len(t.ExamName) == 0 {
		t.ExamName = d.ExamName
	}
	if len(t.ExamSet) == 0 {
		t.ExamSet = d.ExamSet
	}
	if len(t.Date) == 0 {
		t.Date = d.Date
	}
	if len(t.TotalMarks) == 0 {
		t.TotalMarks = d.TotalMarks
	}
	if len(t.Grade) == 0 {
		t.Grade = d.Grade
	}
	if len(t.Rank) == 0 {
		t.Rank = d.Rank
	}
	if len(t.Correct) == 0 {
		t.Correct = d.Correct
	}
	if len(t.Incorrect) == 0 {
		t.Incorrect = d.Incorrect
	}
	if len(t.NotAttempted) == 0 {
		t.NotAttempted = d.NotAttempted
	}
	if len(t.Subjects) == 0 {
		t.Subjects = d.Subjects
	}
}

func fillCDFDefaults(t, d *CDFAliases) {
	if len(t.RollNo) == 0 {
		t.RollNo = d.RollNo
	}
	if len(t.Name) == 0 {
		t.Name = d.Name
	}
	if len(t.ExamName) == 0 {
		t.ExamName = d.ExamName
	}
	if len(t.Date) == 0 {
		t.Date = d.Date
	}
	if len(t.TotalMarks) == 0 {
		t.TotalMarks = d.TotalMarks
	}
	if len(t.Rank) == 0 {
		t.Rank = d.Rank
	}
	if len(t.Exclude) == 0 {
		t.Exclude = d.Exclude
	}
}

// cdfExclusionSet builds the lowercased set of headers that are never
// treated as CDF subject columns.
func (c *CDFAliases) cdfExclusionSet() map[string]bool {
	set := make(map[string]bool)
	for _, list := range [][]string{c.RollNo, c.Name, c.ExamName, c.Date, c.TotalMarks, c.Rank, c.Exclude} {
		for _, h := range list {
			set[strings.ToLower(h)] = true
		}
	}
	return set
}
