package report

import (
	"strings"
	"testing"

	"markregister/internal/shared"
)

func sampleStudent() *shared.Student {
	return &shared.Student{
		RollNo: "101",
		Name:   "Asha",
		Exams: []shared.Exam{
			{
				ExamType: shared.ExamTypeIIT,
				ExamName: "Weekly 1",
				ExamData: shared.ExamData{
					ExamName: "Weekly 1",
					Date:     "2024-01-05",
					SubjectScores: map[string]float64{
						"subject1": 55, "subject2": 48, "subject3": 61, "subject4": 0,
					},
					TotalMarks: 164,
					Rank:       7,
				},
			},
			{
				ExamType: shared.ExamTypeCDF,
				ExamName: "Unit Test 1",
				ExamData: shared.ExamData{
					ExamName: "Unit Test 1",
					SubjectScores: map[string]float64{
						"MM": 80, "PM": 70.5, "Date of Test": 0,
					},
					TotalMarks: 150.5,
					Rank:       3,
				},
			},
		},
	}
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument(sampleStudent(), &shared.Institute{Name: "KE Institute", Logo: "/assets/ke.png"})

	t.Run("One Section Per Exam", func(t *testing.T) {
		if len(doc.Sections) != 2 {
			t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
		}
	})

	t.Run("Header Block", func(t *testing.T) {
		if doc.Title != "Academic Report Card" {
			t.Errorf("title = %q", doc.Title)
		}
		if doc.StudentName != "Asha" || doc.RollNo != "101" {
			t.Errorf("student header = %q / %q", doc.StudentName, doc.RollNo)
		}
		if doc.InstituteName != "KE Institute" || doc.LogoPath != "/assets/ke.png" {
			t.Errorf("institute header = %q / %q", doc.InstituteName, doc.LogoPath)
		}
	})

	t.Run("IIT Fixed Columns", func(t *testing.T) {
		sec := doc.Sections[0]
		want := []string{"Date", "Physics", "Chemistry", "Maths", "Biology", "Total Marks", "Rank"}
		if len(sec.Columns) != len(want) {
			t.Fatalf("IIT columns = %v", sec.Columns)
		}
		for i, col := range want {
			if sec.Columns[i] != col {
				t.Errorf("column %d = %q, want %q", i, sec.Columns[i], col)
			}
		}
		if sec.Row[1] != "55" || sec.Row[4] != "0" {
			t.Errorf("IIT row = %v", sec.Row)
		}
	})

	t.Run("CDF Dynamic Columns Exclude Stray Date Key", func(t *testing.T) {
		sec := doc.Sections[1]
		// Date + MM + PM + Total Marks + Rank; "Date of Test" filtered
		if len(sec.Columns) != 5 {
			t.Fatalf("CDF columns = %v", sec.Columns)
		}
		for _, col := range sec.Columns {
			if strings.EqualFold(col, "date of test") {
				t.Errorf("stray date key not filtered: %v", sec.Columns)
			}
		}
	})

	t.Run("Missing Values Render As Dash", func(t *testing.T) {
		sec := doc.Sections[1]
		if sec.Row[0] != "-" {
			t.Errorf("missing date should be dash, got %q", sec.Row[0])
		}
	})

	t.Run("Signature Block", func(t *testing.T) {
		want := [3]string{"Principal", "Class Teacher", "Guardian"}
		if doc.Signatures != want {
			t.Errorf("signatures = %v", doc.Signatures)
		}
	})

	t.Run("Nil Institute Tolerated", func(t *testing.T) {
		doc := BuildDocument(sampleStudent(), nil)
		if doc.InstituteName != "" || doc.LogoPath != "" {
			t.Errorf("nil institute must leave header empty, got %q / %q", doc.InstituteName, doc.LogoPath)
		}
	})
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{80, "80"},
		{70.5, "70.50"},
	}
	for _, c := range cases {
		if got := formatScore(c.in); got != c.want {
			t.Errorf("formatScore(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSafeColor(t *testing.T) {
	cases := []struct {
		value, fallback, want string
	}{
		{"#1e40af", "#000000", "#1e40af"},
		{"oklch(0.7 0.1 250)", "#000000", "#000000"},
		{"OKLAB(0.5 0 0)", "#ffffff", "#ffffff"},
		{"lch(52% 58 240)", "#000000", "#000000"},
		{"color(display-p3 1 0 0)", "#ffffff", "#ffffff"},
		{"", "#000000", "#000000"},
		{"rgb(30, 64, 175)", "#000000", "rgb(30, 64, 175)"},
	}
	for _, c := range cases {
		if got := SafeColor(c.value, c.fallback); got != c.want {
			t.Errorf("SafeColor(%q) = %q, want %q", c.value, got, c.want)
		}
	}
}

func TestSanitizeStyle(t *testing.T) {
	s := Style{
		HeaderBG:   "oklch(0.4 0.2 260)",
		HeaderText: "oklch(1 0 0)",
		BodyText:   "lab(20% 0 0)",
		PageBG:     "#ffffff",
	}
	out := SanitizeStyle(s)
	if out.HeaderBG != "#ffffff" {
		t.Errorf("background fallback must be white, got %q", out.HeaderBG)
	}
	if out.HeaderText != "#000000" || out.BodyText != "#000000" {
		t.Errorf("text fallback must be black, got %q / %q", out.HeaderText, out.BodyText)
	}
	if out.PageBG != "#ffffff" {
		t.Errorf("supported color must pass through, got %q", out.PageBG)
	}
}

func TestHexToRGB(t *testing.T) {
	cases := []struct {
		in      string
		r, g, b int
	}{
		{"#1e40af", 30, 64, 175},
		{"#fff", 255, 255, 255},
		{"garbage", 0, 0, 0},
	}
	for _, c := range cases {
		r, g, b := hexToRGB(c.in)
		if r != c.r || g != c.g || b != c.b {
			t.Errorf("hexToRGB(%q) = (%d,%d,%d), want (%d,%d,%d)", c.in, r, g, b, c.r, c.g, c.b)
		}
	}
}

func TestRenderPDF(t *testing.T) {
	data, err := RenderPDF(BuildDocument(sampleStudent(), &shared.Institute{Name: "KE Institute"}))
	if err != nil {
		t.Fatalf("RenderPDF failed: %v", err)
	}
	if len(data) == 0 || !strings.HasPrefix(string(data[:5]), "%PDF-") {
		t.Fatalf("output is not a PDF (%d bytes)", len(data))
	}
}
