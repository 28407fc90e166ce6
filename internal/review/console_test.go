package review

import (
	"bytes"
	"strings"
	"testing"
)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewConsole(strings.NewReader(input), out, nil), out
}

func TestReviewSegmentationPick(t *testing.T) {
	c, _ := newTestConsole("2\n")
	d, err := c.ReviewSegmentation(SegmentationRequest{
		SourceFile: "x_2015_budget.txt",
		Candidates: []HeaderCandidate{{Line: 10, Text: "a"}, {Line: 20, Text: "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Skip || d.Pick != 1 {
		t.Errorf("got %+v", d)
	}
}

func TestReviewSegmentationSkip(t *testing.T) {
	for _, input := range []string{"\n", "nope\n", "9\n", ""} {
		c, _ := newTestConsole(input)
		d, err := c.ReviewSegmentation(SegmentationRequest{
			Candidates: []HeaderCandidate{{Line: 10, Text: "a"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Skip {
			t.Errorf("input %q: expected skip, got %+v", input, d)
		}
	}
}

func TestReviewChangesActions(t *testing.T) {
	cases := []struct {
		input string
		want  ChangeAction
	}{
		{"a\n", ActionAccept},
		{"accept\n", ActionAccept},
		{"r\n", ActionReject},
		{"\n", ActionReject},
		{"", ActionReject},
		{"garbage\n", ActionReject},
		{"k\n", ActionKeepExisting},
		{"s\n", ActionSkipFile},
	}
	for _, c := range cases {
		console, _ := newTestConsole(c.input)
		d, err := console.ReviewChanges(ChangeRequest{OrgCode: "3600"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Action != c.want {
			t.Errorf("input %q: action %d, want %d", c.input, d.Action, c.want)
		}
	}
}

func TestReviewChangesCrop(t *testing.T) {
	c, _ := newTestConsole("c\n1-2\n")
	d, err := c.ReviewChanges(ChangeRequest{
		DescriptionProposed: true,
		NewDescription:      "line one\nline two\nline three",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action != ActionCrop {
		t.Fatalf("action = %d", d.Action)
	}
	if len(d.KeepRanges) != 1 || d.KeepRanges[0].Start != 1 || d.KeepRanges[0].End != 2 {
		t.Errorf("ranges = %+v", d.KeepRanges)
	}
}

func TestReviewChangesCropInvalidRejects(t *testing.T) {
	c, _ := newTestConsole("c\n0-99\n")
	d, err := c.ReviewChanges(ChangeRequest{
		DescriptionProposed: true,
		NewDescription:      "only line",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Action != ActionReject {
		t.Errorf("invalid crop ranges should reject, got action %d", d.Action)
	}
}

func TestCreateDepartmentApproved(t *testing.T) {
	c, _ := newTestConsole("y\ny\nNatural Resources Agency\n")
	d, err := c.CreateDepartment(DepartmentCreateRequest{OrgCode: "3600", Name: "Dept"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Create || !d.Active || d.ParentAgency != "Natural Resources Agency" {
		t.Errorf("got %+v", d)
	}
}

func TestCreateDepartmentInactive(t *testing.T) {
	c, _ := newTestConsole("yes\nn\nGeneral Government\n")
	d, err := c.CreateDepartment(DepartmentCreateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Create || d.Active {
		t.Errorf("got %+v", d)
	}
}

func TestCreateDepartmentDeclined(t *testing.T) {
	// Decline outright, missing workforce status, missing parent agency.
	for _, input := range []string{"n\n", "\n", "y\nmaybe\n", "y\ny\n\n"} {
		c, _ := newTestConsole(input)
		d, err := c.CreateDepartment(DepartmentCreateRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Create {
			t.Errorf("input %q: expected decline, got %+v", input, d)
		}
	}
}

func TestParseLineRanges(t *testing.T) {
	ranges, err := ParseLineRanges("1-3,5", 6)
	if err != nil {
		t.Fatalf("ParseLineRanges failed: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(ranges))
	}
	if ranges[0] != (LineRange{Start: 1, End: 3}) || ranges[1] != (LineRange{Start: 5, End: 5}) {
		t.Errorf("ranges = %+v", ranges)
	}

	for _, bad := range []string{"", "0-2", "3-1", "1-99", "x", "1-x"} {
		if _, err := ParseLineRanges(bad, 6); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestCropLines(t *testing.T) {
	text := "one\ntwo\nthree\nfour"
	got := CropLines(text, []LineRange{{Start: 1, End: 2}, {Start: 4, End: 4}})
	if got != "one\ntwo\nfour" {
		t.Errorf("CropLines = %q", got)
	}

	// ranges past the end are clamped
	got = CropLines("only", []LineRange{{Start: 1, End: 9}})
	if got != "only" {
		t.Errorf("CropLines clamp = %q", got)
	}
}
