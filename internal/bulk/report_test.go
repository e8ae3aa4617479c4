package bulk

import (
	"testing"
)

func TestBuildErrorReport(t *testing.T) {
	content := "Name,Email\n" +
		"Ana,bad-email\n" + // row 3
		"Beto,beto@x.com\n" + // row 4: clean, omitted from the report
		",caro@x.com\n" // row 5
	path := writeTempFile(t, "dirty.csv", content)

	errs := []RowError{
		{RowNumber: 3, Field: "email", Message: "invalid email address", Severity: SeverityError},
		{RowNumber: 5, Field: "name", Message: "required field Name is empty", Severity: SeverityError},
		{RowNumber: 5, Field: "email", Message: "something else", Severity: SeverityError},
	}

	report, err := BuildErrorReport(path, []string{"Name", "Email"}, errs)
	if err != nil {
		t.Fatalf("BuildErrorReport() error = %v", err)
	}

	f := openWorkbook(t, report)
	rows, err := f.GetRows("ERRORS")
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("report rows = %d, want header + 2 failing rows", len(rows))
	}

	header := rows[0]
	if header[0] != "Name" || header[2] != "__status" || header[3] != "__error_fields" || header[4] != "__messages" {
		t.Errorf("header = %v", header)
	}

	first := rows[1]
	if first[0] != "Ana" || first[2] != "ERROR" || first[3] != "email" {
		t.Errorf("first reported row = %v", first)
	}
	if first[4] != "invalid email address" {
		t.Errorf("messages = %q", first[4])
	}

	second := rows[2]
	// Distinct failing fields are sorted and joined.
	if second[3] != "email;name" {
		t.Errorf("error fields = %q, want %q", second[3], "email;name")
	}
	if second[4] != "required field Name is empty;something else" {
		t.Errorf("messages = %q", second[4])
	}
}

func TestBuildErrorReport_WholeRowErrors(t *testing.T) {
	path := writeTempFile(t, "dup.csv", "Name,Email\nAna,ana@x.com\n")

	errs := []RowError{
		{RowNumber: 3, Field: IdentityField, Message: "duplicate unique key within the file"},
	}
	report, err := BuildErrorReport(path, []string{"Name", "Email"}, errs)
	if err != nil {
		t.Fatalf("BuildErrorReport() error = %v", err)
	}

	f := openWorkbook(t, report)
	rows, err := f.GetRows("ERRORS")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("report rows = %d, want header + 1", len(rows))
	}
	if rows[1][3] != IdentityField {
		t.Errorf("error fields = %q, want the identity marker", rows[1][3])
	}
}
