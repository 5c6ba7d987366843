package requisites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brequin/catalog/db"
)

func parseGeneral(t *testing.T, text string) db.PreReqs {
	t.Helper()
	tree, err := ParseGeneralRequirements(text)
	require.NoError(t, err)
	return Flatten(tree)
}

func TestGeneralRule(t *testing.T) {
	got := parseGeneral(t, "Rule: R1: CS 18000 End of rule R1. May not be taken concurrently.")

	require.Equal(t, db.PreReqsLeaf, got.Type)
	assert.Equal(t, db.PreReqCourse, got.Leaf.Type)
	assert.Equal(t, "CS", got.Leaf.Subject)
	assert.Equal(t, "18000", got.Leaf.Course)
	assert.False(t, got.Leaf.Concurrent)
}

func TestGeneralRuleAlternatives(t *testing.T) {
	text := `Rule: CALC: Course or Test: MA 16100 Minimum Grade of C- May not be taken concurrently.
Course or Test: MA 16500 Minimum Grade of C- May be taken concurrently.
End of rule CALC.`
	got := parseGeneral(t, text)

	require.Equal(t, db.PreReqsOr, got.Type)
	require.Len(t, got.Vs, 2)
	assert.False(t, got.Vs[0].Leaf.Concurrent)
	assert.True(t, got.Vs[1].Leaf.Concurrent)
	assert.Equal(t, db.GradeCMinus, *got.Vs[1].Leaf.Grade)
}

func TestGeneralClauses(t *testing.T) {
	two, three, thirty, sixty := 2.5, 3.0, 30.0, 60.0
	grade := db.GradeD

	tests := []struct {
		name string
		text string
		want db.PreReq
	}{
		{
			name: "course",
			text: "Course or Test: CS 18000 Minimum Grade of D May be taken concurrently.",
			want: db.PreReq{Type: db.PreReqCourse, Subject: "CS", Course: "18000", Grade: &grade, Concurrent: true},
		},
		{
			name: "course range",
			text: "Course or Test: CS 10000 to 29999 May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqCourseRange, Subject: "CS", From: "10000", To: "29999"},
		},
		{
			name: "subject",
			text: "Course or Test: MA May be taken concurrently.",
			want: db.PreReq{Type: db.PreReqSubject, Subject: "MA", Concurrent: true},
		},
		{
			name: "attribute",
			text: "Attribute: SCI May be taken concurrently.",
			want: db.PreReq{Type: db.PreReqAttribute, Attribute: "SCI", Concurrent: true},
		},
		{
			name: "test",
			text: "Course or Test: SAT Math Minimum Score 600 May be taken concurrently.",
			want: db.PreReq{Type: db.PreReqTest, Test: "SAT Math", MinScore: "600"},
		},
		{
			name: "minimum credits",
			text: "CS 18000 Minimum Credits of 3 Minimum Grade of D May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqCourse, Subject: "CS", Course: "18000", MinCredits: &three, Grade: &grade},
		},
		{
			name: "student attribute",
			text: "Student Attribute: Honors Program May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqStudentAttribute, Attribute: "Honors Program"},
		},
		{
			name: "gpa over all courses",
			text: "GPA: 2.5 0 to 9 May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqGPA, Minimum: &two},
		},
		{
			name: "gpa with selector",
			text: "GPA 3.0 Course or Test: CS 18000 May be taken concurrently.",
			want: db.PreReq{Type: db.PreReqCourse, Subject: "CS", Course: "18000", MinGPA: &three, Concurrent: true},
		},
		{
			name: "range",
			text: "Credits: 30 to 60 May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqRange, What: "Credits", Min: &thirty, Max: &sixty},
		},
		{
			name: "required credits",
			text: "Required Credits: 30 May not be taken concurrently.",
			want: db.PreReq{Type: db.PreReqCredits, Minimum: &thirty},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseGeneral(t, tt.text)
			require.Equal(t, db.PreReqsLeaf, got.Type)
			assert.Equal(t, tt.want, *got.Leaf)
		})
	}
}

func TestGeneralOperators(t *testing.T) {
	text := "(CS 18000 May not be taken concurrently. or CS 18200 May not be taken concurrently.) " +
		"and MA 16500 May be taken concurrently."
	got := parseGeneral(t, text)

	require.Equal(t, db.PreReqsAnd, got.Type)
	require.Len(t, got.Vs, 2)
	assert.Equal(t, db.PreReqsOr, got.Vs[0].Type)
	assert.Equal(t, "16500", got.Vs[1].Leaf.Course)
	assert.True(t, got.Vs[1].Leaf.Concurrent)
}

func TestGeneralErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{"missing marker", "CS 18000 Minimum Grade of C", ErrMissingConcurrency},
		{"invalid grade", "CS 18000 Minimum Grade of Q May be taken concurrently.", ErrInvalidGrade},
		{"unterminated rule", "Rule: R1: CS 18000 May not be taken concurrently.", ErrUnterminatedRule},
		{"empty rule", "Rule: R1: End of rule R1.", ErrEmptyRule},
		{"gpa without selector", "GPA: 3.0 May not be taken concurrently.", ErrGPAWithoutSelector},
		{"unrecognized", "something else", ErrUnrecognized},
		{"trailing text", "CS 18000 May be taken concurrently. CS 18200 May be taken concurrently.", ErrTrailingText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeneralRequirements(tt.text)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
