package catalog

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/metrics"
)

const detailCell = `<table><tr><td class="ntdefault">
Introduction to data structures and their algorithms.
<br>
3.000 Credit hours<br>
3.000 Lecture hours<br>
<br>
<span class="fieldlabeltext">Levels: </span>Undergraduate<br>
<span class="fieldlabeltext">Course Attributes: </span><br>
Upper Division, Science<br>
<span class="fieldlabeltext">Learning Outcomes: </span><br>
Implement linked lists.<br>
Analyze running time.<br>
<span class="fieldlabeltext">Restrictions:</span><br>
Must be enrolled in one of the following Classifications:     <br>
&nbsp;&nbsp;&nbsp;&nbsp;&nbsp;Junior: 60 - 89 hours<br>
<span class="fieldlabeltext">Prerequisites:</span><br>
Undergraduate level CS 18000 Minimum Grade of C or
MA 16500<br>
<span class="fieldlabeltext">Corequisites:</span><br>
CS 24000<br>
</td></tr></table>`

func detailBits(t *testing.T, page string) []Bit {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return SplitBits(doc.Find("td.ntdefault"))
}

func TestSplitBits(t *testing.T) {
	bits := detailBits(t, detailCell)

	require.NotEmpty(t, bits)
	assert.Equal(t, Bit{Text: "Introduction to data structures and their algorithms."}, bits[0])
	assert.Contains(t, bits, Bit{Heading: "Restrictions"})
	assert.Contains(t, bits, Bit{Text: "\u00a0\u00a0\u00a0\u00a0\u00a0Junior: 60 - 89 hours"})

	fields := Group(bits)
	assert.Equal(t, "Undergraduate", fields.Text("Levels"))
	assert.Equal(t, "Undergraduate level CS 18000 Minimum Grade of C or MA 16500", fields.Text(LabelPrereqs))
	assert.False(t, fields.Has(LabelGeneral))
}

func TestBuildCourse(t *testing.T) {
	course := BuildCourse("CS", "25100", "Data Structures", detailBits(t, detailCell), zap.NewNop(), nil)

	assert.Equal(t, "Introduction to data structures and their algorithms.", course.Description)
	assert.Equal(t, db.Credits{Type: db.CreditsFixed, Values: []float64{3}}, course.Credits)
	assert.Equal(t, []string{"Upper Division", "Science"}, course.Attributes)
	assert.Equal(t, []string{"Implement linked lists.", "Analyze running time."}, course.LearningOutcomes)

	require.Len(t, course.Restrictions, 1)
	assert.Equal(t, "Junior", course.Restrictions[0].Class)

	require.False(t, course.Prereqs.Failed)
	require.NotNil(t, course.Prereqs.Tree)
	tree := course.Prereqs.Tree
	require.Equal(t, db.PreReqsAnd, tree.Type)
	require.Len(t, tree.Vs, 2)
	assert.Equal(t, db.PreReqsOr, tree.Vs[0].Type)
	assert.True(t, tree.Vs[1].Leaf.Corequisite)
	assert.Empty(t, course.Sections)
}

func TestBuildCourseGeneralRequirementsSupersede(t *testing.T) {
	bits := []Bit{
		{Heading: LabelPrereqs},
		{Text: "CS 18000"},
		{Heading: LabelGeneral},
		{Text: "Rule: R1: CS 18000"},
		{Text: "End of rule R1."},
		{Text: "May not be taken concurrently."},
	}

	course := BuildCourse("CS", "25000", "Computer Architecture", bits, zap.NewNop(), nil)

	require.NotNil(t, course.Prereqs.Tree)
	assert.Equal(t, db.PreReqsLeaf, course.Prereqs.Tree.Type)
	assert.False(t, course.Prereqs.Tree.Leaf.Concurrent)
}

func TestBuildCourseFailedRequirements(t *testing.T) {
	bits := []Bit{
		{Heading: LabelPrereqs},
		{Text: "CS 18000 Minimum Grade of Q"},
	}

	m := metrics.New()
	course := BuildCourse("CS", "25000", "Computer Architecture", bits, zap.NewNop(), m)

	assert.True(t, course.Prereqs.Failed)
	assert.Nil(t, course.Prereqs.Tree)
}

func TestBuildCourseWithoutRequirements(t *testing.T) {
	course := BuildCourse("CS", "10100", "Intro", []Bit{{Text: "1.000 TO 3.000 Credit hours"}}, zap.NewNop(), nil)

	assert.False(t, course.Prereqs.Failed)
	assert.Nil(t, course.Prereqs.Tree)
	assert.Equal(t, db.CreditsRange, course.Credits.Type)
	assert.Empty(t, course.Description)
}
