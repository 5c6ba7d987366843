package requisites

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrerequisiteJSON(t *testing.T) {
	got := parsePrerequisites(t, "Undergraduate CS 18000 Minimum Grade of C or MA 16500")

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"or","vs":[
		{"type":"leaf","leaf":{"type":"course","level":"Undergraduate","subject":"CS","course":"18000","grade":"C","concurrent":false,"corequisite":false}},
		{"type":"leaf","leaf":{"type":"course","subject":"MA","course":"16500","grade":null,"concurrent":false,"corequisite":false}}
	]}`, string(out))
}

func TestGeneralRuleJSON(t *testing.T) {
	got := parseGeneral(t, "Rule: R1: CS 18000 End of rule R1. May not be taken concurrently.")

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"leaf","leaf":{"type":"course","subject":"CS","course":"18000","grade":null,"concurrent":false,"corequisite":false}}`, string(out))
}

func TestNonCourseLeafJSON(t *testing.T) {
	got := parseGeneral(t, "Attribute: HONR May be taken concurrently.")

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"leaf","leaf":{"type":"attribute","attribute":"HONR","concurrent":true}}`, string(out))
}
