package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/rulevm"
)

const sampleFile = `{
  "version": 1,
  "rules": [
    {
      "id": "no-eval",
      "severity": "error",
      "message": "eval of user input",
      "language": "javascript",
      "rule": {
        "all": [
          {"pattern": "eval($X)"},
          {"not": {"inside": {"kind": "try_statement"}, "stopBy": "end"}}
        ]
      },
      "constraints": {
        "X": {"regex": "^user"}
      },
      "fix": "safeEval($X)"
    },
    {
      "id": "ref-rule",
      "severity": "hint",
      "message": "same as no-eval",
      "language": "typescript",
      "rule": {"matches": "no-eval"}
    }
  ]
}`

func TestLoadSample(t *testing.T) {
	specs, err := Load([]byte(sampleFile))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	first := specs[0]
	assert.Equal(t, "no-eval", first.ID)
	assert.Equal(t, rulevm.SeverityError, first.Severity)
	assert.Equal(t, lang.JavaScript, first.Language)
	require.NotNil(t, first.Fix)
	assert.Equal(t, "safeEval($X)", *first.Fix)
	require.Len(t, first.Constraints, 1)
	assert.Equal(t, "X", first.Constraints[0].Metavar)

	require.Equal(t, rulevm.TagAll, first.Body.Tag)
	require.Len(t, first.Body.Children, 2)
	not := first.Body.Children[1]
	require.Equal(t, rulevm.TagNot, not.Tag)
	require.Equal(t, rulevm.TagInside, not.Child.Tag)
	assert.Equal(t, rulevm.StopByEnd, not.Child.StopBy)

	second := specs[1]
	assert.Equal(t, rulevm.TagMatches, second.Body.Tag)
	assert.Equal(t, uint32(0), second.Body.Num)
}

func TestCompileRoundTripsThroughDecoder(t *testing.T) {
	data, err := Compile([]byte(sampleFile))
	require.NoError(t, err)

	rs, err := rulevm.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), rs.Version)
	require.Equal(t, 2, rs.RuleCount())
	assert.Equal(t, "no-eval", rs.Rule(0).ID)
	assert.True(t, rs.Rule(0).HasFix)
}

func TestLoadRejectsUnknownOperator(t *testing.T) {
	_, err := Load([]byte(`{"rules":[{"id":"x","message":"m","rule":{"wat":"?"}}]}`))
	require.Error(t, err)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{}`,
		`{"rules":[]}`,
		`{"rules":[{"message":"m","rule":{"kind":"k"}}]}`,
		`{"rules":[{"id":"x","rule":{"kind":"k"}}]}`,
		`not json`,
	}
	for _, c := range cases {
		_, err := Load([]byte(c))
		assert.Error(t, err, c)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	doc := `{"rules":[
	  {"id":"dup","message":"m","rule":{"kind":"k"}},
	  {"id":"dup","message":"m","rule":{"kind":"k"}}
	]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadRejectsUnknownMatchesRef(t *testing.T) {
	doc := `{"rules":[{"id":"x","message":"m","rule":{"matches":"ghost"}}]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadStopByRuleBoundary(t *testing.T) {
	doc := `{"rules":[{
	  "id":"x","message":"m",
	  "rule":{"inside":{"kind":"call_expression"},"stopBy":{"kind":"statement_block"}}
	}]}`
	specs, err := Load([]byte(doc))
	require.NoError(t, err)
	body := specs[0].Body
	require.Equal(t, rulevm.TagInside, body.Tag)
	assert.Equal(t, rulevm.StopByRule, body.StopBy)
	require.NotNil(t, body.StopByRule)
	assert.Equal(t, "statement_block", body.StopByRule.Str)
}

func TestLoadDefaults(t *testing.T) {
	doc := `{"rules":[{"id":"x","message":"m","rule":{"kind":"k"}}]}`
	specs, err := Load([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, rulevm.SeverityError, specs[0].Severity)
	assert.Equal(t, lang.JavaScript, specs[0].Language)
}

func TestLoadTransforms(t *testing.T) {
	doc := `{"rules":[{
	  "id":"x","message":"m","rule":{"kind":"k"},
	  "transforms":[{"source":"X","op":"replace","arg":"a->b"}]
	}]}`
	specs, err := Load([]byte(doc))
	require.NoError(t, err)
	require.Len(t, specs[0].Transforms, 1)
	assert.Equal(t, rulevm.TransformReplace, specs[0].Transforms[0].Op)
}
