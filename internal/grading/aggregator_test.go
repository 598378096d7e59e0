package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardScheme(t *testing.T) Scheme {
	t.Helper()
	scheme, err := NewScheme([]Component{
		{Type: ComponentExam, Weight: 40},
		{Type: ComponentAssignment, Weight: 30},
		{Type: ComponentPortfolio, Weight: 20},
		{Type: ComponentFinal, Weight: 10},
	})
	require.NoError(t, err)
	return scheme
}

func TestSummarizeRenormalisesOverCoveredWeight(t *testing.T) {
	entries := []Entry{
		{Component: ComponentExam, Score: 80},
		{Component: ComponentExam, Score: 90},
		{Component: ComponentAssignment, Score: 70},
		{Component: ComponentFinal, Score: 60},
	}

	summary, err := Summarize(standardScheme(t), entries)
	require.NoError(t, err)
	require.Len(t, summary.Components, 4)

	exam := summary.Components[0]
	assert.Equal(t, ComponentExam, exam.Component)
	assert.Equal(t, 2, exam.Count)
	require.True(t, exam.Average.Defined())
	assert.Equal(t, 85, *exam.Average.Value)
	assert.Equal(t, BandHigh, exam.Average.Band)

	assignment := summary.Components[1]
	assert.Equal(t, 70, *assignment.Average.Value)
	assert.Equal(t, BandMedium, assignment.Average.Band)

	portfolio := summary.Components[2]
	assert.False(t, portfolio.Average.Defined())
	assert.Equal(t, BandNone, portfolio.Average.Band)
	assert.Equal(t, 0, portfolio.Count)

	final := summary.Components[3]
	assert.Equal(t, 60, *final.Average.Value)
	assert.Equal(t, BandLow, final.Average.Band)

	assert.Equal(t, 80, summary.CoveredWeight)
	require.True(t, summary.Overall.Defined())
	assert.InDelta(t, 75.125, *summary.Overall.Raw, 1e-9)
	assert.Equal(t, 75, *summary.Overall.Value)
	assert.Equal(t, BandMedium, summary.Overall.Band)
	assert.Empty(t, summary.Extras)
}

func TestSummarizeNoEntries(t *testing.T) {
	summary, err := Summarize(standardScheme(t), nil)
	require.NoError(t, err)
	assert.False(t, summary.Overall.Defined())
	assert.Equal(t, BandNone, summary.Overall.Band)
	assert.Equal(t, 0, summary.CoveredWeight)
	for _, c := range summary.Components {
		assert.False(t, c.Average.Defined())
	}
}

func TestSummarizeZeroScoreIsNotUndefined(t *testing.T) {
	summary, err := Summarize(standardScheme(t), []Entry{{Component: ComponentFinal, Score: 0}})
	require.NoError(t, err)
	require.True(t, summary.Overall.Defined())
	assert.Equal(t, 0, *summary.Overall.Value)
	assert.Equal(t, BandLow, summary.Overall.Band)
}

func TestSummarizeOnlyZeroWeightCoveredIsUndefined(t *testing.T) {
	scheme, err := NewScheme([]Component{{Type: ComponentExam, Weight: 100}, {Type: ComponentAttendance, Weight: 0}})
	require.NoError(t, err)

	summary, err := Summarize(scheme, []Entry{{Component: ComponentAttendance, Score: 100}})
	require.NoError(t, err)
	assert.Equal(t, 100, *summary.Components[1].Average.Value)
	assert.False(t, summary.Overall.Defined())
}

func TestSummarizeReportsExtras(t *testing.T) {
	entries := []Entry{
		{Component: ComponentExam, Score: 90},
		{Component: ComponentAttendance, Score: 100},
		{Component: ComponentAttendance, Score: 50},
	}
	summary, err := Summarize(standardScheme(t), entries)
	require.NoError(t, err)
	assert.Equal(t, 90, *summary.Overall.Value)
	require.Len(t, summary.Extras, 1)
	assert.Equal(t, ComponentAttendance, summary.Extras[0].Component)
	assert.Equal(t, 2, summary.Extras[0].Count)
	assert.Equal(t, 75, *summary.Extras[0].Average.Value)
	assert.Equal(t, 0, summary.Extras[0].Weight)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	scheme := standardScheme(t)
	entries := []Entry{
		{Component: ComponentExam, Score: 77.5},
		{Component: ComponentPortfolio, Score: 91},
		{Component: ComponentAttendance, Score: 12},
	}
	first, err := Summarize(scheme, entries)
	require.NoError(t, err)
	second, err := Summarize(scheme, entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSummarizeRequiresValidatedScheme(t *testing.T) {
	_, err := Summarize(Scheme{}, []Entry{{Component: ComponentExam, Score: 90}})
	assert.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestSummarizeRoundsHalfAwayFromZero(t *testing.T) {
	scheme, err := NewScheme([]Component{{Type: ComponentExam, Weight: 100}})
	require.NoError(t, err)

	summary, err := Summarize(scheme, []Entry{{Component: ComponentExam, Score: 84}, {Component: ComponentExam, Score: 85}})
	require.NoError(t, err)
	assert.Equal(t, 85, *summary.Overall.Value)
	assert.Equal(t, BandHigh, summary.Overall.Band)

	summary, err = Summarize(scheme, []Entry{{Component: ComponentExam, Score: 69}, {Component: ComponentExam, Score: 69.9}})
	require.NoError(t, err)
	assert.Equal(t, 69, *summary.Overall.Value)
	assert.Equal(t, BandLow, summary.Overall.Band)
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, BandHigh, Classify(100))
	assert.Equal(t, BandHigh, Classify(85))
	assert.Equal(t, BandMedium, Classify(84))
	assert.Equal(t, BandMedium, Classify(70))
	assert.Equal(t, BandLow, Classify(69))
	assert.Equal(t, BandLow, Classify(0))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 76, Round(75.5))
	assert.Equal(t, 75, Round(75.49))
	assert.Equal(t, 75, Round(75.125))
	assert.Equal(t, 0, Round(0.4))
}
