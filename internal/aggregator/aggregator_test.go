package aggregator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/types"
)

func TestAggregateJoinsRepeatedClauseNumbers(t *testing.T) {
	units := []types.StructuralUnit{
		{ClauseContent: "임금+\n임금은 매월 지급한다", Page: 1, OrderIndex: 1, ClauseNumber: "제2조 1항"},
		{ClauseContent: "임금+\n상여금은 규정에 따라", Page: 1, OrderIndex: 2, ClauseNumber: "제2조 2항", Style: patterns.StyleCircled},
		{ClauseContent: "지급 시기는 별도로 통지한다", Page: 2, OrderIndex: 1, ClauseNumber: "제2조 2항"},
		{ClauseContent: "근로시간+\n1일 8시간으로 한다", Page: 2, OrderIndex: 2, ClauseNumber: "제3조 1항"},
	}

	got, err := Aggregate(units)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "제2조 1항", got[0].ClauseNumber)
	assert.Equal(t, "제2조 2항", got[1].ClauseNumber)
	assert.Equal(t, "제3조 1항", got[2].ClauseNumber)

	assert.Equal(t, "임금+\n상여금은 규정에 따라!!!지급 시기는 별도로 통지한다", got[1].IncorrectText)
	assert.Equal(t, []types.Fragment{{OrderIndex: 2, Page: 1}, {OrderIndex: 1, Page: 2}}, got[1].Fragments)
	assert.Equal(t, patterns.StyleCircled, got[1].Style)
	assert.Nil(t, got[1].Accuracy)
	assert.Nil(t, got[1].Fragments[0].Position)
}

func TestAggregateConcatenationMatchesInputOrder(t *testing.T) {
	var units []types.StructuralUnit
	var want []string
	for i := 0; i < 5; i++ {
		content := strings.Repeat("가", i+1)
		units = append(units, types.StructuralUnit{ClauseContent: content, Page: i + 1, OrderIndex: 1, ClauseNumber: "제1조 1항"})
		want = append(want, content)
	}

	got, err := Aggregate(units)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, strings.Join(want, "!!!"), got[0].IncorrectText)
	assert.Len(t, got[0].Fragments, 5)
}

func TestAggregateBlankClauseNumberIsItsOwnBucket(t *testing.T) {
	got, err := Aggregate([]types.StructuralUnit{
		{ClauseContent: "번호 없는 첫 문단", Page: 1, OrderIndex: 1},
		{ClauseContent: "제1조 내용", Page: 1, OrderIndex: 2, ClauseNumber: "제1조 1항"},
		{ClauseContent: "번호 없는 둘째 문단", Page: 1, OrderIndex: 3, ClauseNumber: " "},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[0].ClauseNumber)
	assert.Equal(t, "번호 없는 첫 문단!!!번호 없는 둘째 문단", got[0].IncorrectText)
}

func TestAggregateSkipsBlankUnits(t *testing.T) {
	got, err := Aggregate([]types.StructuralUnit{
		{ClauseContent: "  \n", Page: 1, OrderIndex: 1, ClauseNumber: "제1조 1항"},
		{ClauseContent: "실제 내용", Page: 1, OrderIndex: 2, ClauseNumber: "제2조 1항"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "제2조 1항", got[0].ClauseNumber)
}

func TestAggregateFailures(t *testing.T) {
	_, err := Aggregate(nil)
	assert.True(t, errcode.Has(err, errcode.ChunkingFailed))

	_, err = Aggregate([]types.StructuralUnit{{ClauseContent: " ", ClauseNumber: "제1조 1항"}})
	assert.True(t, errcode.Has(err, errcode.ChunkingFailed))
}
