package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/types"
)

// fakeDoc answers Search from a fixed table of page -> literal -> rects.
type fakeDoc struct {
	pages  int
	width  float64
	height float64
	hits   map[int]map[string][]Rect
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) PageSize(int) (float64, float64) { return d.width, d.height }

func (d *fakeDoc) Search(page int, literal string) []Rect {
	return d.hits[page][literal]
}

func TestPhrases(t *testing.T) {
	l := New(Config{})
	got := l.Phrases("임금+\n임금은 매월 지급한다\n짧음!!!지급 시기는 별도로 통지한다\n임금은 매월 지급한다", patterns.StyleNone)
	assert.Equal(t, []string{"임금은 매월 지급한다", "지급 시기는 별도로 통지한다"}, got)
}

func TestPhrasesDropClauseLabels(t *testing.T) {
	l := New(Config{})
	text := "임금+\n① 임금은 매월 지급한다\n② 지급 시기는 별도로 통지한다\n1. 세부 사항은 따로 정한다"

	got := l.Phrases(text, patterns.StyleCircled)
	assert.Equal(t, []string{"임금은 매월 지급한다", "지급 시기는 별도로 통지한다", "1. 세부 사항은 따로 정한다"}, got)

	kept := l.Phrases(text, patterns.StyleNone)
	assert.Equal(t, "① 임금은 매월 지급한다", kept[0])
}

func TestLocateMergesRowsAndNormalizes(t *testing.T) {
	doc := &fakeDoc{
		pages:  2,
		width:  200,
		height: 400,
		hits: map[int]map[string][]Rect{
			1: {
				"임금은 매월 지급한다": {
					{X0: 20, Y0: 40, X1: 60, Y1: 48},
					{X0: 80, Y0: 40, X1: 120, Y1: 50},
				},
				"지급 시기는 별도로 통지한다": {
					{X0: 20, Y0: 100, X1: 100, Y1: 108},
				},
			},
		},
	}

	l := New(Config{})
	got := l.Locate(Query{Text: "임금+\n임금은 매월 지급한다!!!지급 시기는 별도로 통지한다"}, doc)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Page)
	require.Len(t, got[0].Boxes, 2)

	assert.Equal(t, types.BoundingBox{X: 10, Y: 10, Width: 50, Height: 2.5}, got[0].Boxes[0])
	assert.Equal(t, types.BoundingBox{X: 10, Y: 25, Width: 40, Height: 2}, got[0].Boxes[1])
}

func TestLocateAcrossPages(t *testing.T) {
	doc := &fakeDoc{
		pages:  4,
		width:  100,
		height: 100,
		hits: map[int]map[string][]Rect{
			1: {"첫 페이지의 문장": {{X0: 10, Y0: 90, X1: 50, Y1: 95}}},
			2: {"둘째 페이지의 문장": {{X0: 10, Y0: 5, X1: 50, Y1: 10}}},
			4: {"첫 페이지의 문장": {{X0: 10, Y0: 50, X1: 50, Y1: 55}}},
		},
	}

	l := New(Config{})
	got := l.Locate(Query{Text: "첫 페이지의 문장\n둘째 페이지의 문장"}, doc)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 4}, []int{got[0].Page, got[1].Page, got[2].Page})

	truncated := Truncate(got, 2)
	require.Len(t, truncated, 2)
	assert.Equal(t, 1, truncated[0].Page)
	assert.Equal(t, 2, truncated[1].Page)

	assert.Len(t, Truncate(got, 0), 3)
}

func TestLocateNoMatches(t *testing.T) {
	l := New(Config{})
	doc := &fakeDoc{pages: 2, width: 100, height: 100}
	assert.Empty(t, l.Locate(Query{Text: "찾을 수 없는 문장"}, doc))
	assert.Empty(t, l.Locate(Query{}, doc))
	assert.Empty(t, l.Locate(Query{Text: "찾을 수 없는 문장"}, nil))
}

func TestLocateSkipsPagesBeforeStart(t *testing.T) {
	doc := &fakeDoc{
		pages:  3,
		width:  100,
		height: 100,
		hits: map[int]map[string][]Rect{
			1: {"지급할 수 있다.": {{X0: 10, Y0: 10, X1: 50, Y1: 15}}},
			2: {
				"임금은 분기마다": {{X0: 10, Y0: 60, X1: 50, Y1: 65}},
				"지급할 수 있다.": {{X0: 10, Y0: 70, X1: 50, Y1: 75}},
			},
		},
	}

	l := New(Config{})
	q := Query{Text: "임금은 분기마다\n지급할 수 있다.", StartPage: 2}
	got := l.Locate(q, doc)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Page)
	assert.Len(t, got[0].Boxes, 2)

	q.StartPage = 0
	assert.Len(t, l.Locate(q, doc), 2)
}

func TestMergeIsAssociative(t *testing.T) {
	a := types.BoundingBox{X: 10, Y: 20, Width: 5, Height: 2.5}
	b := types.BoundingBox{X: 30.5, Y: 20, Width: 10.25, Height: 3}
	c := types.BoundingBox{X: 2, Y: 19.5, Width: 4, Height: 2}

	stepwise := Merge(Merge(a, b), c)
	atOnce := Merge(a, b, c)
	assert.Equal(t, atOnce, stepwise)
	assert.Equal(t, types.BoundingBox{X: 2, Y: 19.5, Width: 38.75, Height: 3.5}, atOnce)
}

func TestMergeRowsGroupsByTopEdge(t *testing.T) {
	boxes := []types.BoundingBox{
		{X: 50, Y: 30, Width: 10, Height: 2},
		{X: 10, Y: 10, Width: 10, Height: 2},
		{X: 30, Y: 10.001, Width: 10, Height: 2},
	}
	got := MergeRows(boxes)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].X)
	assert.InDelta(t, 30.0, got[0].Width, 1e-9)
	assert.Equal(t, 30.0, got[1].Y)
}
