package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/prompts/correction"
	"github.com/jackzampolin/lexreview/internal/types"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

// fakeEmbedder encodes each clause as a one-element vector holding its index,
// so the searcher can tell units apart.
type fakeEmbedder struct {
	mu    sync.Mutex
	index map[string]int
	texts []string
}

func (e *fakeEmbedder) Name() string    { return "fake" }
func (e *fakeEmbedder) Dimensions() int { return 1 }

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	key := text[strings.LastIndex(text, "\n")+1:]
	i, ok := e.index[key]
	if !ok {
		return nil, fmt.Errorf("unknown clause %q", key)
	}
	return []float32{float32(i)}, nil
}

type fakeSearcher struct {
	mu          sync.Mutex
	calls       map[int]int
	inFlight    int
	maxInFlight int
	delay       func(unit int) time.Duration
	fn          func(unit, attempt int) ([]types.SimilarityMatch, error)
	categories  []string
}

func (s *fakeSearcher) Search(ctx context.Context, _ string, vector []float32, f vectorstore.Filter, _ int, _ vectorstore.SearchParams) ([]types.SimilarityMatch, error) {
	unit := int(vector[0])

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[int]int)
	}
	s.calls[unit]++
	attempt := s.calls[unit]
	s.categories = append(s.categories, f.Category)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay != nil {
		select {
		case <-time.After(s.delay(unit)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fn != nil {
		return s.fn(unit, attempt)
	}
	return []types.SimilarityMatch{{
		ID:            "p1",
		ProofText:     "근로기준법 제43조",
		IncorrectText: "임금은 분기마다 지급한다",
		CorrectedText: "임금은 매월 1회 이상 지급한다",
	}}, nil
}

func (s *fakeSearcher) callsFor(unit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[unit]
}

type fakeCorrector struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(in correction.Input, attempt int) (correction.Result, error)
}

func (c *fakeCorrector) Correct(ctx context.Context, in correction.Input) (correction.Result, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[in.ClauseContent]++
	attempt := c.calls[in.ClauseContent]
	c.mu.Unlock()
	return c.fn(in, attempt)
}

func (c *fakeCorrector) callsFor(content string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[content]
}

func scored(score float64) correction.Result {
	return correction.OkResult(correction.Correction{
		CorrectedText:  "수정된 조항",
		ProofText:      "근로기준법 제43조",
		ViolationScore: score,
	})
}

// fakeDoc reports a rectangle wherever a literal occurs in a page's text. The
// rectangle's top edge is 40 units per page so boxes show where they came from.
type fakeDoc struct {
	pages map[int]string
	count int
}

func (d *fakeDoc) PageCount() int                  { return d.count }
func (d *fakeDoc) PageSize(int) (float64, float64) { return 200, 400 }

func (d *fakeDoc) Search(page int, literal string) []locator.Rect {
	if strings.Contains(d.pages[page], literal) {
		y := float64(page * 40)
		return []locator.Rect{{X0: 20, Y0: y, X1: 120, Y1: y + 20}}
	}
	return nil
}

type recordingTimer struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (t *recordingTimer) After(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	c := make(chan time.Time, 1)
	c <- time.Now()
	return c
}

type harness struct {
	embedder  *fakeEmbedder
	searcher  *fakeSearcher
	corrector *fakeCorrector
	timer     *recordingTimer
	units     []*types.ReviewUnit
	doc       *fakeDoc
}

// newHarness builds one unit per content string, each on its own page.
func newHarness(contents ...string) *harness {
	h := &harness{
		embedder:  &fakeEmbedder{index: make(map[string]int)},
		searcher:  &fakeSearcher{},
		corrector: &fakeCorrector{fn: func(correction.Input, int) (correction.Result, error) { return scored(0.95), nil }},
		timer:     &recordingTimer{},
		doc:       &fakeDoc{pages: make(map[int]string), count: len(contents)},
	}
	for i, content := range contents {
		page := i + 1
		h.embedder.index[content] = i
		h.doc.pages[page] = content
		h.units = append(h.units, &types.ReviewUnit{
			ClauseNumber:  fmt.Sprintf("제%d조 1항", i+1),
			IncorrectText: fmt.Sprintf("제%d조(조항)+\n%s", i+1, content),
			Fragments:     []types.Fragment{{OrderIndex: 1, Page: page}},
		})
	}
	return h
}

func (h *harness) orchestrator(t *testing.T, mutate ...func(*Config)) *Orchestrator {
	t.Helper()
	cfg := Config{
		Embedder:  h.embedder,
		Searcher:  h.searcher,
		Corrector: h.corrector,
		Timer:     h.timer,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without collaborators")
	}
}

func TestProcessThresholdGate(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다", "휴가는 회사가 정한다", "계약 기간은 1년으로 한다")
	scores := map[string]float64{
		"임금은 분기마다 지급한다": 0.95,
		"휴가는 회사가 정한다":    0.89,
		"계약 기간은 1년으로 한다": 0.5,
	}
	h.corrector.fn = func(in correction.Input, _ int) (correction.Result, error) {
		return scored(scores[strings.TrimPrefix(in.ClauseContent, "\n")]), nil
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	if res.Rejected != 2 {
		t.Errorf("Rejected = %d, want 2", res.Rejected)
	}
	u := res.Units[0]
	if u.ClauseNumber != "제1조 1항" {
		t.Errorf("accepted %q, want 제1조 1항", u.ClauseNumber)
	}
	if u.Accuracy == nil || *u.Accuracy != 0.95 {
		t.Errorf("Accuracy = %v, want 0.95", u.Accuracy)
	}
	if u.CorrectedText == "" {
		t.Error("CorrectedText is empty")
	}
	if len(u.Fragments[0].Position) == 0 {
		t.Error("first fragment has no position")
	}
	if strings.Contains(u.IncorrectText, "+") || strings.Contains(u.IncorrectText, "\n") {
		t.Errorf("IncorrectText not normalized: %q", u.IncorrectText)
	}
}

func TestProcessPassesCategoryAndTitleToCollaborators(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다")
	var got correction.Input
	h.corrector.fn = func(in correction.Input, _ int) (correction.Result, error) {
		got = in
		return scored(0.1), nil
	}

	h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(h.embedder.texts) != 1 || !strings.HasPrefix(h.embedder.texts[0], "제1조(조항) ") {
		t.Errorf("embedded texts = %q, want title prefix", h.embedder.texts)
	}
	if len(h.searcher.categories) != 1 || h.searcher.categories[0] != "labor" {
		t.Errorf("search categories = %v", h.searcher.categories)
	}
	if len(got.ProofText) != 1 || len(got.IncorrectText) != 1 || len(got.CorrectedText) != 1 {
		t.Errorf("correction lists = %+v, want one entry each", got)
	}
	if strings.HasPrefix(got.ClauseContent, "제1조") {
		t.Errorf("ClauseContent %q still carries the title", got.ClauseContent)
	}
}

func TestProcessPreservesSubmissionOrder(t *testing.T) {
	contents := make([]string, 8)
	for i := range contents {
		contents[i] = fmt.Sprintf("조항 본문 번호 %d", i)
	}
	h := newHarness(contents...)
	// Later units finish first.
	h.searcher.delay = func(unit int) time.Duration {
		return time.Duration(len(contents)-unit) * 5 * time.Millisecond
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != len(contents) {
		t.Fatalf("accepted %d units, want %d", len(res.Units), len(contents))
	}
	for i, u := range res.Units {
		want := fmt.Sprintf("제%d조 1항", i+1)
		if u.ClauseNumber != want {
			t.Errorf("Units[%d] = %q, want %q", i, u.ClauseNumber, want)
		}
	}
}

func TestProcessBoundsSearchConcurrency(t *testing.T) {
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = fmt.Sprintf("동시성 확인 조항 %d", i)
	}
	h := newHarness(contents...)
	h.searcher.delay = func(int) time.Duration { return 20 * time.Millisecond }

	o := h.orchestrator(t)
	res := o.Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != len(contents) {
		t.Fatalf("accepted %d units, want %d", len(res.Units), len(contents))
	}
	if h.searcher.maxInFlight > DefaultSearchConcurrency {
		t.Errorf("max in-flight searches = %d, want <= %d", h.searcher.maxInFlight, DefaultSearchConcurrency)
	}
	if st := o.Stats(); st.Accepted != int64(len(contents)) || st.SearchInFlight != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestSearchSucceedsOnLastAttempt(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다")
	h.searcher.fn = func(_, attempt int) ([]types.SimilarityMatch, error) {
		if attempt < DefaultMaxRetries {
			return nil, errors.New("connection reset")
		}
		return []types.SimilarityMatch{{ID: "p1", ProofText: "근거"}}, nil
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1 (failures: %+v)", len(res.Units), res.Failures)
	}
	if got := h.searcher.callsFor(0); got != DefaultMaxRetries {
		t.Errorf("search calls = %d, want %d", got, DefaultMaxRetries)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(h.timer.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", h.timer.waits, want)
	}
	for i := range want {
		if h.timer.waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, h.timer.waits[i], want[i])
		}
	}
}

func TestSearchExhaustionIsIsolated(t *testing.T) {
	h := newHarness("검색이 실패하는 조항", "정상적으로 처리되는 조항")
	h.searcher.fn = func(unit, _ int) ([]types.SimilarityMatch, error) {
		if unit == 0 {
			return nil, errors.New("vector store unavailable")
		}
		return []types.SimilarityMatch{{ID: "p1"}}, nil
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 || res.Units[0].ClauseNumber != "제2조 1항" {
		t.Fatalf("accepted = %+v, want only 제2조 1항", res.Units)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", res.Failures)
	}
	if code := errcode.From(res.Failures[0].Err); code.Code != errcode.SearchFailed.Code {
		t.Errorf("failure code = %s, want %s", code, errcode.SearchFailed)
	}
	if got := h.searcher.callsFor(0); got != DefaultMaxRetries {
		t.Errorf("search calls = %d, want %d (no attempts past the ceiling)", got, DefaultMaxRetries)
	}
}

func TestSearchMissingCollectionIsNotRetried(t *testing.T) {
	h := newHarness("컬렉션이 없는 조항")
	h.searcher.fn = func(int, int) ([]types.SimilarityMatch, error) {
		return nil, vectorstore.ErrCollectionNotFound
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Failures) != 1 || !errcode.Has(res.Failures[0].Err, errcode.SearchFailed) {
		t.Fatalf("failures = %+v, want SearchFailed", res.Failures)
	}
	if got := h.searcher.callsFor(0); got != 1 {
		t.Errorf("search calls = %d, want 1", got)
	}
}

func TestNoMatchesFound(t *testing.T) {
	h := newHarness("일치 항목이 없는 조항")
	h.searcher.fn = func(int, int) ([]types.SimilarityMatch, error) { return nil, nil }

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", res.Failures)
	}
	if code := errcode.From(res.Failures[0].Err); code.Code != errcode.NoMatchesFound.Code {
		t.Errorf("failure code = %s, want %s", code, errcode.NoMatchesFound)
	}
	if got := h.corrector.callsFor("\n일치 항목이 없는 조항"); got != 0 {
		t.Errorf("corrector called %d times, want 0", got)
	}
}

func TestMalformedCorrectionIsDropped(t *testing.T) {
	h := newHarness("형식이 잘못된 응답 조항")
	h.corrector.fn = func(correction.Input, int) (correction.Result, error) {
		return correction.MalformedResult("not json", "no JSON object"), nil
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if res.Dropped != 1 || len(res.Failures) != 0 || len(res.Units) != 0 {
		t.Fatalf("result = %+v, want one dropped unit", res)
	}
	if got := h.corrector.callsFor("\n형식이 잘못된 응답 조항"); got != DefaultMaxRetries {
		t.Errorf("corrector calls = %d, want %d", got, DefaultMaxRetries)
	}
}

func TestMalformedThenValidCorrection(t *testing.T) {
	h := newHarness("두 번째에 성공하는 조항")
	h.corrector.fn = func(_ correction.Input, attempt int) (correction.Result, error) {
		if attempt == 1 {
			return correction.MalformedResult("{}", "missing fields"), nil
		}
		return scored(0.97), nil
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
}

func TestCorrectorErrorExhaustion(t *testing.T) {
	h := newHarness("모델 호출이 실패하는 조항")
	h.corrector.fn = func(correction.Input, int) (correction.Result, error) {
		return correction.Result{}, errors.New("upstream 503")
	}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", res.Failures)
	}
	if code := errcode.From(res.Failures[0].Err); code.Code != errcode.ReviewFailed.Code {
		t.Errorf("failure code = %s, want %s", code, errcode.ReviewFailed)
	}
	if errcode.Has(res.Failures[0].Err, errcode.LLMResponseTimeout) {
		t.Error("plain upstream failure reported as a timeout")
	}
}

func TestCallTimeoutCountsAsAttempt(t *testing.T) {
	h := newHarness("응답이 늦는 조항")
	h.corrector.fn = func(_ correction.Input, attempt int) (correction.Result, error) {
		if attempt == 1 {
			time.Sleep(50 * time.Millisecond)
			return correction.Result{}, errors.New("late reply")
		}
		return scored(0.93), nil
	}

	o := h.orchestrator(t, func(c *Config) { c.CallTimeout = 10 * time.Millisecond })
	res := o.Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1 (failures: %+v)", len(res.Units), res.Failures)
	}
	if got := h.corrector.callsFor("\n응답이 늦는 조항"); got != 2 {
		t.Errorf("corrector calls = %d, want 2", got)
	}
}

func TestCallTimeoutExhaustion(t *testing.T) {
	h := newHarness("항상 늦는 조항")
	h.corrector.fn = func(correction.Input, int) (correction.Result, error) {
		time.Sleep(30 * time.Millisecond)
		return correction.Result{}, errors.New("late reply")
	}

	o := h.orchestrator(t, func(c *Config) { c.CallTimeout = 5 * time.Millisecond })
	res := o.Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", res.Failures)
	}
	err := res.Failures[0].Err
	if !errcode.Has(err, errcode.ReviewFailed) || !errcode.Has(err, errcode.LLMResponseTimeout) {
		t.Errorf("error = %v, want ReviewFailed caused by LLMResponseTimeout", err)
	}
	if !errors.Is(err, ErrAttemptTimeout) {
		t.Errorf("error = %v, want ErrAttemptTimeout in chain", err)
	}
}

func TestEmbeddingFailure(t *testing.T) {
	h := newHarness("임베딩이 실패하는 조항")
	delete(h.embedder.index, "임베딩이 실패하는 조항")

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Failures) != 1 || !errcode.Has(res.Failures[0].Err, errcode.EmbeddingFailed) {
		t.Fatalf("failures = %+v, want EmbeddingFailed", res.Failures)
	}
	if len(h.embedder.texts) != DefaultMaxRetries {
		t.Errorf("embed calls = %d, want %d", len(h.embedder.texts), DefaultMaxRetries)
	}
}

func TestSharedLimiterBoundsSearchesAcrossOrchestrators(t *testing.T) {
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = fmt.Sprintf("공유 제한 조항 %d", i)
	}
	h1 := newHarness(contents...)
	h2 := newHarness(contents...)
	h2.searcher = h1.searcher
	h1.searcher.delay = func(int) time.Duration { return 20 * time.Millisecond }

	limiter := semaphore.NewWeighted(3)
	withLimiter := func(c *Config) { c.Limiter = limiter }
	old := h1.orchestrator(t, withLimiter)
	reloaded := h2.orchestrator(t, withLimiter, func(c *Config) { c.SearchConcurrency = 5 })

	var wg sync.WaitGroup
	for _, run := range []struct {
		o *Orchestrator
		h *harness
	}{{old, h1}, {reloaded, h2}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run.o.Process(context.Background(), run.h.units, "labor", run.h.doc)
		}()
	}
	wg.Wait()

	if h1.searcher.maxInFlight > 3 {
		t.Errorf("max in-flight searches = %d, want <= 3", h1.searcher.maxInFlight)
	}
}

func TestSinglePageSpan(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다")
	h.units[0].Fragments = []types.Fragment{
		{OrderIndex: 4, Page: 3},
		{OrderIndex: 1, Page: 4},
	}
	h.doc = &fakeDoc{count: 4, pages: map[int]string{3: "임금은 분기마다 지급한다"}}
	h.corrector.fn = func(correction.Input, int) (correction.Result, error) { return scored(0.91), nil }

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	u := res.Units[0]
	if len(u.Fragments[0].Position) == 0 {
		t.Error("fragments[0].position is empty")
	}
	if u.Fragments[1].Position != nil {
		t.Errorf("fragments[1].position = %v, want unset", u.Fragments[1].Position)
	}
}

func TestPositionsComeFromTheFragmentPage(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다")
	h.units[0].IncorrectText = "제1조(임금)+\n임금은 분기마다 지급한다\n지급할 수 있다."
	h.embedder.index["지급할 수 있다."] = 0
	h.units[0].Fragments = []types.Fragment{{OrderIndex: 1, Page: 2}}
	h.doc = &fakeDoc{count: 2, pages: map[int]string{
		1: "상여금은 회사 사정에 따라 지급할 수 있다.",
		2: "임금은 분기마다 지급한다\n지급할 수 있다.",
	}}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	pos := res.Units[0].Fragments[0].Position
	if len(pos) == 0 {
		t.Fatal("fragments[0].position is empty")
	}
	// Page 2 boxes start at 80/400 of the page height.
	if pos[0].Y != 20 {
		t.Errorf("fragments[0] box Y = %v, want 20 (page 2)", pos[0].Y)
	}
}

func TestPositionsFallBackToFirstPageFound(t *testing.T) {
	h := newHarness("임금은 분기마다 지급한다")
	h.units[0].Fragments = []types.Fragment{{OrderIndex: 1, Page: 1}, {OrderIndex: 1, Page: 2}}
	h.doc = &fakeDoc{count: 3, pages: map[int]string{3: "임금은 분기마다 지급한다"}}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	frags := res.Units[0].Fragments
	if len(frags[0].Position) == 0 || frags[0].Position[0].Y != 30 {
		t.Errorf("fragments[0].position = %v, want page 3 boxes", frags[0].Position)
	}
	if frags[1].Position != nil {
		t.Errorf("fragments[1].position = %v, want unset", frags[1].Position)
	}
}

func TestTwoPageSpanIsTruncated(t *testing.T) {
	h := newHarness("여러 페이지에 걸친 조항")
	h.units[0].Fragments = []types.Fragment{{Page: 1}, {Page: 2}}
	h.doc = &fakeDoc{count: 3, pages: map[int]string{
		1: "여러 페이지에 걸친 조항",
		2: "여러 페이지에 걸친 조항",
		3: "여러 페이지에 걸친 조항",
	}}

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", h.doc)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	frags := res.Units[0].Fragments
	if len(frags) != 2 || len(frags[0].Position) == 0 || len(frags[1].Position) == 0 {
		t.Errorf("fragments = %+v, want both pages located", frags)
	}
}

func TestAcceptedWithoutDocumentKeepsEmptyPosition(t *testing.T) {
	h := newHarness("문서 없이 처리되는 조항")

	res := h.orchestrator(t).Process(context.Background(), h.units, "labor", nil)

	if len(res.Units) != 1 {
		t.Fatalf("accepted %d units, want 1", len(res.Units))
	}
	if pos := res.Units[0].Fragments[0].Position; pos == nil || len(pos) != 0 {
		t.Errorf("position = %v, want empty non-nil slice", pos)
	}
}

func TestProcessEmpty(t *testing.T) {
	h := newHarness()
	res := h.orchestrator(t).Process(context.Background(), nil, "labor", nil)
	if res.Units == nil || len(res.Units) != 0 {
		t.Errorf("Units = %v, want empty non-nil slice", res.Units)
	}
}

func TestCustomThreshold(t *testing.T) {
	h := newHarness("완화된 기준의 조항")
	h.corrector.fn = func(correction.Input, int) (correction.Result, error) { return scored(0.6), nil }

	o := h.orchestrator(t, func(c *Config) { c.Threshold = 0.5 })
	res := o.Process(context.Background(), h.units, "labor", h.doc)

	if o.Threshold() != 0.5 {
		t.Errorf("Threshold() = %v, want 0.5", o.Threshold())
	}
	if len(res.Units) != 1 {
		t.Errorf("accepted %d units, want 1", len(res.Units))
	}
}
