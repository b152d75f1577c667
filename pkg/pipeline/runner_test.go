package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/depfile"
	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/source"
)

func sources(contents ...string) []source.Source {
	out := make([]source.Source, len(contents))
	for i, c := range contents {
		out[i] = source.New(fmt.Sprintf("src%d.d", i+1), []byte(c))
	}
	return out
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		sources []source.Source
		want    string
	}{
		{
			name:    "no sources",
			sources: nil,
			want:    `[]`,
		},
		{
			name:    "only comments",
			sources: sources("# nothing here\n\n"),
			want:    `[]`,
		},
		{
			name:    "two sources",
			sources: sources("main.o: main.c file1.h file2.h", "file1.o: file1.c file1.h"),
			want:    `[{"target":"main.o","prerequisites":["main.c","file1.h","file2.h"]},{"target":"file1.o","prerequisites":["file1.c","file1.h"]}]`,
		},
		{
			name:    "target merged across sources",
			sources: sources("a.o: x.c", "a.o: y.c x.c"),
			want:    `[{"target":"a.o","prerequisites":["x.c","y.c"]}]`,
		},
		{
			name:    "comments and blank lines",
			sources: sources("# note\n\na.o: a.c\n\n# more\nb.o: b.c\n"),
			want:    `[{"target":"a.o","prerequisites":["a.c"]},{"target":"b.o","prerequisites":["b.c"]}]`,
		},
	}

	r := NewRunner(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Execute(context.Background(), tt.sources, Options{})
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			if string(res.Output) != tt.want {
				t.Errorf("Execute() =\n%s\nwant\n%s", res.Output, tt.want)
			}
			if res.Format != FormatJSON {
				t.Errorf("Format = %q, want json", res.Format)
			}
		})
	}
}

func TestExecuteOrderIndependentOfJobs(t *testing.T) {
	var contents []string
	for i := 0; i < 40; i++ {
		contents = append(contents, fmt.Sprintf("t%d.o: shared.h f%d.c\nshared.o: f%d.h\n", i%7, i, i))
	}
	srcs := sources(contents...)

	r := NewRunner(nil, nil, nil)
	serial, err := r.Execute(context.Background(), srcs, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("Execute(jobs=1) error: %v", err)
	}
	for _, jobs := range []int{2, 8, 64} {
		parallel, err := r.Execute(context.Background(), srcs, Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("Execute(jobs=%d) error: %v", jobs, err)
		}
		if string(parallel.Output) != string(serial.Output) {
			t.Errorf("jobs=%d output differs from serial run", jobs)
		}
	}
}

func TestExecuteReportsFirstFailingSource(t *testing.T) {
	srcs := sources("a: b\n", "broken\n", "ok: x\n", ": also broken\n")
	r := NewRunner(nil, nil, nil)

	for i := 0; i < 20; i++ {
		res, err := r.Execute(context.Background(), srcs, Options{Jobs: 4})
		if err == nil {
			t.Fatalf("Execute() = %s, want error", res.Output)
		}
		if res != nil {
			t.Fatal("Execute() returned a result with an error")
		}
		pos, ok := errors.PositionOf(err)
		if !ok || pos.Source != "src2.d" {
			t.Fatalf("error position = %+v, want src2.d", pos)
		}
	}
}

func TestExecuteTrailingEscape(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), sources(`a.o: b.c \`), Options{})
	if !errors.Is(err, errors.ErrCodeMalformedInput) {
		t.Errorf("Execute() error = %v, want %v", err, errors.ErrCodeMalformedInput)
	}
}

func TestExecuteEncodingError(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), sources("a.o: b\xff.c"), Options{})
	if !errors.Is(err, errors.ErrCodeEncoding) {
		t.Errorf("Execute() error = %v, want %v", err, errors.ErrCodeEncoding)
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(ctx, sources("a: b"), Options{}); err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecuteIdempotent(t *testing.T) {
	srcs := sources("z.o: z.c a.h\n", "a.o: a.c a.h\nz.o: b.h\n")
	r := NewRunner(nil, nil, nil)
	first, err := r.Execute(context.Background(), srcs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(context.Background(), srcs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Output) != string(second.Output) {
		t.Errorf("runs differ:\n%s\n%s", first.Output, second.Output)
	}
}

func TestExecuteIndent(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), sources("a: b"), Options{Indent: true})
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n  {\n    \"target\": \"a\",\n    \"prerequisites\": [\n      \"b\"\n    ]\n  }\n]"
	if string(res.Output) != want {
		t.Errorf("Execute(indent) =\n%s\nwant\n%s", res.Output, want)
	}
}

func TestExecuteDOT(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), sources("a: b"), Options{Format: FormatDOT, Direction: "LR"})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Output)
	if !strings.HasPrefix(out, "digraph") || !strings.Contains(out, `"a" -> "b";`) || !strings.Contains(out, "rankdir=LR") {
		t.Errorf("unexpected DOT output:\n%s", out)
	}
}

func TestExecuteStats(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), sources("a b: c\n", "a: d\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := res.Stats
	if got.Sources != 2 || got.Rules != 3 || got.Targets != 2 || got.Bytes != 12 {
		t.Errorf("Stats = %+v", got)
	}
}

func TestExecuteUsesCache(t *testing.T) {
	mem, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(mem, nil, nil)
	srcs := sources("a: b c\n", "d: e\n")

	first, err := r.Execute(context.Background(), srcs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.Hits != 0 || first.CacheInfo.Misses != 2 {
		t.Errorf("first run CacheInfo = %+v", first.CacheInfo)
	}
	if mem.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", mem.Len())
	}

	// Same content under a different name hits the cache.
	renamed := []source.Source{source.New("other.d", srcs[0].Data), srcs[1]}
	second, err := r.Execute(context.Background(), renamed, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheInfo.Hits != 2 {
		t.Errorf("second run CacheInfo = %+v", second.CacheInfo)
	}
	if string(first.Output) != string(second.Output) {
		t.Error("cached run produced different output")
	}

	refreshed, err := r.Execute(context.Background(), srcs, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.Hits != 0 {
		t.Errorf("refresh run CacheInfo = %+v", refreshed.CacheInfo)
	}
}

func TestExecuteIgnoresCorruptCacheEntry(t *testing.T) {
	mem, _ := cache.NewMemoryCache(4)
	r := NewRunner(mem, nil, nil)
	src := sources("a: b\n")

	key := r.Keyer.RulesKey(cache.Hash(src[0].Data))
	_ = mem.Set(context.Background(), key, []byte("not json"), 0)

	res, err := r.Execute(context.Background(), src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.Hits != 0 {
		t.Error("corrupt entry counted as hit")
	}
	if string(res.Output) != `[{"target":"a","prerequisites":["b"]}]` {
		t.Errorf("Output = %s", res.Output)
	}
}

func TestExecuteScopedKeys(t *testing.T) {
	mem, _ := cache.NewMemoryCache(4)
	r := NewRunner(mem, cache.NewScopedKeyer(nil, "dep2j:"), nil)
	src := sources("a: b\n")

	if _, err := r.Execute(context.Background(), src, Options{}); err != nil {
		t.Fatal(err)
	}

	bare := cache.NewDefaultKeyer().RulesKey(cache.Hash(src[0].Data))
	if _, hit, _ := mem.Get(context.Background(), "dep2j:"+bare); !hit {
		t.Error("entry not stored under prefixed key")
	}
	if _, hit, _ := mem.Get(context.Background(), bare); hit {
		t.Error("entry stored under bare key")
	}
}

func TestEncodeRulesSkipsInvalidUTF8(t *testing.T) {
	if _, ok := encodeRules([]depfile.RawRule{{Target: "a\xff", Prerequisites: []string{}}}); ok {
		t.Error("invalid target encoded")
	}
	if _, ok := encodeRules([]depfile.RawRule{{Target: "a", Prerequisites: []string{"\xfe"}}}); ok {
		t.Error("invalid prerequisite encoded")
	}

	rules := []depfile.RawRule{{Target: "a", Prerequisites: []string{}}, {Target: "b", Prerequisites: []string{"c"}}}
	data, ok := encodeRules(rules)
	if !ok {
		t.Fatal("valid rules not encoded")
	}
	back, err := decodeRules(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rules, back); diff != "" {
		t.Errorf("decodeRules() mismatch (-want +got):\n%s", diff)
	}
}

type countingHooks struct {
	observability.NoopPipelineHooks
	mu      sync.Mutex
	parsed  []string
	merged  int
	encoded int
}

func (h *countingHooks) OnParseComplete(_ context.Context, source string, _ int, _ bool, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.parsed = append(h.parsed, source)
}

func (h *countingHooks) OnMergeComplete(context.Context, int, int, time.Duration) {
	h.merged++
}

func (h *countingHooks) OnSerializeComplete(context.Context, int, time.Duration, error) {
	h.encoded++
}

func TestExecuteEmitsHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), sources("a: b", "c: d", "e: f"), Options{}); err != nil {
		t.Fatal(err)
	}
	if len(hooks.parsed) != 3 || hooks.merged != 1 || hooks.encoded != 1 {
		t.Errorf("hooks: parsed %v, merged %d, encoded %d", hooks.parsed, hooks.merged, hooks.encoded)
	}
}
