package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func form(version string) metadata.FormMetadata {
	return metadata.FormMetadata{
		ID:      "contact",
		Version: version,
		Fields: []metadata.FormField{
			{ID: "f_name", Name: "name", Type: "text", Label: "Name", Required: true},
		},
	}
}

type countingBuilder struct {
	calls atomic.Int64
}

func (b *countingBuilder) build(meta metadata.FormMetadata) (*schema.Schema, []schema.Problem) {
	b.calls.Add(1)
	return schema.Build(meta)
}

func TestNew_RejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	if _, err := New(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}

func TestCompile_HitReturnsSameSchema(t *testing.T) {
	t.Parallel()

	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b := &countingBuilder{}

	first, problems, hit := c.Compile(form("1"), b.build)
	if len(problems) > 0 || hit {
		t.Fatalf("expected fresh build, problems=%v hit=%v", problems, hit)
	}
	second, _, hit := c.Compile(form("1"), b.build)
	if !hit {
		t.Fatalf("expected cache hit")
	}
	if first != second {
		t.Fatalf("expected the same schema reference on a hit")
	}
	if got := b.calls.Load(); got != 1 {
		t.Fatalf("expected one build, got %d", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCompile_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b := &countingBuilder{}

	v1, _, _ := c.Compile(form("1"), b.build)
	c.Compile(form("2"), b.build)
	c.Compile(form("1"), b.build) // refresh v1
	c.Compile(form("3"), b.build) // evicts v2

	if !c.Contains(form("1")) || c.Contains(form("2")) || !c.Contains(form("3")) {
		t.Fatalf("unexpected residency after eviction")
	}
	if c.Len() != 2 {
		t.Fatalf("expected bound of 2, got %d", c.Len())
	}

	again, _, hit := c.Compile(form("2"), b.build)
	if hit || again == nil {
		t.Fatalf("expected evicted form to recompile")
	}
	if got, _, _ := c.Compile(form("1"), b.build); got == v1 {
		t.Fatalf("expected v1 to have been evicted by the v2 rebuild")
	}

	if stats := c.Stats(); stats.Evictions != 3 {
		t.Fatalf("expected 3 evictions, got %+v", stats)
	}
}

func TestCompile_FailuresAreNotStored(t *testing.T) {
	t.Parallel()

	c, _ := New(4)
	b := &countingBuilder{}
	bad := form("")

	for i := 0; i < 2; i++ {
		s, problems, hit := c.Compile(bad, b.build)
		if s != nil || len(problems) == 0 || hit {
			t.Fatalf("expected failed build, got s=%v problems=%v hit=%v", s, problems, hit)
		}
	}
	if got := b.calls.Load(); got != 2 {
		t.Fatalf("expected failures to rebuild, got %d builds", got)
	}
	if c.Len() != 0 {
		t.Fatalf("expected no entries, got %d", c.Len())
	}
}

func TestCompile_ConcurrentCallersShareOneBuild(t *testing.T) {
	t.Parallel()

	c, _ := New(4)
	b := &countingBuilder{}

	const workers = 32
	results := make([]*schema.Schema, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = c.Compile(form("1"), b.build)
		}(i)
	}
	wg.Wait()

	if got := b.calls.Load(); got != 1 {
		t.Fatalf("expected a single build, got %d", got)
	}
	for i, s := range results {
		if s != results[0] {
			t.Fatalf("worker %d got a different schema", i)
		}
	}
}

func TestCompile_LogsAtDebug(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	c, _ := New(1, WithLogger(zap.New(core)))
	b := &countingBuilder{}

	c.Compile(form("1"), b.build)
	c.Compile(form("1"), b.build)
	c.Compile(form("2"), b.build)

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	want := []string{"schema cache miss", "schema cache hit", "schema cache entry removed", "schema cache miss"}
	if len(messages) != len(want) {
		t.Fatalf("unexpected log messages %v", messages)
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Fatalf("log %d = %q, want %q (all: %v)", i, messages[i], want[i], messages)
		}
	}
	if logs.FilterMessage("schema cache hit").All()[0].ContextMap()["form"] != "contact" {
		t.Fatalf("expected form field on hit log")
	}
}
