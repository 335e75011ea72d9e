package recall_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/rcliao/campaign-memory/internal/embedding"
	"github.com/rcliao/campaign-memory/internal/memory"
	"github.com/rcliao/campaign-memory/internal/model"
	"github.com/rcliao/campaign-memory/internal/recall"
	"github.com/rcliao/campaign-memory/internal/store"
)

type call struct {
	kind   model.Kind
	filter memory.Filter
	k      int
}

// fakeRetriever serves canned hits per kind. Kinds listed in errs fail,
// kinds listed in hang block until release is closed.
type fakeRetriever struct {
	mu      sync.Mutex
	calls   []call
	hits    map[model.Kind][]model.Hit
	errs    map[model.Kind]error
	hang    map[model.Kind]bool
	release chan struct{}
}

func (f *fakeRetriever) Retrieve(_ context.Context, kind model.Kind, _ string, filter memory.Filter, k int) ([]model.Hit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{kind, filter, k})
	f.mu.Unlock()

	if f.hang[kind] {
		<-f.release
	}
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.hits[kind], nil
}

func hit(kind model.Kind, text string, name string) model.Hit {
	meta := model.Metadata{"type": string(kind)}
	if name != "" {
		meta[kind.NameField()] = name
	}
	return model.Hit{Record: model.Record{Kind: kind, Text: text, Metadata: meta}}
}

func allKinds() map[model.Kind][]model.Hit {
	return map[model.Kind][]model.Hit{
		model.KindItem:     {hit(model.KindItem, "A rusted key", "Key")},
		model.KindLocation: {hit(model.KindLocation, "The gate creaks", "Iron Gate")},
		model.KindNPC:      {hit(model.KindNPC, "Grak distrusts the party", "Grak")},
		model.KindSession:  {hit(model.KindSession, "The party crossed the bridge", "")},
	}
}

func TestBuildPriorityOrder(t *testing.T) {
	f := &fakeRetriever{hits: allKinds()}
	out, err := recall.New(f).Context(context.Background(), recall.Request{Query: "bridge"})
	gt.NoError(t, err)

	want := strings.Join([]string{
		"Relevant memories:",
		"- [session] The party crossed the bridge",
		"- [npc: Grak] Grak distrusts the party",
		"- [location: Iron Gate] The gate creaks",
		"- [item: Key] A rusted key",
	}, "\n")
	gt.Equal(t, out, want)
}

func TestBuildKeepsRankWithinKind(t *testing.T) {
	f := &fakeRetriever{hits: map[model.Kind][]model.Hit{
		model.KindNPC: {
			hit(model.KindNPC, "first", "Grak"),
			hit(model.KindNPC, "second", "Mira"),
			hit(model.KindNPC, "first", "Grak"),
		},
		model.KindItem: {hit(model.KindItem, "first", "Key")},
	}}
	res, err := recall.New(f).Build(context.Background(), recall.Request{Query: "q"})
	gt.NoError(t, err)
	gt.A(t, res.Entries).Length(3)
	gt.Equal(t, res.Entries[0].Text, "first")
	gt.Equal(t, res.Entries[1].Text, "second")
	gt.Equal(t, res.Entries[2].Kind, model.KindItem)
}

func TestBuildModesAndScoping(t *testing.T) {
	ctx := context.Background()

	f := &fakeRetriever{}
	_, err := recall.New(f).Build(ctx, recall.Request{Query: "q", SessionID: "s1"})
	gt.NoError(t, err)
	gt.A(t, f.calls).Length(4)
	for _, c := range f.calls {
		gt.Equal(t, c.k, recall.DefaultSceneK)
		if c.kind == model.KindSession {
			gt.Equal(t, c.filter, memory.ByNaturalID("s1"))
		} else {
			gt.True(t, c.filter.IsNone())
		}
	}

	f = &fakeRetriever{}
	_, err = recall.New(f, recall.WithTurnK(2)).Build(ctx, recall.Request{Query: "q", Mode: recall.ModeTurn})
	gt.NoError(t, err)
	for _, c := range f.calls {
		gt.Equal(t, c.k, 2)
	}

	f = &fakeRetriever{}
	_, err = recall.New(f).Build(ctx, recall.Request{Query: "q", Mode: recall.ModeTurn, K: 7})
	gt.NoError(t, err)
	for _, c := range f.calls {
		gt.Equal(t, c.k, 7)
	}

	_, err = recall.New(f).Build(ctx, recall.Request{Query: "q", K: -1})
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestBuildEmptyReturnsSentinel(t *testing.T) {
	out, err := recall.New(&fakeRetriever{}).Context(context.Background(), recall.Request{Query: "anything"})
	gt.NoError(t, err)
	gt.Equal(t, out, recall.NoRelevantMemories)
}

func TestBuildItemsFailureDegrades(t *testing.T) {
	f := &fakeRetriever{
		hits: allKinds(),
		errs: map[model.Kind]error{model.KindItem: model.ErrEncoderUnavailable},
	}
	res, err := recall.New(f).Build(context.Background(), recall.Request{Query: "bridge"})
	gt.NoError(t, err)
	gt.A(t, res.Entries).Length(3)
	gt.A(t, res.Failures).Length(1)
	gt.Equal(t, res.Failures[0].Kind, model.KindItem)

	out := recall.Render(res.Entries)
	gt.S(t, out).Contains("[session]")
	gt.S(t, out).Contains("[npc: Grak]")
	gt.S(t, out).Contains("[location: Iron Gate]")
	gt.S(t, out).NotContains("[item")
}

func TestBuildAllFailuresReturnSentinel(t *testing.T) {
	errs := map[model.Kind]error{}
	for _, kind := range model.Kinds {
		errs[kind] = model.ErrPersistence
	}
	out, err := recall.New(&fakeRetriever{hits: allKinds(), errs: errs}).
		Context(context.Background(), recall.Request{Query: "q"})
	gt.NoError(t, err)
	gt.Equal(t, out, recall.NoRelevantMemories)
}

func TestBuildTimesOutHangingKind(t *testing.T) {
	f := &fakeRetriever{
		hits:    allKinds(),
		hang:    map[model.Kind]bool{model.KindLocation: true},
		release: make(chan struct{}),
	}
	t.Cleanup(func() { close(f.release) })

	start := time.Now()
	res, err := recall.New(f, recall.WithTimeout(50*time.Millisecond)).
		Build(context.Background(), recall.Request{Query: "q"})
	gt.NoError(t, err)
	gt.True(t, time.Since(start) < 2*time.Second)

	gt.A(t, res.Entries).Length(3)
	gt.A(t, res.Failures).Length(1)
	gt.Equal(t, res.Failures[0].Kind, model.KindLocation)
	gt.True(t, errors.Is(res.Failures[0].Err, context.DeadlineExceeded))
}

func TestBuildSurfacesProgrammerErrors(t *testing.T) {
	for _, sentinel := range []error{model.ErrInvalidFilter, model.ErrUnknownCollection} {
		f := &fakeRetriever{
			hits: allKinds(),
			errs: map[model.Kind]error{model.KindNPC: sentinel},
		}
		_, err := recall.New(f).Build(context.Background(), recall.Request{Query: "q"})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, sentinel))
	}
}

func TestRender(t *testing.T) {
	gt.Equal(t, recall.Render(nil), recall.NoRelevantMemories)
	out := recall.Render([]recall.Entry{{Kind: model.KindNPC, Name: "Grak", Text: "Grak\n  grumbles"}})
	gt.Equal(t, out, "Relevant memories:\n- [npc: Grak] Grak grumbles")
}

func TestContextOverStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(t.TempDir(), embedding.NewHashEmbedder(0))
	gt.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	repo := memory.New(s)
	agg := recall.New(repo)

	out, err := agg.Context(ctx, recall.Request{Query: "bridge"})
	gt.NoError(t, err)
	gt.Equal(t, out, recall.NoRelevantMemories)

	_, err = repo.SaveSessionMemory(ctx, "s1", "The party crossed the rope bridge", nil)
	gt.NoError(t, err)
	_, err = repo.SaveSessionMemory(ctx, "s2", "Another campaign entirely", nil)
	gt.NoError(t, err)
	_, err = repo.SaveNPCMemory(ctx, "npc_7", "Grak", "Grak distrusts the party after the bridge incident", nil)
	gt.NoError(t, err)

	out, err = agg.Context(ctx, recall.Request{Query: "the bridge", SessionID: "s1"})
	gt.NoError(t, err)
	gt.S(t, out).Contains("- [session] The party crossed the rope bridge")
	gt.S(t, out).Contains("- [npc: Grak] Grak distrusts the party after the bridge incident")
	gt.S(t, out).NotContains("Another campaign")

	for _, kind := range model.Kinds {
		gt.NoError(t, s.Clear(ctx, kind))
	}
	out, err = agg.Context(ctx, recall.Request{Query: "the bridge"})
	gt.NoError(t, err)
	gt.Equal(t, out, recall.NoRelevantMemories)
}

func TestStopwordOnlyTextIsRecalled(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(t.TempDir(), embedding.NewHashEmbedder(0))
	gt.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	repo := memory.New(s)

	id, err := repo.SaveNPCMemory(ctx, "npc_1", "Grak", "It is on.", nil)
	gt.NoError(t, err)

	hits, err := repo.RetrieveNPCMemories(ctx, "Is it on?", memory.None(), 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].ID, id)

	res, err := recall.New(repo).Build(ctx, recall.Request{Query: "Is it on?", Mode: recall.ModeTurn})
	gt.NoError(t, err)
	gt.A(t, res.Failures).Length(0)
	gt.A(t, res.Entries).Length(1)
	gt.Equal(t, res.Entries[0].Text, "It is on.")
}
