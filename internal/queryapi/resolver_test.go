package queryapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/graphindexer/gossip-listener/internal/errs"
	"github.com/graphindexer/gossip-listener/internal/store"
)

type fakeStore struct {
	rows       []store.Row
	aggregates []store.Aggregate
	subgraphs  int64
	deleted    []int64
}

func (f *fakeStore) ListAll(context.Context) ([]store.Row, error) { return f.rows, nil }

func (f *fakeStore) Get(_ context.Context, id int64) (*store.Row, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id int64) (*store.Row, error) {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.deleted = append(f.deleted, id)
			return &r, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeStore) DeleteAll(context.Context) ([]store.Row, error) {
	out := f.rows
	f.rows = nil
	return out, nil
}

func (f *fakeStore) ActiveSenders(context.Context, []string, int64) ([]string, error) {
	return []string{"0xAA"}, nil
}

func (f *fakeStore) SenderStats(context.Context, []string, int64) ([]store.SenderStats, error) {
	return []store.SenderStats{{GraphAccount: "0xAA", MessageCount: 3, SubgraphsCount: 2}}, nil
}

func (f *fakeStore) FetchAggregates(context.Context, int64) ([]store.Aggregate, error) {
	return f.aggregates, nil
}

func (f *fakeStore) CountDistinctSubgraphs(context.Context, int64) (int64, error) {
	return f.subgraphs, nil
}

func rowFor(t *testing.T, id int64, nonce uint64, account, identifier, kind string) store.Row {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"nonce":        nonce,
		"identifier":   identifier,
		"graph_account": account,
		"kind":         kind,
		"payload":      map[string]string{"identifier": identifier, "content": "x"},
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return store.Row{ID: id, Message: body}
}

func TestHealthIsConstant(t *testing.T) {
	r := New(&fakeStore{})
	if r.Health() != "Healthy" {
		t.Fatalf("want Healthy, got %q", r.Health())
	}
}

func TestRowNotFoundReturnsNilNotError(t *testing.T) {
	r := New(&fakeStore{})
	row, err := r.Row(context.Background(), RowArgs{ID: "999"})
	if err != nil {
		t.Fatalf("want nil error for not-found, got %v", err)
	}
	if row != nil {
		t.Fatal("want nil row for not-found id")
	}
}

func TestMessageDecodesEnvelopeFields(t *testing.T) {
	fs := &fakeStore{rows: []store.Row{rowFor(t, 1, 42, "0xAA", "QmA", "simple_test")}}
	r := New(fs)

	env, err := r.Message(context.Background(), RowArgs{ID: "1"})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if env.Nonce() != "42" || env.GraphAccount() != "0xAA" || env.Kind() != "simple_test" {
		t.Fatalf("unexpected envelope: nonce=%s account=%s kind=%s", env.Nonce(), env.GraphAccount(), env.Kind())
	}
}

func TestDeleteMessageRemovesRow(t *testing.T) {
	fs := &fakeStore{rows: []store.Row{rowFor(t, 1, 1, "0xAA", "QmA", "simple_test")}}
	r := New(fs)

	deleted, err := r.DeleteMessage(context.Background(), RowArgs{ID: "1"})
	if err != nil {
		t.Fatalf("delete_message: %v", err)
	}
	if deleted == nil {
		t.Fatal("want non-nil deleted envelope")
	}
	if len(fs.rows) != 0 {
		t.Fatalf("want 0 remaining rows, got %d", len(fs.rows))
	}
}

func TestAggregateSummaryComputesAveragesAndCoverage(t *testing.T) {
	fs := &fakeStore{
		aggregates: []store.Aggregate{
			{ID: 1, GraphAccount: "0xAA", MessageCount: 2, SubgraphsCount: 1},
			{ID: 2, GraphAccount: "0xAA", MessageCount: 4, SubgraphsCount: 2},
		},
		subgraphs: 3,
	}
	r := New(fs)

	summary, err := r.AggregateSummary(context.Background(), AggregateSummaryArgs{Days: 7})
	if err != nil {
		t.Fatalf("aggregate_summary: %v", err)
	}
	if len(summary.TotalMessageCount()) != 1 || summary.TotalMessageCount()[0].Count() != 6 {
		t.Fatalf("want total_message_count=6, got %+v", summary.TotalMessageCount())
	}
	// Average subgraphs (1+2)/2 = 1.5, ceiled to 2.
	if summary.AverageSubgraphsCount()[0].Count() != 2 {
		t.Fatalf("want average_subgraphs_count=2, got %d", summary.AverageSubgraphsCount()[0].Count())
	}
	if summary.TotalSubgraphsCovered() != 3 {
		t.Fatalf("want total_subgraphs_covered=3, got %d", summary.TotalSubgraphsCovered())
	}
}

type failingStore struct {
	fakeStore
	err error
}

func (f *failingStore) ListAll(context.Context) ([]store.Row, error) { return nil, f.err }

func TestResolverErrorsCarryKindExtension(t *testing.T) {
	fs := &failingStore{err: errs.ErrStore}
	r := New(fs)

	_, err := r.Rows(context.Background())
	if err == nil {
		t.Fatal("want error from failing store")
	}
	ext, ok := err.(interface{ Extensions() map[string]interface{} })
	if !ok {
		t.Fatalf("resolver error %v does not implement Extensions()", err)
	}
	if got := ext.Extensions()["code"]; got != "store" {
		t.Fatalf("want code=store, got %v", got)
	}
}

func TestRowBadIDReturnsBadRequestKind(t *testing.T) {
	r := New(&fakeStore{})

	_, err := r.Row(context.Background(), RowArgs{ID: "not-a-number"})
	if err == nil {
		t.Fatal("want error for malformed id")
	}
	ext, ok := err.(interface{ Extensions() map[string]interface{} })
	if !ok {
		t.Fatalf("resolver error %v does not implement Extensions()", err)
	}
	if got := ext.Extensions()["code"]; got != "bad_request" {
		t.Fatalf("want code=bad_request, got %v", got)
	}
}

func TestSenderArgsDefaultWindowIsOneDay(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := nowFunc
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = old }()

	args := SenderArgs{}
	want := fixed.Add(-1440 * time.Minute).Unix()
	if got := args.fromTS(); got != want {
		t.Fatalf("want default fromTS=%d, got %d", want, got)
	}
}
