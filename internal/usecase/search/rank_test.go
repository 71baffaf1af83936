package search

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/result"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
)

type mapSource map[string]vector.Vector

func (m mapSource) Get(id string) (vector.Vector, error) {
	v, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrMissingEmbedding)
	}
	return v, nil
}

func testItem(id string, d item.Domain) item.Item {
	return item.Reconstruct(id, "text "+id, d, time.Unix(0, 0), "", "")
}

func resultIDs(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return out
}

func TestRank_Deterministic(t *testing.T) {
	items := []item.Item{testItem("A", item.Local), testItem("B", item.Local), testItem("C", item.Sync)}
	src := mapSource{"A": {1, 0}, "B": {0, 1}, "C": {0.9, 0.1}}

	got, err := Rank(vector.Vector{1, 0}, items, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := resultIDs(got)
	if len(ids) != 3 || ids[0] != "A" || ids[1] != "C" || ids[2] != "B" {
		t.Fatalf("order = %v, want [A C B]", ids)
	}
	wantScores := []float64{1.0, 0.9938837, 0.0}
	for i, want := range wantScores {
		if math.Abs(got[i].Score()-want) > 1e-6 {
			t.Errorf("score[%d] = %f, want %f", i, got[i].Score(), want)
		}
	}
	if got[1].Origin() != item.Sync {
		t.Errorf("origin of C = %q, want sync", got[1].Origin())
	}
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	items := []item.Item{
		testItem("x", item.Local), testItem("y", item.Sync), testItem("z", item.Local), testItem("w", item.Local),
	}
	src := mapSource{"x": {0, 1}, "y": {1, 0}, "z": {2, 0}, "w": {0, 3}}

	for range 50 {
		got, err := Rank(vector.Vector{1, 0}, items, src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := resultIDs(got)
		if ids[0] != "y" || ids[1] != "z" || ids[2] != "x" || ids[3] != "w" {
			t.Fatalf("order = %v, want [y z x w]", ids)
		}
	}
}

func TestRank_MissingEmbedding(t *testing.T) {
	items := []item.Item{testItem("A", item.Local), testItem("B", item.Local)}
	_, err := Rank(vector.Vector{1, 0}, items, mapSource{"A": {1, 0}})
	if !errors.Is(err, domain.ErrMissingEmbedding) {
		t.Fatalf("expected ErrMissingEmbedding, got %v", err)
	}
}

func TestRank_InvalidVector(t *testing.T) {
	items := []item.Item{testItem("A", item.Local)}
	_, err := Rank(vector.Vector{1, 0}, items, mapSource{"A": {0, 0}})
	if !errors.Is(err, domain.ErrInvalidVector) {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestRank_Empty(t *testing.T) {
	got, err := Rank(vector.Vector{1, 0}, nil, mapSource{})
	if err != nil || len(got) != 0 {
		t.Fatalf("Rank(nil) = %v, %v", got, err)
	}
}

func TestPostFilter(t *testing.T) {
	rs := []result.Result{
		result.New(testItem("a", item.Local), 0.9),
		result.New(testItem("b", item.Local), 0.5),
		result.New(testItem("c", item.Local), -0.2),
	}
	got := postFilter(append([]result.Result(nil), rs...), 0.4, 0)
	if len(got) != 2 {
		t.Errorf("min_score 0.4 kept %d results", len(got))
	}
	got = postFilter(append([]result.Result(nil), rs...), 0, 1)
	if len(got) != 1 || got[0].ID() != "a" {
		t.Errorf("limit 1 = %v", resultIDs(got))
	}
	got = postFilter(append([]result.Result(nil), rs...), 0, 0)
	if len(got) != 3 {
		t.Errorf("no filter kept %d results", len(got))
	}
}
