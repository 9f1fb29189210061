package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/relex/pkg/relation"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustSource(t *testing.T, db *sql.DB, url string) int64 {
	t.Helper()
	id, err := CreateOrGetSource(db, Source{SourceType: "website_article", Website: "example.com", URL: url, Language: "en"})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	return id
}

func typeOf(sub, obj string) relation.Triple {
	return relation.Triple{
		Subject:   relation.TextTerm(sub),
		Predicate: relation.Predicate{Label: "typeOf"},
		Object:    relation.TextTerm(obj),
		Source:    relation.SourcePattern,
	}
}

func TestCreateOrGetSource(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1 := mustSource(t, db, "https://example.com/a")
	id2 := mustSource(t, db, "https://example.com/a")
	if id1 != id2 {
		t.Fatalf("expected same source id, got %d and %d", id1, id2)
	}
	id3 := mustSource(t, db, "https://example.com/b")
	if id3 == id1 {
		t.Fatalf("expected distinct source for a different url")
	}
}

func TestCreateOrGetSourceRequiresType(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := CreateOrGetSource(db, Source{URL: "https://example.com"}); err == nil {
		t.Fatalf("expected error for empty source type")
	}
}

func TestCreateOrGetSourceConcurrent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	const n = 8
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = CreateOrGetSource(db, Source{SourceType: "text_file", Title: "same.txt"})
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("expected one source id, got %v", ids)
		}
	}
}

func TestListSources(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	mustSource(t, db, "https://example.com/a")
	mustSource(t, db, "https://example.com/b")

	sources, err := ListSources(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].URL != "https://example.com/a" || sources[0].Language != "en" {
		t.Fatalf("unexpected first source: %+v", sources[0])
	}
	if sources[0].LastProcessedSentence != -1 {
		t.Fatalf("expected fresh progress -1, got %d", sources[0].LastProcessedSentence)
	}
}

func TestUpsertTripleCountsOccurrences(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID := mustSource(t, db, "https://example.com/c")

	tr := typeOf("apple", "fruit")
	if err := UpsertTriple(db, sID, "", "fruit such as apple.", tr); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// same triple from another sentence keeps the first sentence
	if err := UpsertTriple(db, sID, "", "apples and other fruit.", tr); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	got, err := QueryTriples(db, TripleFilter{SourceID: sID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(got))
	}
	if got[0].OccurrenceCount != 2 {
		t.Fatalf("expected occurrence_count=2, got %d", got[0].OccurrenceCount)
	}
	if got[0].Sentence != "fruit such as apple." {
		t.Fatalf("expected first sentence kept, got %q", got[0].Sentence)
	}
	if got[0].Origin != string(relation.SourcePattern) {
		t.Fatalf("unexpected origin %q", got[0].Origin)
	}
}

func TestUpsertTriplePredicateLists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID := mustSource(t, db, "https://example.com/d")

	tr := relation.Triple{
		Subject:   relation.TextTerm("John"),
		Predicate: relation.Predicate{Label: relation.LabelShort, Modifiers: []string{"went", "prep"}, Attributes: []string{"Paris"}},
		Object:    relation.TextTerm("to"),
		Source:    relation.SourceDependency,
	}
	if err := UpsertTriple(db, sID, "", "", tr); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := UpsertTriple(db, sID, "", "", typeOf("copper", "metal")); err != nil {
		t.Fatalf("upsert plain: %v", err)
	}

	got, err := QueryTriples(db, TripleFilter{SourceID: sID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(got))
	}
	if fmt.Sprint(got[0].Modifiers) != "[went prep]" || fmt.Sprint(got[0].Attributes) != "[Paris]" {
		t.Fatalf("lists not round-tripped: %+v", got[0])
	}
	if got[0].Sentence != "" {
		t.Fatalf("expected no sentence, got %q", got[0].Sentence)
	}
	if got[1].Modifiers != nil || got[1].Attributes != nil {
		t.Fatalf("expected nil lists, got %+v", got[1])
	}
}

func TestUpsertTripleValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID := mustSource(t, db, "https://example.com/e")

	if err := UpsertTriple(db, 0, "", "", typeOf("a", "b")); err == nil {
		t.Fatalf("expected error for missing source")
	}
	if err := UpsertTriple(db, sID, "", "", typeOf(" ", "b")); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}

func TestQueryTriplesFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	s1 := mustSource(t, db, "https://example.com/f")
	s2 := mustSource(t, db, "https://example.com/g")

	for _, tr := range []relation.Triple{typeOf("apple", "fruit"), typeOf("banana", "fruit"), typeOf("copper", "metal")} {
		if err := UpsertTriple(db, s1, "", "", tr); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	part := relation.Triple{Subject: relation.TextTerm("wheel"), Predicate: relation.Predicate{Label: "partOf"}, Object: relation.TextTerm("car"), Source: relation.SourcePattern}
	if err := UpsertTriple(db, s2, "", "", part); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cases := []struct {
		name   string
		filter TripleFilter
		want   int
	}{
		{"all", TripleFilter{}, 4},
		{"source", TripleFilter{SourceID: s2}, 1},
		{"labels", TripleFilter{Labels: []string{"typeOf", "hypernym"}}, 3},
		{"object nocase", TripleFilter{Object: "FRUIT"}, 2},
		{"subject", TripleFilter{Subject: "copper"}, 1},
		{"origin", TripleFilter{Origin: string(relation.SourceDependency)}, 0},
		{"limit", TripleFilter{Limit: 2}, 2},
	}
	for _, tc := range cases {
		got, err := QueryTriples(db, tc.filter)
		if err != nil {
			t.Fatalf("%s: query: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d triples, got %d", tc.name, tc.want, len(got))
		}
	}
}

func TestSourceProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID := mustSource(t, db, "https://example.com/h")

	idx, err := GetSourceProgress(db, sID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
	if err := UpdateSourceProgress(db, sID, 41); err != nil {
		t.Fatalf("update: %v", err)
	}
	if idx, _ = GetSourceProgress(db, sID); idx != 41 {
		t.Fatalf("expected 41, got %d", idx)
	}
	if err := ResetSourceProgress(db, sID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if idx, _ = GetSourceProgress(db, sID); idx != -1 {
		t.Fatalf("expected -1 after reset, got %d", idx)
	}
	if _, err := GetSourceProgress(db, 999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for unknown source, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID := mustSource(t, db, "https://example.com/i")

	runID, err := StartRun(db, sID, "en", "default")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	r, err := GetRun(db, runID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != RunRunning || r.Language != "en" || r.StartedAt.IsZero() {
		t.Fatalf("unexpected running run: %+v", r)
	}

	if err := UpsertTriple(db, sID, runID, "", typeOf("apple", "fruit")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := FinishRun(db, runID, 10, 2, 1, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	r, _ = GetRun(db, runID)
	if r.Status != RunFinished || r.Sentences != 10 || r.Skipped != 2 || r.Triples != 1 || r.FinishedAt.IsZero() {
		t.Fatalf("unexpected finished run: %+v", r)
	}

	got, _ := QueryTriples(db, TripleFilter{SourceID: sID})
	if len(got) != 1 || got[0].RunID != runID {
		t.Fatalf("expected triple tagged with run %s, got %+v", runID, got)
	}

	failed, _ := StartRun(db, sID, "en", "default")
	if err := FinishRun(db, failed, 0, 0, 0, errors.New("boom")); err != nil {
		t.Fatalf("finish failed run: %v", err)
	}
	if r, _ = GetRun(db, failed); r.Status != RunFailed {
		t.Fatalf("expected failed status, got %s", r.Status)
	}
	if err := FinishRun(db, "missing", 0, 0, 0, nil); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}
