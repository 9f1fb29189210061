package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/relex/pkg/relation"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetSource returns the id of the source identified by url, title and
// author, inserting it when missing.
func CreateOrGetSource(db DBExecutor, src Source) (int64, error) {
	sourceType := strings.TrimSpace(src.SourceType)
	if sourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(
			`SELECT id FROM sources WHERE IFNULL(url, '') = ? AND IFNULL(title, '') = ? AND IFNULL(author, '') = ?`,
			src.URL, src.Title, src.Author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, language) VALUES (?, ?, ?, ?, ?, ?)`,
			sourceType, src.Title, src.Author, src.Website, src.URL, src.Language,
		)
		if err != nil {
			// another writer inserted the same source; select again
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// ListSources returns all sources, oldest first.
func ListSources(db DBExecutor) ([]Source, error) {
	rows, err := db.Query(`SELECT id, source_type, title, author, website, url, language, added_at, last_processed_sentence FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Source
	for rows.Next() {
		var s Source
		var title, author, website, url, lang sql.NullString
		var added sql.NullTime
		if err := rows.Scan(&s.ID, &s.SourceType, &title, &author, &website, &url, &lang, &added, &s.LastProcessedSentence); err != nil {
			return nil, err
		}
		s.Title, s.Author, s.Website, s.URL, s.Language = title.String, author.String, website.String, url.String, lang.String
		s.AddedAt = added.Time
		out = append(out, s)
	}
	return out, rows.Err()
}

func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpsertTriple stores t for sourceID. A triple already stored for the source
// (same subject, label and object) has its occurrence count incremented; its
// first sentence and run are kept.
func UpsertTriple(db DBExecutor, sourceID int64, runID, sentence string, t relation.Triple) error {
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	subject, object := strings.TrimSpace(t.Subject.Text), strings.TrimSpace(t.Object.Text)
	if subject == "" || object == "" || t.Label() == "" {
		return fmt.Errorf("triple needs subject, label and object: %q", t.TSV())
	}

	sentID, err := getOrCreateSentence(db, sentence)
	if err != nil {
		return fmt.Errorf("get/create sentence: %w", err)
	}
	mods, err := encodeList(t.Predicate.Modifiers)
	if err != nil {
		return err
	}
	attrs, err := encodeList(t.Predicate.Attributes)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT INTO triples (source_id, subject, label, object, origin, modifiers, attributes, first_sentence_id, run_id, occurrence_count, first_seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	ON CONFLICT(source_id, subject, label, object) DO UPDATE SET
	  occurrence_count = triples.occurrence_count + 1`,
		sourceID, subject, t.Label(), object, string(t.Source), mods, attrs,
		nullableInt64(sentID), nullableString(runID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert triple: %w", err)
	}
	return nil
}

// TripleFilter narrows QueryTriples. Zero fields match everything.
type TripleFilter struct {
	SourceID int64
	Labels   []string
	Subject  string
	Object   string
	Origin   string
	Limit    int
}

// QueryTriples returns stored triples ordered by source and insertion.
func QueryTriples(db DBExecutor, f TripleFilter) ([]Triple, error) {
	var where []string
	var args []interface{}
	if f.SourceID > 0 {
		where = append(where, "t.source_id = ?")
		args = append(args, f.SourceID)
	}
	if len(f.Labels) > 0 {
		where = append(where, "t.label IN (?"+strings.Repeat(", ?", len(f.Labels)-1)+")")
		for _, l := range f.Labels {
			args = append(args, l)
		}
	}
	if f.Subject != "" {
		where = append(where, "t.subject = ? COLLATE NOCASE")
		args = append(args, f.Subject)
	}
	if f.Object != "" {
		where = append(where, "t.object = ? COLLATE NOCASE")
		args = append(args, f.Object)
	}
	if f.Origin != "" {
		where = append(where, "t.origin = ?")
		args = append(args, f.Origin)
	}

	q := `SELECT t.id, t.source_id, t.subject, t.label, t.object, t.origin, t.modifiers, t.attributes,
	  s.text, t.run_id, t.occurrence_count, t.first_seen_at
	FROM triples t LEFT JOIN sentences s ON s.id = t.first_sentence_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.source_id, t.id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Triple
	for rows.Next() {
		var t Triple
		var mods, attrs, sentence, runID sql.NullString
		var seen sql.NullTime
		if err := rows.Scan(&t.ID, &t.SourceID, &t.Subject, &t.Label, &t.Object, &t.Origin, &mods, &attrs,
			&sentence, &runID, &t.OccurrenceCount, &seen); err != nil {
			return nil, err
		}
		if t.Modifiers, err = decodeList(mods); err != nil {
			return nil, err
		}
		if t.Attributes, err = decodeList(attrs); err != nil {
			return nil, err
		}
		t.Sentence, t.RunID, t.FirstSeenAt = sentence.String, runID.String, seen.Time
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSourceProgress returns the last processed sentence index for a source.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed sentence index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_sentence = ? WHERE id = ?", index, sourceID)
	return err
}

// ResetSourceProgress makes the next run start from the first sentence.
func ResetSourceProgress(db DBExecutor, sourceID int64) error {
	return UpdateSourceProgress(db, sourceID, -1)
}

// StartRun records a new running extraction and returns its id.
func StartRun(db DBExecutor, sourceID int64, language, rules string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO runs (id, source_id, language, rules, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourceID, language, rules, time.Now().UTC(), RunRunning)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run with its final counters. A non-nil runErr marks it failed.
func FinishRun(db DBExecutor, runID string, sentences, skipped, triples int, runErr error) error {
	status := RunFinished
	if runErr != nil {
		status = RunFailed
	}
	res, err := db.Exec(`UPDATE runs SET finished_at = ?, status = ?, sentences = ?, skipped = ?, triples = ? WHERE id = ?`,
		time.Now().UTC(), status, sentences, skipped, triples, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// GetRun loads a run by id.
func GetRun(db DBExecutor, runID string) (Run, error) {
	var r Run
	var lang, rules sql.NullString
	var finished sql.NullTime
	err := db.QueryRow(`SELECT id, source_id, language, rules, started_at, finished_at, status, sentences, skipped, triples FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.SourceID, &lang, &rules, &r.StartedAt, &finished, &r.Status, &r.Sentences, &r.Skipped, &r.Triples)
	if err != nil {
		return Run{}, err
	}
	r.Language, r.Rules, r.FinishedAt = lang.String, rules.String, finished.Time
	return r, nil
}

func encodeList(items []string) (interface{}, error) {
	if len(items) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
