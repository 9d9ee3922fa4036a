package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/autonote-app/autonote/internal/pagination"
	"github.com/autonote-app/autonote/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const noteColumns = `id, title, audio_key, duration_ms, date, transcript, summary,
	key_points, action_items, notes, timeline, timed_keywords, created_at, updated_at`

type NoteRepository struct {
	db dbtx
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{db: pool}
}

func NewNoteRepositoryWithTx(tx pgx.Tx) *NoteRepository {
	return &NoteRepository{db: tx}
}

func (r *NoteRepository) Create(ctx context.Context, n *domain.Note) error {
	keyPoints, actionItems, timeline, keywords, err := marshalNoteJSON(n)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(ctx,
		`INSERT INTO notes (id, title, audio_key, duration_ms, date, transcript, summary,
		                    key_points, action_items, notes, timeline, timed_keywords, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.Title, nullableString(n.AudioKey), n.DurationMS, n.Date, n.Transcript, n.Summary,
		keyPoints, actionItems, n.Notes, timeline, keywords, now, now,
	)
	return err
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`,
		id,
	)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *NoteRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.NotePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+noteColumns+`
			 FROM notes
			 WHERE (date, id) < ($1, $2)
			 ORDER BY date DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+noteColumns+`
			 FROM notes
			 ORDER BY date DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanNoteRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.Date)
	}

	return &service.NotePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateEditable touches only the user-editable columns; nil fields stay as
// they are. Transcript, timeline, audio key, duration and date have no code
// path that writes them after Create.
func (r *NoteRepository) UpdateEditable(ctx context.Context, id string, update *domain.NoteUpdate) error {
	set := ""
	args := []any{}
	add := func(column string, value any) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", column, len(args)+1)
		args = append(args, value)
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Summary != nil {
		add("summary", *update.Summary)
	}
	if update.KeyPoints != nil {
		encoded, err := json.Marshal(*update.KeyPoints)
		if err != nil {
			return err
		}
		add("key_points", encoded)
	}
	if update.ActionItems != nil {
		encoded, err := json.Marshal(*update.ActionItems)
		if err != nil {
			return err
		}
		add("action_items", encoded)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if set == "" {
		return nil
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	cmdTag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE notes SET %s WHERE id = $%d`, set, len(args)),
		args...,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM notes WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE notes SET summary_embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

// SearchByEmbedding returns the closest notes by cosine similarity. Notes
// without an embedding are skipped.
func (r *NoteRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*service.NoteSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+noteColumns+`, 1 - (summary_embedding <=> $1) AS similarity
		 FROM notes
		 WHERE summary_embedding IS NOT NULL
		 ORDER BY summary_embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.NoteSearchResult
	for rows.Next() {
		n, similarity, err := scanNoteWithSimilarity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &service.NoteSearchResult{Note: n, Similarity: similarity})
	}
	return results, rows.Err()
}

// ListMissingEmbedding returns notes that have never been embedded, oldest
// first, for backfill.
func (r *NoteRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]*domain.Note, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE summary_embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNoteRows(rows)
}

func marshalNoteJSON(n *domain.Note) (keyPoints, actionItems, timeline, keywords []byte, err error) {
	if keyPoints, err = json.Marshal(emptyIfNilStrings(n.KeyPoints)); err != nil {
		return
	}
	if actionItems, err = json.Marshal(emptyIfNilStrings(n.ActionItems)); err != nil {
		return
	}
	if timeline, err = json.Marshal(emptyIfNilWords(n.Timeline)); err != nil {
		return
	}
	keywords, err = json.Marshal(emptyIfNilKeywords(n.TimedKeywords))
	return
}

func emptyIfNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilWords(w []domain.WordTimestamp) []domain.WordTimestamp {
	if w == nil {
		return []domain.WordTimestamp{}
	}
	return w
}

func emptyIfNilKeywords(k []domain.TimedKeyword) []domain.TimedKeyword {
	if k == nil {
		return []domain.TimedKeyword{}
	}
	return k
}

func scanNote(row pgx.Row) (*domain.Note, error) {
	var n domain.Note
	var audioKey *string
	var keyPoints, actionItems, timeline, keywords []byte
	var createdAt, updatedAt time.Time
	err := row.Scan(&n.ID, &n.Title, &audioKey, &n.DurationMS, &n.Date, &n.Transcript, &n.Summary,
		&keyPoints, &actionItems, &n.Notes, &timeline, &keywords, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNoteJSON(&n, audioKey, keyPoints, actionItems, timeline, keywords); err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNoteRows(rows pgx.Rows) ([]*domain.Note, error) {
	var results []*domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func scanNoteWithSimilarity(rows pgx.Rows) (*domain.Note, float64, error) {
	var n domain.Note
	var audioKey *string
	var keyPoints, actionItems, timeline, keywords []byte
	var createdAt, updatedAt time.Time
	var similarity float64
	err := rows.Scan(&n.ID, &n.Title, &audioKey, &n.DurationMS, &n.Date, &n.Transcript, &n.Summary,
		&keyPoints, &actionItems, &n.Notes, &timeline, &keywords, &createdAt, &updatedAt, &similarity)
	if err != nil {
		return nil, 0, err
	}
	if err := unmarshalNoteJSON(&n, audioKey, keyPoints, actionItems, timeline, keywords); err != nil {
		return nil, 0, err
	}
	return &n, similarity, nil
}

func unmarshalNoteJSON(n *domain.Note, audioKey *string, keyPoints, actionItems, timeline, keywords []byte) error {
	if audioKey != nil {
		n.AudioKey = *audioKey
	}
	if err := json.Unmarshal(keyPoints, &n.KeyPoints); err != nil {
		return fmt.Errorf("note %s: bad key_points: %w", n.ID, err)
	}
	if err := json.Unmarshal(actionItems, &n.ActionItems); err != nil {
		return fmt.Errorf("note %s: bad action_items: %w", n.ID, err)
	}
	if err := json.Unmarshal(timeline, &n.Timeline); err != nil {
		return fmt.Errorf("note %s: bad timeline: %w", n.ID, err)
	}
	if err := json.Unmarshal(keywords, &n.TimedKeywords); err != nil {
		return fmt.Errorf("note %s: bad timed_keywords: %w", n.ID, err)
	}
	return nil
}
