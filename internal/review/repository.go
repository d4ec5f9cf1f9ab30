package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sendrec/framereview/internal/database"
)

// PgRepository is the Postgres backing for media items, notes, annotations
// and attachments.
type PgRepository struct {
	db         database.DBTX
	defaultFPS float64
}

func NewPgRepository(db database.DBTX, defaultFPS float64) *PgRepository {
	return &PgRepository{db: db, defaultFPS: defaultFPS}
}

func (r *PgRepository) GetMediaItem(ctx context.Context, mediaItemID string) (MediaItem, error) {
	var id string
	var code, filePath, mp4, webm, movie, movieURL *string
	var frameRate *float64
	err := r.db.QueryRow(ctx,
		`SELECT id, code, frame_rate, file_path, uploaded_movie_mp4, uploaded_movie_webm, uploaded_movie, movie_url
		 FROM media_items WHERE id = $1`,
		mediaItemID,
	).Scan(&id, &code, &frameRate, &filePath, &mp4, &webm, &movie, &movieURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return MediaItem{}, ErrMediaNotFound
	}
	if err != nil {
		return MediaItem{}, fmt.Errorf("get media item: %w", err)
	}
	label := ""
	if code != nil {
		label = *code
	}
	return newMediaItem(id, label, frameRate, r.defaultFPS, filePath, mp4, webm, movie, movieURL), nil
}

func (r *PgRepository) CreateComment(ctx context.Context, mediaItemID, authorID, content string) (Comment, error) {
	c := Comment{MediaItemID: mediaItemID, Content: content, AuthorID: authorID}
	err := r.db.QueryRow(ctx,
		`INSERT INTO notes (media_item_id, content, author_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		mediaItemID, content, nullableID(authorID),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert note: %w", err)
	}
	return c, nil
}

func (r *PgRepository) CreateAnnotation(ctx context.Context, rec AnnotationRecord) (string, error) {
	if rec.FrameNumber < 1 {
		return "", fmt.Errorf("insert annotation: frame number %d out of range", rec.FrameNumber)
	}
	data, err := json.Marshal(rec.Shape)
	if err != nil {
		return "", fmt.Errorf("encode annotation shape: %w", err)
	}

	var id string
	err = r.db.QueryRow(ctx,
		`INSERT INTO annotations (media_item_id, note_id, author_id, frame_number, timecode, annotation_data, annotation_text, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		 RETURNING id`,
		rec.MediaItemID, rec.CommentID, nullableID(rec.AuthorID), rec.FrameNumber, rec.Timecode, string(data), rec.AnnotationText,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert annotation: %w", err)
	}
	return id, nil
}

// ListFrameAnnotations returns the active shapes on a frame, oldest first.
// Rows whose payload does not decode to a valid shape are skipped.
func (r *PgRepository) ListFrameAnnotations(ctx context.Context, mediaItemID string, frame int) ([]Shape, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, annotation_data FROM annotations
		 WHERE media_item_id = $1 AND frame_number = $2 AND status = 'active'
		 ORDER BY created_at ASC`,
		mediaItemID, frame,
	)
	if err != nil {
		return nil, fmt.Errorf("query frame annotations: %w", err)
	}
	defer rows.Close()

	shapes := []Shape{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan frame annotation: %w", err)
		}
		var s Shape
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if err := s.Validate(); err != nil {
			continue
		}
		shapes = append(shapes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frame annotations: %w", err)
	}
	return shapes, nil
}

func (r *PgRepository) ListComments(ctx context.Context, mediaItemID string, limit int) ([]Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, media_item_id, content, author_id, created_at FROM notes
		 WHERE media_item_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		mediaItemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var authorID *string
		if err := rows.Scan(&c.ID, &c.MediaItemID, &c.Content, &authorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if authorID != nil {
			c.AuthorID = *authorID
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return comments, nil
}

// ListAnnotationAnchors returns the earliest annotation of each comment.
func (r *PgRepository) ListAnnotationAnchors(ctx context.Context, mediaItemID string, commentIDs []string) ([]AnnotationAnchor, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (note_id) note_id, frame_number, timecode FROM annotations
		 WHERE media_item_id = $1 AND note_id = ANY($2)
		 ORDER BY note_id, created_at ASC`,
		mediaItemID, commentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query annotation anchors: %w", err)
	}
	defer rows.Close()

	var anchors []AnnotationAnchor
	for rows.Next() {
		var a AnnotationAnchor
		if err := rows.Scan(&a.CommentID, &a.FrameNumber, &a.Timecode); err != nil {
			return nil, fmt.Errorf("scan annotation anchor: %w", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation anchors: %w", err)
	}
	return anchors, nil
}

func (r *PgRepository) ListAuthors(ctx context.Context, authorIDs []string) ([]Author, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, display_name, full_name FROM profiles WHERE id = ANY($1)`,
		authorIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.FullName); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return authors, nil
}

func (r *PgRepository) ListAttachments(ctx context.Context, commentIDs []string) ([]CommentAttachment, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, note_id, storage_path, file_name, file_type, file_size FROM attachments
		 WHERE note_id = ANY($1)
		 ORDER BY created_at ASC`,
		commentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []CommentAttachment
	for rows.Next() {
		var a CommentAttachment
		if err := rows.Scan(&a.ID, &a.CommentID, &a.StoragePath, &a.FileName, &a.FileType, &a.FileSize); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}

func (r *PgRepository) CreateAttachment(ctx context.Context, att CommentAttachment, createdBy string) (CommentAttachment, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO attachments (note_id, storage_path, file_name, file_type, file_size, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		att.CommentID, att.StoragePath, att.FileName, att.FileType, att.FileSize, nullableID(createdBy),
	).Scan(&att.ID)
	if err != nil {
		return CommentAttachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return att, nil
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
