package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cvaas/quest-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Quests ---

const questColumns = `id, creator_id, title, slug, description, category, difficulty, passing_score, skills,
	time_limit_minutes, is_active, total_attempts, success_rate, created_at, updated_at`

// CreateQuest inserts a new quest
func (r *PostgresRepository) CreateQuest(ctx context.Context, q *models.Quest) error {
	query := `
		INSERT INTO quests (` + questColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		q.ID,
		q.CreatorID,
		q.Title,
		q.Slug,
		q.Description,
		string(q.Category),
		string(q.Difficulty),
		q.PassingScore,
		q.Skills,
		q.TimeLimitMinutes,
		q.IsActive,
		q.TotalAttempts,
		q.SuccessRate,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create quest: %w", err)
	}

	return nil
}

// GetQuest retrieves a quest by ID
func (r *PostgresRepository) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `SELECT ` + questColumns + ` FROM quests WHERE id = $1`
	return scanQuest(r.pool.QueryRow(ctx, query, id))
}

// GetQuestBySlug retrieves a creator's quest by slug
func (r *PostgresRepository) GetQuestBySlug(ctx context.Context, creatorID, slug string) (*models.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE creator_id = $1 AND slug = $2`
	return scanQuest(r.pool.QueryRow(ctx, query, creatorID, slug))
}

// UpdateQuest updates the editable fields of a quest; counters are left untouched
func (r *PostgresRepository) UpdateQuest(ctx context.Context, q *models.Quest) error {
	if !validID(q.ID) {
		return ErrNotFound
	}

	query := `
		UPDATE quests
		SET title = $2, slug = $3, description = $4, category = $5, difficulty = $6, passing_score = $7,
		    skills = $8, time_limit_minutes = $9, is_active = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		q.ID,
		q.Title,
		q.Slug,
		q.Description,
		string(q.Category),
		string(q.Difficulty),
		q.PassingScore,
		q.Skills,
		q.TimeLimitMinutes,
		q.IsActive,
		q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to update quest: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateQuestStats persists the aggregate counters of a quest
func (r *PostgresRepository) UpdateQuestStats(ctx context.Context, id string, totalAttempts int, successRate float64) error {
	if !validID(id) {
		return ErrNotFound
	}

	query := `UPDATE quests SET total_attempts = $2, success_rate = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, totalAttempts, successRate)
	if err != nil {
		return fmt.Errorf("failed to update quest stats: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListQuests returns quests matching filters
func (r *PostgresRepository) ListQuests(ctx context.Context, filters models.QuestFilters) ([]*models.Quest, error) {
	qb := newQueryBuilder(`SELECT ` + questColumns + ` FROM quests WHERE 1=1`)

	if filters.Category != "" {
		qb.where("category = %s", string(filters.Category))
	}
	if filters.Difficulty != "" {
		qb.where("difficulty = %s", string(filters.Difficulty))
	}
	if filters.CreatorID != "" {
		qb.where("creator_id = %s", filters.CreatorID)
	}
	if filters.ActiveOnly {
		qb.raw(" AND is_active")
	}

	qb.raw(" ORDER BY created_at DESC, id ASC")
	qb.page(filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, qb.sql(), qb.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var quests []*models.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}

	return quests, nil
}

func scanQuest(row pgx.Row) (*models.Quest, error) {
	var q models.Quest
	var category, difficulty string
	var description sql.NullString

	err := row.Scan(
		&q.ID,
		&q.CreatorID,
		&q.Title,
		&q.Slug,
		&description,
		&category,
		&difficulty,
		&q.PassingScore,
		&q.Skills,
		&q.TimeLimitMinutes,
		&q.IsActive,
		&q.TotalAttempts,
		&q.SuccessRate,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan quest: %w", err)
	}

	q.Description = description.String
	q.Category = models.QuestCategory(category)
	q.Difficulty = models.Difficulty(difficulty)

	return &q, nil
}

// --- Submissions ---

const submissionColumns = `s.id, s.quest_id, s.user_id, s.attempt_number, s.content, s.status, s.score, s.feedback,
	s.time_spent_seconds, s.submitted_at, s.reviewed_at, s.reviewer_id`

// CreateSubmission inserts a new submission. A duplicate (quest, user, attempt)
// triple is reported as ErrConflict.
func (r *PostgresRepository) CreateSubmission(ctx context.Context, s *models.Submission) error {
	contentJSON, err := json.Marshal(s.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	query := `
		INSERT INTO submissions (id, quest_id, user_id, attempt_number, content, status, time_spent_seconds, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.QuestID,
		s.UserID,
		s.AttemptNumber,
		contentJSON,
		string(s.Status),
		s.TimeSpentSeconds,
		s.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID
func (r *PostgresRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.id = $1`
	return scanSubmission(r.pool.QueryRow(ctx, query, id))
}

// GetLatestSubmission returns the highest attempt for a (quest, user) pair
func (r *PostgresRepository) GetLatestSubmission(ctx context.Context, questID, userID string) (*models.Submission, error) {
	if !validID(questID) {
		return nil, ErrNotFound
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM submissions s
		WHERE s.quest_id = $1 AND s.user_id = $2
		ORDER BY s.attempt_number DESC
		LIMIT 1
	`
	return scanSubmission(r.pool.QueryRow(ctx, query, questID, userID))
}

// UpdateSubmissionReview writes the review fields of a submission that is
// still pending. A submission that already carries a verdict yields ErrConflict.
func (r *PostgresRepository) UpdateSubmissionReview(ctx context.Context, s *models.Submission) error {
	if !validID(s.ID) {
		return ErrNotFound
	}

	var feedbackJSON []byte
	if s.Feedback != nil {
		var err error
		feedbackJSON, err = json.Marshal(s.Feedback)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback: %w", err)
		}
	}

	query := `
		UPDATE submissions
		SET status = $2, score = $3, feedback = $4, reviewed_at = $5, reviewer_id = $6
		WHERE id = $1 AND status IN ('submitted', 'under_review')
	`

	result, err := r.pool.Exec(ctx, query,
		s.ID,
		string(s.Status),
		nullInt(s.Score),
		feedbackJSON,
		nullTime(s.ReviewedAt),
		nullString(s.ReviewerID),
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)`, s.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check submission: %w", err)
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}

	return nil
}

// ListSubmissions returns submissions matching filters, newest first
func (r *PostgresRepository) ListSubmissions(ctx context.Context, filters models.SubmissionFilters) ([]*models.Submission, error) {
	qb := newQueryBuilder(`SELECT ` + submissionColumns + ` FROM submissions s JOIN quests q ON q.id = s.quest_id WHERE 1=1`)

	if filters.QuestID != "" {
		if !validID(filters.QuestID) {
			return nil, nil
		}
		qb.where("s.quest_id = %s", filters.QuestID)
	}
	if filters.UserID != "" {
		qb.where("s.user_id = %s", filters.UserID)
	}
	if filters.CreatorID != "" {
		qb.where("q.creator_id = %s", filters.CreatorID)
	}
	if filters.Category != "" {
		qb.where("q.category = %s", string(filters.Category))
	}
	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, st := range filters.Statuses {
			statuses[i] = string(st)
		}
		qb.where("s.status = ANY(%s)", statuses)
	}
	if filters.Since != nil {
		qb.where("COALESCE(s.reviewed_at, s.submitted_at) >= %s", *filters.Since)
	}

	qb.raw(" ORDER BY s.submitted_at DESC, s.id ASC")
	qb.page(filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, qb.sql(), qb.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	var status string
	var score sql.NullInt32
	var reviewedAt sql.NullTime
	var reviewerID sql.NullString
	var contentJSON, feedbackJSON []byte

	err := row.Scan(
		&s.ID,
		&s.QuestID,
		&s.UserID,
		&s.AttemptNumber,
		&contentJSON,
		&status,
		&score,
		&feedbackJSON,
		&s.TimeSpentSeconds,
		&s.SubmittedAt,
		&reviewedAt,
		&reviewerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	s.Status = models.SubmissionStatus(status)
	s.ReviewerID = reviewerID.String

	if score.Valid {
		v := int(score.Int32)
		s.Score = &v
	}
	if reviewedAt.Valid {
		s.ReviewedAt = &reviewedAt.Time
	}

	if err := json.Unmarshal(contentJSON, &s.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}

	if feedbackJSON != nil {
		s.Feedback = &models.StructuredFeedback{}
		if err := json.Unmarshal(feedbackJSON, s.Feedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
		}
	}

	return &s, nil
}

// --- Badges ---

const badgeColumns = `b.id, b.user_id, b.quest_id, b.submission_id, b.name, b.description, b.skill, b.level, b.rarity,
	b.blockchain_data, b.is_verified, b.is_displayed, b.display_order, b.earned_at`

// CreateBadge inserts a new badge
func (r *PostgresRepository) CreateBadge(ctx context.Context, b *models.Badge) error {
	chainJSON, err := json.Marshal(b.BlockchainData)
	if err != nil {
		return fmt.Errorf("failed to marshal blockchain data: %w", err)
	}

	query := `
		INSERT INTO badges (id, user_id, quest_id, submission_id, name, description, skill, level, rarity,
		                    blockchain_data, is_verified, is_displayed, display_order, earned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.pool.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.QuestID,
		nullString(b.SubmissionID),
		b.Name,
		b.Description,
		b.Skill,
		string(b.Level),
		string(b.Rarity),
		chainJSON,
		b.IsVerified,
		b.IsDisplayed,
		b.DisplayOrder,
		b.EarnedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create badge: %w", err)
	}

	return nil
}

// GetBadge retrieves a badge by ID
func (r *PostgresRepository) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `SELECT ` + badgeColumns + ` FROM badges b WHERE b.id = $1`
	return scanBadge(r.pool.QueryRow(ctx, query, id))
}

// UpdateBadgeDisplay updates the owner-controlled presentation fields
func (r *PostgresRepository) UpdateBadgeDisplay(ctx context.Context, id string, displayed bool, order int) error {
	if !validID(id) {
		return ErrNotFound
	}

	query := `UPDATE badges SET is_displayed = $2, display_order = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, displayed, order)
	if err != nil {
		return fmt.Errorf("failed to update badge display: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListBadges returns badges matching filters
func (r *PostgresRepository) ListBadges(ctx context.Context, filters models.BadgeFilters) ([]*models.Badge, error) {
	qb := newQueryBuilder(`SELECT ` + badgeColumns + ` FROM badges b JOIN quests q ON q.id = b.quest_id WHERE 1=1`)

	if filters.UserID != "" {
		qb.where("b.user_id = %s", filters.UserID)
	}
	if filters.Category != "" {
		qb.where("q.category = %s", string(filters.Category))
	}
	if filters.Since != nil {
		qb.where("b.earned_at >= %s", *filters.Since)
	}

	qb.raw(" ORDER BY b.display_order ASC, b.earned_at DESC")

	rows, err := r.pool.Query(ctx, qb.sql(), qb.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}

	return badges, nil
}

func scanBadge(row pgx.Row) (*models.Badge, error) {
	var b models.Badge
	var level, rarity string
	var submissionID sql.NullString
	var chainJSON []byte

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.QuestID,
		&submissionID,
		&b.Name,
		&b.Description,
		&b.Skill,
		&level,
		&rarity,
		&chainJSON,
		&b.IsVerified,
		&b.IsDisplayed,
		&b.DisplayOrder,
		&b.EarnedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan badge: %w", err)
	}

	b.SubmissionID = submissionID.String
	b.Level = models.BadgeLevel(level)
	b.Rarity = models.Rarity(rarity)

	if chainJSON != nil {
		if err := json.Unmarshal(chainJSON, &b.BlockchainData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blockchain data: %w", err)
		}
	}

	return &b, nil
}

// queryBuilder appends numbered placeholders to a base query
type queryBuilder struct {
	sb   strings.Builder
	args []interface{}
}

func newQueryBuilder(base string) *queryBuilder {
	qb := &queryBuilder{}
	qb.sb.WriteString(base)
	return qb
}

// where appends " AND <cond>" where cond contains a single %s placeholder
func (qb *queryBuilder) where(cond string, arg interface{}) {
	qb.args = append(qb.args, arg)
	qb.sb.WriteString(" AND ")
	qb.sb.WriteString(fmt.Sprintf(cond, fmt.Sprintf("$%d", len(qb.args))))
}

func (qb *queryBuilder) raw(s string) {
	qb.sb.WriteString(s)
}

func (qb *queryBuilder) page(limit, offset int) {
	if limit > 0 {
		qb.args = append(qb.args, limit)
		qb.sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(qb.args)))
	}
	if offset > 0 {
		qb.args = append(qb.args, offset)
		qb.sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(qb.args)))
	}
}

func (qb *queryBuilder) sql() string {
	return qb.sb.String()
}

// Helper functions for nullable values

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isInvalidTextRepresentation reports a malformed UUID literal reaching the server
func isInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// validID reports whether id can address a UUID primary key. Anything else
// cannot name an existing row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
