package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, name, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserContacts(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT p2.user_id
		FROM chat_participants p1
		JOIN chat_participants p2 ON p1.chat_id = p2.chat_id
		WHERE p1.user_id = $1
		  AND p2.user_id <> $1
		  AND p1.role IN ('admin', 'member')
		  AND p2.role IN ('admin', 'member')`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		contacts = append(contacts, id)
	}

	return contacts, rows.Err()
}

// Chat Repository Implementation
func (db *PostgresDB) CreateChat(ctx context.Context, chat *models.Chat, memberIDs []string) (*models.Chat, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}

	query := `
		INSERT INTO chats (id, name, is_group, creator_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, name, is_group, creator_id, created_at`

	created := &models.Chat{}
	err = tx.QueryRow(ctx, query, chat.ID, chat.Name, chat.IsGroup, chat.CreatorID).Scan(
		&created.ID, &created.Name, &created.IsGroup, &created.CreatorID, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	participantQuery := `
		INSERT INTO chat_participants (id, chat_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE SET role = EXCLUDED.role, left_at = NULL`

	for _, memberID := range memberIDs {
		role := models.RoleMember
		if memberID == chat.CreatorID {
			role = models.RoleAdmin
		}
		if _, err := tx.Exec(ctx, participantQuery, uuid.NewString(), created.ID, memberID, role); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (db *PostgresDB) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	query := `SELECT id, name, is_group, creator_id, created_at FROM chats WHERE id = $1`

	chat := &models.Chat{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.Name, &chat.IsGroup, &chat.CreatorID, &chat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return chat, nil
}

func (db *PostgresDB) RenameChat(ctx context.Context, chatID, name string) error {
	query := `UPDATE chats SET name = $2 WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, chatID, name)
	return err
}

func (db *PostgresDB) GetParticipants(ctx context.Context, chatID string) ([]*models.ChatParticipant, error) {
	query := `
		SELECT id, chat_id, user_id, role, joined_at, left_at
		FROM chat_participants
		WHERE chat_id = $1
		ORDER BY joined_at`

	rows, err := db.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.ChatParticipant
	for rows.Next() {
		p := &models.ChatParticipant{}
		if err := rows.Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (db *PostgresDB) GetParticipant(ctx context.Context, chatID, userID string) (*models.ChatParticipant, error) {
	query := `
		SELECT id, chat_id, user_id, role, joined_at, left_at
		FROM chat_participants
		WHERE chat_id = $1 AND user_id = $2`

	p := &models.ChatParticipant{}
	err := db.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt, &p.LeftAt,
	)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (db *PostgresDB) AddParticipant(ctx context.Context, chatID, userID string, role models.ParticipantRole) error {
	query := `
		INSERT INTO chat_participants (id, chat_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE SET role = EXCLUDED.role, joined_at = NOW(), left_at = NULL`

	_, err := db.pool.Exec(ctx, query, uuid.NewString(), chatID, userID, role)
	return err
}

func (db *PostgresDB) SetParticipantRole(ctx context.Context, chatID, userID string, role models.ParticipantRole, leftAt *time.Time) error {
	query := `UPDATE chat_participants SET role = $3, left_at = $4 WHERE chat_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, chatID, userID, role, leftAt)
	return err
}

// Message Repository Implementation
func (db *PostgresDB) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, media_url, client_ref, created_at, seen_by, deleted_for)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), '{}', '{}')
		RETURNING id, chat_id, sender_id, content, media_url, client_ref, created_at`

	saved := &models.Message{}
	err := db.pool.QueryRow(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.MediaURL, msg.ClientRef,
	).Scan(
		&saved.ID, &saved.ChatID, &saved.SenderID, &saved.Content, &saved.MediaURL, &saved.ClientRef, &saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return saved, nil
}

func (db *PostgresDB) ListMessages(ctx context.Context, chatID string, before time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, content, media_url, client_ref, created_at, seen_by, deleted_for
		FROM messages
		WHERE chat_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := db.pool.Query(ctx, query, chatID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.MediaURL,
			&msg.ClientRef, &msg.CreatedAt, &msg.SeenBy, &msg.DeletedFor,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PostgresDB) MarkSeen(ctx context.Context, messageID, userID string) error {
	// COALESCE guards rows created before seen_by defaulted to an empty
	// array: x = ANY(NULL) is NULL, which would filter the row and skip
	// the update without an error.
	query := `
		UPDATE messages
		SET seen_by = array_append(COALESCE(seen_by, '{}'), $2)
		WHERE id = $1 AND NOT ($2 = ANY(COALESCE(seen_by, '{}')))`

	_, err := db.pool.Exec(ctx, query, messageID, userID)
	return err
}

// Call Log Repository Implementation
func (db *PostgresDB) RecordCallLog(ctx context.Context, session *models.CallSession) error {
	query := `
		INSERT INTO call_logs (id, caller_id, callee_id, chat_id, call_type, status, started_at, accepted_at, ended_at, ended_by, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			accepted_at = EXCLUDED.accepted_at,
			ended_at = EXCLUDED.ended_at,
			ended_by = EXCLUDED.ended_by,
			duration = EXCLUDED.duration`

	_, err := db.pool.Exec(ctx, query,
		session.ID, session.CallerID, session.CalleeID, session.ChatID,
		session.Type, session.Phase, session.StartedAt,
		session.AcceptedAt, session.EndedAt, session.EndedBy, session.Duration,
	)
	return err
}
