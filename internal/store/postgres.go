package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/DSroD/PyCon/internal/model"
)

// PostgresServerStore persists server descriptors in postgres.
type PostgresServerStore struct {
	db *sql.DB
}

func NewPostgresServerStore(db *sql.DB) *PostgresServerStore {
	return &PostgresServerStore{db: db}
}

func (s *PostgresServerStore) All(ctx context.Context) ([]model.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, type, name, host, port, rcon_port, rcon_password, description
		FROM servers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []model.Server
	for rows.Next() {
		var server model.Server
		if err := rows.Scan(
			&server.UID, &server.Type, &server.Name, &server.Host,
			&server.Port, &server.RconPort, &server.RconPassword, &server.Description,
		); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, rows.Err()
}

func (s *PostgresServerStore) Get(ctx context.Context, uid uuid.UUID) (*model.Server, error) {
	var server model.Server
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, type, name, host, port, rcon_port, rcon_password, description
		FROM servers WHERE uid = $1`, uid).Scan(
		&server.UID, &server.Type, &server.Name, &server.Host,
		&server.Port, &server.RconPort, &server.RconPassword, &server.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *PostgresServerStore) Upsert(ctx context.Context, server model.Server) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servers (uid, type, name, host, port, rcon_port, rcon_password, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			rcon_port = EXCLUDED.rcon_port,
			rcon_password = EXCLUDED.rcon_password,
			description = EXCLUDED.description`,
		server.UID, server.Type, server.Name, server.Host,
		server.Port, server.RconPort, server.RconPassword, server.Description,
	)
	return err
}

func (s *PostgresServerStore) Delete(ctx context.Context, uid uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE uid = $1`, uid)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresUserStore persists user accounts in postgres.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) All(ctx context.Context) ([]model.UserView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, capabilities FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []model.UserView
	for rows.Next() {
		var view model.UserView
		var caps []string
		if err := rows.Scan(&view.Username, pq.Array(&caps)); err != nil {
			return nil, err
		}
		view.Capabilities = toCapabilities(caps)
		views = append(views, view)
	}
	return views, rows.Err()
}

func (s *PostgresUserStore) Get(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	var caps []string
	err := s.db.QueryRowContext(ctx, `
		SELECT username, hashed_password, disabled, capabilities
		FROM users WHERE username = $1`, username).Scan(
		&user.Username, &user.HashedPassword, &user.Disabled, pq.Array(&caps),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Capabilities = toCapabilities(caps)
	return &user, nil
}

func (s *PostgresUserStore) Upsert(ctx context.Context, user model.User) error {
	caps := make([]string, len(user.Capabilities))
	for i, c := range user.Capabilities {
		caps[i] = string(c)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, hashed_password, disabled, capabilities)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			hashed_password = EXCLUDED.hashed_password,
			disabled = EXCLUDED.disabled,
			capabilities = EXCLUDED.capabilities`,
		user.Username, user.HashedPassword, user.Disabled, pq.Array(caps),
	)
	return err
}

func (s *PostgresUserStore) Delete(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func toCapabilities(caps []string) []model.UserCapability {
	if len(caps) == 0 {
		return nil
	}
	out := make([]model.UserCapability, len(caps))
	for i, c := range caps {
		out[i] = model.UserCapability(c)
	}
	return out
}
