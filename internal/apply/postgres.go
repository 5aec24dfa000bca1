package apply

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
)

// PostgresExecer executes statements on a single pgx connection.
type PostgresExecer struct {
	conn *pgx.Conn
}

// Connect opens a connection to the database at url.
func Connect(ctx context.Context, url string) (*PostgresExecer, error) {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	// Dump scripts hold several statements per Exec, which needs the simple protocol.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &PostgresExecer{conn: conn}, nil
}

// Exec implements Execer.
func (p *PostgresExecer) Exec(ctx context.Context, sql string) error {
	_, err := p.conn.Exec(ctx, sql)
	return err
}

// Target describes the connected database as "host:port/database" without credentials.
func (p *PostgresExecer) Target() string {
	cfg := p.conn.Config()
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}

// Close closes the connection.
func (p *PostgresExecer) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// PrintExecer writes statements to w instead of executing them.
type PrintExecer struct {
	W io.Writer
}

// Exec implements Execer.
func (p PrintExecer) Exec(_ context.Context, sql string) error {
	_, err := fmt.Fprintf(p.W, "%s\n\n", sql)
	return err
}
