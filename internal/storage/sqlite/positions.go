// Package sqlite keeps the last known node positions per graph so a later
// run can start warm instead of from the initial placement.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

type Positions struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Positions, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	p := &Positions{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return p, nil
}

func (p *Positions) migrate() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS positions (
		graph TEXT NOT NULL,
		node_id TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		vx REAL NOT NULL DEFAULT 0,
		vy REAL NOT NULL DEFAULT 0,
		tick INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (graph, node_id)
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

func (p *Positions) Close() error {
	return p.db.Close()
}

// Save replaces the stored positions of graph with snap.
func (p *Positions) Save(ctx context.Context, graph string, snap dynamo.Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE graph = ?`, graph); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (graph, node_id, x, y, vx, vy, tick)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range snap.Nodes {
		if _, err := stmt.ExecContext(ctx, graph, n.ID, n.X, n.Y, n.VX, n.VY, snap.TickCount); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored positions of graph keyed by node id. An unknown
// graph yields an empty map.
func (p *Positions) Load(ctx context.Context, graph string) (map[string][2]float64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT node_id, x, y FROM positions WHERE graph = ?
	`, graph)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]float64)
	for rows.Next() {
		var (
			id   string
			x, y float64
		)
		if err := rows.Scan(&id, &x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		out[id] = [2]float64{x, y}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return out, nil
}

// Graphs lists the graph keys with stored positions.
func (p *Positions) Graphs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT graph FROM positions ORDER BY graph`)
	if err != nil {
		return nil, fmt.Errorf("failed to query graphs: %w", err)
	}
	defer rows.Close()

	var graphs []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

func (p *Positions) Forget(ctx context.Context, graph string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM positions WHERE graph = ?`, graph)
	return err
}
