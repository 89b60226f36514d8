// Package sqlite persists mesh topology resources and run history in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meshtopo/internal/cluster"
	"meshtopo/internal/topology"

	_ "modernc.org/sqlite"
)

var (
	_ cluster.MeshTopologies = (*Store)(nil)
	_ cluster.RunLog         = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mesh db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set mesh db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set mesh db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS mesh_topologies (
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	labels_json TEXT NOT NULL,
	links_json TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, name)
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize mesh topology schema: %w", err)
	}
	if err := ensureRunSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateTopology(ctx context.Context, topo cluster.MeshTopology) error {
	links := topo.Links
	if links == nil {
		links = []topology.LinkDescriptor{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("marshal links of %s: %w", topo.Ref(), err)
	}
	labelsJSON, err := json.Marshal(topo.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels of %s: %w", topo.Ref(), err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mesh_topologies (namespace, name, labels_json, links_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, name) DO NOTHING`,
		topo.Namespace,
		topo.Name,
		string(labelsJSON),
		string(linksJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create mesh topology %s: %w", topo.Ref(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create mesh topology %s: %w", topo.Ref(), err)
	}
	if n == 0 {
		return fmt.Errorf("mesh topology %s: %w", topo.Ref(), cluster.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) DeleteTopology(ctx context.Context, ref cluster.Ref) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mesh_topologies WHERE namespace = ? AND name = ?`, ref.Namespace, ref.Name)
	if err != nil {
		return fmt.Errorf("delete mesh topology %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mesh topology %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("mesh topology %s: %w", ref, cluster.ErrNotFound)
	}
	return nil
}

func (s *Store) GetTopology(ctx context.Context, ref cluster.Ref) (cluster.MeshTopology, error) {
	var labelsJSON, linksJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT labels_json, links_json FROM mesh_topologies WHERE namespace = ? AND name = ?`,
		ref.Namespace, ref.Name,
	).Scan(&labelsJSON, &linksJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cluster.MeshTopology{}, fmt.Errorf("mesh topology %s: %w", ref, cluster.ErrNotFound)
		}
		return cluster.MeshTopology{}, fmt.Errorf("query mesh topology %s: %w", ref, err)
	}
	return decodeTopology(ref.Namespace, ref.Name, labelsJSON, linksJSON)
}

func (s *Store) ListTopologies(ctx context.Context, namespace string) ([]cluster.MeshTopology, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, labels_json, links_json FROM mesh_topologies WHERE namespace = ? ORDER BY name`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list mesh topologies: %w", err)
	}
	defer rows.Close()

	out := make([]cluster.MeshTopology, 0)
	for rows.Next() {
		var name, labelsJSON, linksJSON string
		if err := rows.Scan(&name, &labelsJSON, &linksJSON); err != nil {
			return nil, fmt.Errorf("scan mesh topology row: %w", err)
		}
		topo, err := decodeTopology(namespace, name, labelsJSON, linksJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, topo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mesh topology rows: %w", err)
	}
	return out, nil
}

func decodeTopology(namespace, name, labelsJSON, linksJSON string) (cluster.MeshTopology, error) {
	topo := cluster.MeshTopology{Namespace: namespace, Name: name}
	if err := json.Unmarshal([]byte(labelsJSON), &topo.Labels); err != nil {
		return cluster.MeshTopology{}, fmt.Errorf("unmarshal labels of %s/%s: %w", namespace, name, err)
	}
	if err := json.Unmarshal([]byte(linksJSON), &topo.Links); err != nil {
		return cluster.MeshTopology{}, fmt.Errorf("unmarshal links of %s/%s: %w", namespace, name, err)
	}
	return topo, nil
}
