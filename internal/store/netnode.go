package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Node is a named string hash inside the sidecar. It mirrors the host's
// netnode hash API so the identity layer can run against either.
type Node struct {
	store *Store
	name  string
}

// Node returns a handle on the named node. Nodes are created on first write.
func (s *Store) Node(name string) *Node {
	return &Node{store: s, name: name}
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// HashVal returns the value stored under key. The boolean is false when the
// key is unset.
func (n *Node) HashVal(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := n.store.db.QueryRowContext(ctx,
		`SELECT value FROM netnodes WHERE node = ? AND key = ?`,
		n.name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hashval %s[%s]: %w", n.name, key, err)
	}
	return value, true, nil
}

// HashSet stores value under key, replacing any previous value.
func (n *Node) HashSet(ctx context.Context, key, value string) error {
	_, err := n.store.db.ExecContext(ctx, `
		INSERT INTO netnodes (node, key, value) VALUES (?, ?, ?)
		ON CONFLICT(node, key) DO UPDATE SET value = excluded.value
	`, n.name, key, value)
	if err != nil {
		return fmt.Errorf("hashset %s[%s]: %w", n.name, key, err)
	}
	return nil
}

// HashDel removes key. Deleting an unset key is not an error.
func (n *Node) HashDel(ctx context.Context, key string) error {
	_, err := n.store.db.ExecContext(ctx,
		`DELETE FROM netnodes WHERE node = ? AND key = ?`,
		n.name, key,
	)
	if err != nil {
		return fmt.Errorf("hashdel %s[%s]: %w", n.name, key, err)
	}
	return nil
}

// Keys returns the keys set on the node in ascending order.
func (n *Node) Keys(ctx context.Context) ([]string, error) {
	rows, err := n.store.db.QueryContext(ctx,
		`SELECT key FROM netnodes WHERE node = ? ORDER BY key ASC`,
		n.name,
	)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", n.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("keys %s: %w", n.name, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
