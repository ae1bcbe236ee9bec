// Package identity persists which shared project and database a local
// document is bound to, together with the last acknowledged tick.
//
// The record lives in a per-document node (see Node) under the keys
// "project", "database" and "tick". Absent keys denote unset fields.
package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NodeName is the node that holds the identity inside a document.
const NodeName = "$ idarling"

// Persisted keys.
const (
	KeyProject  = "project"
	KeyDatabase = "database"
	KeyTick     = "tick"
)

// Node is the per-document string hash the identity is stored in.
// Implemented by store.Node and by the host's own document storage.
type Node interface {
	HashVal(ctx context.Context, key string) (string, bool, error)
	HashSet(ctx context.Context, key, value string) error
	HashDel(ctx context.Context, key string) error
}

// Identity binds a local document to a (project, database) pair on the relay.
// Empty strings denote absent fields.
type Identity struct {
	Project  string `json:"project,omitempty"`
	Database string `json:"database,omitempty"`
	Tick     uint64 `json:"tick"`
}

// Bound reports whether both project and database are set.
func (id Identity) Bound() bool {
	return id.Project != "" && id.Database != ""
}

func (id Identity) String() string {
	return fmt.Sprintf("project=%q database=%q tick=%d", id.Project, id.Database, id.Tick)
}

// Validate checks the path-traversal invariant on project and database.
func Validate(id Identity) error {
	if err := checkName(KeyProject, id.Project); err != nil {
		return err
	}
	return checkName(KeyDatabase, id.Database)
}

func checkName(field, value string) error {
	if strings.Contains(value, "..") {
		return &CorruptError{Field: field, Value: value}
	}
	return nil
}

// Load reads the identity from node. Unset fields load as ""/0.
//
// A stored project or database containing ".." fails with a CorruptError; the
// value is reported as stored, never trimmed.
func Load(ctx context.Context, node Node) (Identity, error) {
	var id Identity

	project, _, err := node.HashVal(ctx, KeyProject)
	if err != nil {
		return Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if err := checkName(KeyProject, project); err != nil {
		return Identity{}, err
	}
	id.Project = project

	database, _, err := node.HashVal(ctx, KeyDatabase)
	if err != nil {
		return Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if err := checkName(KeyDatabase, database); err != nil {
		return Identity{}, err
	}
	id.Database = database

	tick, ok, err := node.HashVal(ctx, KeyTick)
	if err != nil {
		return Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if ok && tick != "" {
		n, err := strconv.ParseUint(tick, 10, 64)
		if err != nil {
			return Identity{}, &CorruptError{Field: KeyTick, Value: tick}
		}
		id.Tick = n
	}

	return id, nil
}

// Save writes the non-empty fields of id. Empty fields leave the stored value
// untouched, so Save is safe to call after every mutation.
func Save(ctx context.Context, node Node, id Identity) error {
	if err := Validate(id); err != nil {
		return err
	}
	if id.Project != "" {
		if err := node.HashSet(ctx, KeyProject, id.Project); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
	}
	if id.Database != "" {
		if err := node.HashSet(ctx, KeyDatabase, id.Database); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
	}
	if id.Tick != 0 {
		if err := node.HashSet(ctx, KeyTick, strconv.FormatUint(id.Tick, 10)); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
	}
	return nil
}

// Clear removes every identity key so that a later Load returns the zero
// Identity.
func Clear(ctx context.Context, node Node) error {
	for _, key := range []string{KeyProject, KeyDatabase, KeyTick} {
		if err := node.HashDel(ctx, key); err != nil {
			return fmt.Errorf("clear identity: %w", err)
		}
	}
	return nil
}
