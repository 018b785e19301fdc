package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/tree"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`) //nolint:gochecknoglobals // immutable replacer

// Search returns tasks whose title or comments contain query, ignoring
// ASCII case, ordered by id.
func (s *Store) Search(ctx context.Context, query string) ([]domain.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query: %w", tmerrors.ErrEmptyValue)
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"

	var out []domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = queryTasks(ctx, tx, `SELECT `+taskColumns+` FROM tasks
			WHERE title LIKE ? ESCAPE '\' OR comments LIKE ? ESCAPE '\'
			ORDER BY id`, pattern, pattern)
		return err
	})
	return out, err
}

// Dangling returns tasks whose parent id references no existing task.
// Normal mutations never produce them; imported or hand-edited datasets can.
func (s *Store) Dangling(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Dangling(tasks), nil
}
