package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskmcp/internal/domain"
	"github.com/mrz1836/taskmcp/internal/errors"
)

// Snapshot file formats.
const (
	snapshotYAML = "yaml"
	snapshotTOML = "toml"
)

// snapshotFormat picks the format from an explicit flag or the file
// extension, defaulting to YAML.
func snapshotFormat(flag, path string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flag))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			format = snapshotTOML
		default:
			format = snapshotYAML
		}
	}
	switch format {
	case snapshotYAML, "yml":
		return snapshotYAML, nil
	case snapshotTOML:
		return snapshotTOML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format '%s' (yaml|toml): %w", flag, errors.ErrInvalidArgument)
	}
}

func encodeSnapshot(w io.Writer, format string, snap domain.Snapshot) error {
	switch format {
	case snapshotTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return nil
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return enc.Close()
	}
}

func decodeSnapshot(r io.Reader, format string) (domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		err  error
	)
	switch format {
	case snapshotTOML:
		err = toml.NewDecoder(r).Decode(&snap)
	default:
		err = yaml.NewDecoder(r).Decode(&snap)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to parse snapshot: %w: %w", errors.ErrInvalidSnapshot, err)
	}
	return snap, nil
}
