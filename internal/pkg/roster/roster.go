// Package roster reads and writes the YAML member roster used to seed the
// directory store.
package roster

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout.
type File struct {
	Members []Entry `yaml:"members"`
}

type Entry struct {
	Handle    string     `yaml:"handle"`
	Name      string     `yaml:"name"`
	Latitude  Coordinate `yaml:"latitude"`
	Longitude Coordinate `yaml:"longitude"`
	Address   string     `yaml:"address,omitempty"`
	Role      string     `yaml:"role,omitempty"`
	ChatID    *int64     `yaml:"chat_id,omitempty"`
}

// Coordinate decodes leniently: anything that is not a number becomes 0.
type Coordinate float64

func (c *Coordinate) UnmarshalYAML(node *yaml.Node) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
	if err != nil {
		slog.Warn("Roster coordinate is not a number, using 0", "value", node.Value, "line", node.Line)
		*c = 0
		return nil
	}
	*c = Coordinate(v)
	return nil
}

// Load reads the roster at path. A missing file yields an empty roster.
func Load(path string) ([]member.Member, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("Roster file not found, starting empty", "path", path)
		return []member.Member{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

func Decode(r io.Reader) ([]member.Member, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return []member.Member{}, nil
		}
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	members := make([]member.Member, 0, len(file.Members))
	seen := make(map[string]bool)
	for _, e := range file.Members {
		handle := member.NormalizeHandle(e.Handle)
		if handle == "" {
			slog.Warn("Roster entry without handle skipped", "name", e.Name)
			continue
		}
		if !validator.IsValidHandle(handle) {
			slog.Warn("Roster entry with invalid handle skipped", "handle", e.Handle, "name", e.Name)
			continue
		}
		if seen[handle] {
			slog.Warn("Duplicate roster entry skipped", "handle", handle)
			continue
		}
		seen[handle] = true

		members = append(members, member.Member{
			Handle:    handle,
			Name:      e.Name,
			Latitude:  float64(e.Latitude),
			Longitude: float64(e.Longitude),
			Address:   e.Address,
			Role:      member.ParseRole(e.Role),
			ChatID:    e.ChatID,
		})
	}
	return members, nil
}

// Encode writes members in roster layout.
func Encode(w io.Writer, members []member.Member) error {
	file := File{Members: make([]Entry, 0, len(members))}
	for _, m := range members {
		file.Members = append(file.Members, Entry{
			Handle:    m.Handle,
			Name:      m.Name,
			Latitude:  Coordinate(m.Latitude),
			Longitude: Coordinate(m.Longitude),
			Address:   m.Address,
			Role:      string(m.Role),
			ChatID:    m.ChatID,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	return enc.Close()
}
