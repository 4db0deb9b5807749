package fs

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/locus/pkg/core"
)

// ErrUnclosedFrontmatter is returned for a note whose frontmatter never ends.
var ErrUnclosedFrontmatter = errors.New("frontmatter started but no closing delimiter found")

// frontmatter is the YAML header of a note file.
type frontmatter struct {
	Title     string         `yaml:"title,omitempty"`
	Tags      []string       `yaml:"tags,omitempty"`
	Location  *frontLocation `yaml:"location,omitempty"`
	CreatedAt time.Time      `yaml:"created_at,omitempty"`
	UpdatedAt time.Time      `yaml:"updated_at,omitempty"`
}

type frontLocation struct {
	Name      string   `yaml:"name,omitempty"`
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
	Address   string   `yaml:"address,omitempty"`
}

// parseNote decodes a markdown file with optional YAML frontmatter. Notes without
// a title take the last element of their ID.
func parseNote(id string, data []byte) (core.Note, error) {
	n := core.Note{ID: id}

	header, body, err := splitFrontmatter(data)
	if err != nil {
		return core.Note{}, err
	}

	var fm frontmatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return core.Note{}, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	n.Title = strings.TrimSpace(fm.Title)
	if n.Title == "" {
		n.Title = path.Base(id)
	}
	n.Content = string(body)
	n.Tags = fm.Tags
	n.CreatedAt = fm.CreatedAt
	n.UpdatedAt = fm.UpdatedAt

	if fm.Location != nil {
		loc, err := core.NewLocation(fm.Location.Name, fm.Location.Latitude, fm.Location.Longitude, fm.Location.Address)
		if err != nil {
			return core.Note{}, err
		}
		n.Location = loc
	}
	return n, nil
}

// serializeNote encodes a note as frontmatter followed by its content.
func serializeNote(n core.Note) ([]byte, error) {
	fm := frontmatter{
		Title:     n.Title,
		Tags:      n.Tags,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
	if n.Location != nil {
		lat, lon := n.Location.Latitude, n.Location.Longitude
		fm.Location = &frontLocation{
			Name:      n.Location.Name,
			Latitude:  &lat,
			Longitude: &lon,
			Address:   n.Location.Address,
		}
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body.
// The closing delimiter must sit on a line of its own.
func splitFrontmatter(data []byte) (header, body []byte, err error) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		return nil, data, nil
	}

	for offset := 0; offset <= len(rest); {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}
		if string(bytes.TrimRight(line, "\r")) == "---" {
			header = rest[:offset]
			if end < 0 {
				return header, nil, nil
			}
			return header, rest[offset+end+1:], nil
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, nil, ErrUnclosedFrontmatter
}
