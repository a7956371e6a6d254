package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/shunya/internal/models"
)

const delim = "---"

// frontmatter is the YAML header of an entry file.
type frontmatter struct {
	ID        string   `yaml:"id,omitempty"`
	CreatedAt string   `yaml:"created_at,omitempty"`
	Mood      string   `yaml:"mood"`
	States    []string `yaml:"states,omitempty"`
	Image     string   `yaml:"image,omitempty"`
	Caption   string   `yaml:"caption,omitempty"`
}

// errNoFrontmatter is returned for files without a YAML header.
var errNoFrontmatter = errors.New("missing frontmatter")

// Encode renders e as Markdown with YAML frontmatter. imageRel is the
// archive-relative path of the attached image, or "".
func Encode(e models.Entry, imageRel string) ([]byte, error) {
	fm := frontmatter{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		Mood:      e.Mood.String(),
		Image:     imageRel,
	}
	for _, s := range e.States {
		fm.States = append(fm.States, s.String())
	}
	if e.Image != nil {
		fm.Caption = e.Image.Caption
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("archive: encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(head)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(e.Text)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Decode parses an entry file. Files written by hand may omit id and
// created_at: the id is then derived from rel so repeated imports of the
// same file update one entry, and created_at falls back to modTime.
// The returned image path is "" when no image is referenced; otherwise
// e.Image holds only the caption.
func Decode(data []byte, rel string, modTime time.Time) (models.Entry, string, error) {
	head, body, err := splitFrontmatter(data)
	if err != nil {
		return models.Entry{}, "", err
	}
	var fm frontmatter
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return models.Entry{}, "", fmt.Errorf("frontmatter: %w", err)
	}

	mood, err := models.ParseMood(fm.Mood)
	if err != nil {
		return models.Entry{}, "", err
	}
	states, err := models.ParseStates(fm.States)
	if err != nil {
		return models.Entry{}, "", err
	}

	e := models.Entry{
		ID:     fm.ID,
		Text:   body,
		Mood:   mood,
		States: states,
	}
	if e.ID == "" {
		e.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("shunya:archive:"+rel)).String()
	}
	if fm.CreatedAt == "" {
		e.CreatedAt = modTime.UTC()
	} else {
		at, err := time.Parse(time.RFC3339Nano, fm.CreatedAt)
		if err != nil {
			return models.Entry{}, "", fmt.Errorf("created_at: %w", err)
		}
		e.CreatedAt = at.UTC()
	}
	if fm.Image != "" {
		e.Image = &models.Image{Caption: fm.Caption}
	}
	return e, fm.Image, nil
}

// splitFrontmatter separates the YAML header from the body. One blank line
// after the header and one trailing newline belong to the file layout and
// are not part of the body.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return nil, "", errNoFrontmatter
	}
	rest := data[len(delim)+1:]

	var head, after []byte
	if bytes.HasPrefix(rest, []byte(delim+"\n")) {
		head, after = nil, rest[len(delim)+1:]
	} else {
		idx := bytes.Index(rest, []byte("\n"+delim+"\n"))
		if idx < 0 {
			if !bytes.HasSuffix(rest, []byte("\n"+delim)) {
				return nil, "", errNoFrontmatter
			}
			idx = len(rest) - len(delim) - 1
			head, after = rest[:idx+1], nil
		} else {
			head, after = rest[:idx+1], rest[idx+len(delim)+2:]
		}
	}

	body := string(after)
	if len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	}
	if n := len(body); n > 0 && body[n-1] == '\n' {
		body = body[:n-1]
	}
	return head, body, nil
}

func fileModTime(abs string) time.Time {
	info, err := os.Stat(abs)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}
