// Package loader walks a directory of markdown decision records and parses
// each one into a decision.Decision, tolerating per-file failures.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// Warning names a single file that failed to parse and the reason why.
// Warnings are collected, never returned as an error: a malformed decision
// is a local, recoverable condition.
type Warning struct {
	Path   string
	Reason string
}

// frontmatter is the raw YAML shape of a decision's header block, ahead of
// normalization into decision.Decision.
type frontmatter struct {
	ID         uint32          `yaml:"id"`
	UUID       string          `yaml:"uuid"`
	Title      string          `yaml:"title"`
	Status     string          `yaml:"status"`
	Date       string          `yaml:"date"`
	Deciders   []string        `yaml:"deciders"`
	Tags       []string        `yaml:"tags"`
	GitCommit  string          `yaml:"git_commit"`
	Supersedes decision.IDList `yaml:"supersedes"`
	Amends     decision.IDList `yaml:"amends"`
	DependsOn  decision.IDList `yaml:"depends_on"`
	RelatedTo  decision.IDList `yaml:"related_to"`
}

// Load walks dir non-recursively, parsing every *.md file into a Decision.
// Decisions are returned sorted by file name for deterministic downstream
// diffing. Per-file parse failures are collected as warnings, not errors;
// only a missing or unreadable directory is fatal.
func Load(dir string) ([]decision.Decision, []Warning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, helixerr.Wrap(err, helixerr.CodeLoaderDirectoryMissing,
			"decision directory is not readable", helixerr.FieldDirectory(dir))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var decisions []decision.Decision
	var warnings []Warning

	for _, name := range names {
		path := filepath.Join(dir, name)
		d, err := loadFile(path)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Reason: err.Error()})
			continue
		}
		decisions = append(decisions, *d)
	}

	return decisions, warnings, nil
}

func loadFile(path string) (*decision.Decision, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeLoaderReadFailure, "cannot read file")
	}

	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	var parsed frontmatter
	if err := yaml.Unmarshal(fm, &parsed); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeLoaderReadFailure, "malformed frontmatter")
	}

	if parsed.ID == 0 {
		return nil, helixerr.New(helixerr.CodeLoaderReadFailure, "id is required and must be a positive integer")
	}
	if parsed.Title == "" {
		return nil, helixerr.New(helixerr.CodeLoaderReadFailure, "title is required")
	}

	status, err := decision.ParseStatus(parsed.Status)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeLoaderReadFailure, "unknown status")
	}

	date, err := time.Parse("2006-01-02", parsed.Date)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeLoaderReadFailure, "date must be ISO-8601 (YYYY-MM-DD)")
	}

	sum := sha256.Sum256(raw)

	d := &decision.Decision{
		ID:          parsed.ID,
		UUID:        parsed.UUID,
		Title:       parsed.Title,
		Status:      status,
		Date:        date,
		Deciders:    defaultSlice(parsed.Deciders),
		Tags:        defaultSlice(parsed.Tags),
		FilePath:    path,
		ContentHash: hex.EncodeToString(sum[:]),
		GitCommit:   parsed.GitCommit,
		Body:        body,
		Relations: map[decision.RelationKind][]uint32{
			decision.KindSupersedes: []uint32(parsed.Supersedes),
			decision.KindAmends:     []uint32(parsed.Amends),
			decision.KindDependsOn:  []uint32(parsed.DependsOn),
			decision.KindRelatedTo:  []uint32(parsed.RelatedTo),
		},
	}

	return d, nil
}

// splitFrontmatter separates the leading "---"-delimited YAML block from
// the markdown body that follows it.
func splitFrontmatter(raw []byte) (fm []byte, body string, err error) {
	text := string(raw)
	lines := strings.Split(text, "\n")

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return nil, "", helixerr.New(helixerr.CodeLoaderReadFailure, "file does not begin with a frontmatter delimiter")
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			fmBlock := strings.Join(lines[1:i], "\n")
			bodyBlock := strings.Join(lines[i+1:], "\n")
			return []byte(fmBlock), strings.TrimLeft(bodyBlock, "\n"), nil
		}
	}

	return nil, "", helixerr.New(helixerr.CodeLoaderReadFailure, "frontmatter block has no closing delimiter")
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
