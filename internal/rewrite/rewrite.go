// Package rewrite loads history rewrite rules from YAML and applies them to commits.
package rewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/guseggert/captainhook/filterrepo"
	"gopkg.in/yaml.v3"
)

// Replacement replaces From with To. Names and emails must match From exactly,
// messages are rewritten wherever From occurs. With Regex, From is a regular expression and To may refer to its groups.
type Replacement struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Regex bool   `yaml:"regex"`

	re *regexp.Regexp
}

type Rules struct {
	Emails   []Replacement `yaml:"emails"`
	Names    []Replacement `yaml:"names"`
	Messages []Replacement `yaml:"messages"`
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	rules, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading rules from %s: %w", path, err)
	}
	return rules, nil
}

// Decode reads rules from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Rules, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	rules := &Rules{}
	if err := dec.Decode(rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return rules, nil
}

func Parse(b []byte) (*Rules, error) {
	return Decode(bytes.NewReader(b))
}

func (r *Rules) compile() error {
	fields := []struct {
		name string
		reps []Replacement
		// whole means a regex must match the entire value
		whole bool
	}{
		{name: "emails", reps: r.Emails, whole: true},
		{name: "names", reps: r.Names, whole: true},
		{name: "messages", reps: r.Messages},
	}
	for _, field := range fields {
		for i := range field.reps {
			rep := &field.reps[i]
			if rep.From == "" {
				return fmt.Errorf("%s[%d]: from is required", field.name, i)
			}
			if !rep.Regex {
				continue
			}
			expr := rep.From
			if field.whole {
				expr = "^(?:" + expr + ")$"
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", field.name, i, err)
			}
			rep.re = re
		}
	}
	return nil
}

func (r *Rules) Empty() bool {
	return len(r.Emails) == 0 && len(r.Names) == 0 && len(r.Messages) == 0
}

// exact applies the first replacement that matches all of s.
func exact(reps []Replacement, s string) string {
	for _, rep := range reps {
		if rep.re != nil {
			if rep.re.MatchString(s) {
				return rep.re.ReplaceAllString(s, rep.To)
			}
			continue
		}
		if rep.From == s {
			return rep.To
		}
	}
	return s
}

// all applies every replacement in order.
func all(reps []Replacement, s string) string {
	for _, rep := range reps {
		if rep.re != nil {
			s = rep.re.ReplaceAllString(s, rep.To)
			continue
		}
		s = strings.ReplaceAll(s, rep.From, rep.To)
	}
	return s
}

func (r *Rules) Email(ctx context.Context, email string) (string, error) {
	return exact(r.Emails, email), nil
}

func (r *Rules) Name(ctx context.Context, name string) (string, error) {
	return exact(r.Names, name), nil
}

func (r *Rules) Message(ctx context.Context, msg string) (string, error) {
	return all(r.Messages, msg), nil
}

// Commit applies the rules to a commit's author, committer and message.
func (r *Rules) Commit(ctx context.Context, c filterrepo.Commit) (filterrepo.Commit, error) {
	c.AuthorEmail = exact(r.Emails, c.AuthorEmail)
	c.CommitterEmail = exact(r.Emails, c.CommitterEmail)
	c.AuthorName = exact(r.Names, c.AuthorName)
	c.CommitterName = exact(r.Names, c.CommitterName)
	c.Message = all(r.Messages, c.Message)
	return c, nil
}
