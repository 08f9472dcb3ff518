package filterrepo

import (
	"encoding/json"
	"fmt"
)

// PythonCommit is a commit as the callback script sends it, with git's own field names and date strings.
type PythonCommit struct {
	AuthorDate     string `json:"author_date"`
	AuthorEmail    string `json:"author_email"`
	AuthorName     string `json:"author_name"`
	Branch         string `json:"branch"`
	CommitterDate  string `json:"committer_date"`
	CommitterEmail string `json:"committer_email"`
	CommitterName  string `json:"committer_name"`
	Dumped         int    `json:"dumped"`
	ID             int    `json:"id"`
	Message        string `json:"message"`
	OldID          int    `json:"old_id"`
	OriginalID     string `json:"original_id"`
	Type           string `json:"type"`
}

// Commit is a commit with parsed dates, as handed to commit callbacks.
type Commit struct {
	AuthorDate     Date
	AuthorEmail    string
	AuthorName     string
	Branch         string
	CommitterDate  Date
	CommitterEmail string
	CommitterName  string
	Dumped         int
	ID             int
	Message        string
	OldID          int
	OriginalID     string
	Type           string
}

func (p PythonCommit) Commit() (Commit, error) {
	authorDate, err := ParseDate(p.AuthorDate)
	if err != nil {
		return Commit{}, fmt.Errorf("author date: %w", err)
	}
	committerDate, err := ParseDate(p.CommitterDate)
	if err != nil {
		return Commit{}, fmt.Errorf("committer date: %w", err)
	}
	return Commit{
		AuthorDate:     authorDate,
		AuthorEmail:    p.AuthorEmail,
		AuthorName:     p.AuthorName,
		Branch:         p.Branch,
		CommitterDate:  committerDate,
		CommitterEmail: p.CommitterEmail,
		CommitterName:  p.CommitterName,
		Dumped:         p.Dumped,
		ID:             p.ID,
		Message:        p.Message,
		OldID:          p.OldID,
		OriginalID:     p.OriginalID,
		Type:           p.Type,
	}, nil
}

func (c Commit) PythonCommit() PythonCommit {
	return PythonCommit{
		AuthorDate:     c.AuthorDate.String(),
		AuthorEmail:    c.AuthorEmail,
		AuthorName:     c.AuthorName,
		Branch:         c.Branch,
		CommitterDate:  c.CommitterDate.String(),
		CommitterEmail: c.CommitterEmail,
		CommitterName:  c.CommitterName,
		Dumped:         c.Dumped,
		ID:             c.ID,
		Message:        c.Message,
		OldID:          c.OldID,
		OriginalID:     c.OriginalID,
		Type:           c.Type,
	}
}

// Blob is a file's contents. Data travels base64-encoded.
type Blob struct {
	ID         int    `json:"id"`
	OriginalID string `json:"original_id"`
	Data       []byte `json:"data"`
}

type Tag struct {
	Ref         string          `json:"ref"`
	FromRef     json.RawMessage `json:"from_ref"`
	OriginalID  string          `json:"original_id"`
	TaggerName  string          `json:"tagger_name"`
	TaggerEmail string          `json:"tagger_email"`
	TaggerDate  string          `json:"tagger_date"`
	Message     string          `json:"message"`
}

type Reset struct {
	Ref     string          `json:"ref"`
	FromRef json.RawMessage `json:"from_ref"`
}
