// SPDX-License-Identifier: GPL-3.0-or-later
package emlfolder

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/sirupsen/logrus"
)

const Extension = ".eml"

// Folder hands out the .eml files of a directory as candidates, ordered by file name.
type Folder struct {
	dir   string
	limit int

	l *logrus.Logger
}

// NewFolder creates a source for dir. With a positive limit only the last limit files are used.
func NewFolder(dir string, limit int) *Folder {
	return &Folder{
		dir:   dir,
		limit: limit,
		l:     log.Logger(log.LOG_FOLDER),
	}
}

func (f *Folder) Candidates(ctx context.Context) ([]*domain.Candidate, error) {
	entries, err := ioutil.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list folder %s: %w", f.dir, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if f.limit > 0 && len(names) > f.limit {
		names = names[len(names)-f.limit:]
	}

	candidates := make([]*domain.Candidate, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rawMail, err := ioutil.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			f.l.WithFields(logrus.Fields{"file": name, "error": err}).Warn("Could not read mail, skipping")
			continue
		}

		candidates = append(candidates, &domain.Candidate{
			Source:  name,
			RawMail: rawMail,
		})
	}

	f.l.WithFields(logrus.Fields{"folder": f.dir, "candidates": len(candidates)}).Debug("Listed candidates")

	return candidates, nil
}
