package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createRe    = regexp.MustCompile(`(?is)CREATE TABLE (?:IF NOT EXISTS )?(\w+) \((.*?)\n\);`)
	updatedAtRe = regexp.MustCompile(`(?m)^\s*updated_at\s+timestamptz`)
)

// ValidateDir runs ValidateFS against dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks every migration in dir. Each file needs a unique
// YYYYMMDDHHMMSS version, both goose sections and fenced $$ bodies. Across
// the set, a table that declares updated_at must also get its
// trg_<table>_updated_at trigger so the column always carries server time.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	stamped := map[string]string{}
	var all strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		body := string(raw)
		if err := checkSections(name, body); err != nil {
			return err
		}
		for _, t := range createRe.FindAllStringSubmatch(upSection(body), -1) {
			if updatedAtRe.MatchString(t[2]) {
				stamped[t[1]] = name
			}
		}
		all.WriteString(body)
	}

	var missing []string
	for table, file := range stamped {
		if !strings.Contains(all.String(), "CREATE TRIGGER trg_"+table+"_updated_at") {
			missing = append(missing, fmt.Sprintf("%s (%s)", table, file))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("updated_at without set_updated_at trigger: %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkSections(name, body string) error {
	if !strings.Contains(body, "-- +goose Up") {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !strings.Contains(body, "-- +goose Down") {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	if strings.Contains(body, "$$") && begins == 0 {
		return fmt.Errorf("migration %q has a $$ body outside StatementBegin/StatementEnd", name)
	}
	if begins != strings.Count(body, "-- +goose StatementEnd") {
		return fmt.Errorf("migration %q has unbalanced StatementBegin/StatementEnd", name)
	}
	return nil
}

func upSection(body string) string {
	up, _, _ := strings.Cut(body, "-- +goose Down")
	return up
}
