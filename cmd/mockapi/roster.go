package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

// rosterEntry is one student or staff member to import.
type rosterEntry struct {
	Username string `yaml:"username"`
	TrueName string `yaml:"trueName"`
	Dept     string `yaml:"dept"`
}

type rosterFile struct {
	Users []rosterEntry `yaml:"users"`
}

// csv header names, English or the school export's Chinese columns
var (
	usernameHeaders = []string{"username", "学号/工号", "学号", "工号"}
	trueNameHeaders = []string{"truename", "true_name", "姓名"}
	deptHeaders     = []string{"dept", "班级"}
)

func readRoster(path string) ([]rosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLRoster(f)
	case ".csv":
		return parseCSVRoster(f)
	default:
		return nil, fmt.Errorf("%w: unsupported roster format %q", errUsage, filepath.Ext(path))
	}
}

// parseYAMLRoster accepts either a top-level list or a {users: [...]} map.
func parseYAMLRoster(r io.Reader) ([]rosterEntry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var list []rosterEntry
	if err := yaml.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var doc rosterFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("roster: parse yaml: %w", err)
	}
	return doc.Users, nil
}

func parseCSVRoster(r io.Reader) ([]rosterEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("roster: read csv header: %w", err)
	}
	userCol, nameCol, deptCol := -1, -1, -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case contains(usernameHeaders, h):
			userCol = i
		case contains(trueNameHeaders, h):
			nameCol = i
		case contains(deptHeaders, h):
			deptCol = i
		}
	}
	if userCol < 0 {
		return nil, errors.New("roster: csv has no username column")
	}

	var out []rosterEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("roster: read csv: %w", err)
		}
		out = append(out, rosterEntry{
			Username: field(rec, userCol),
			TrueName: field(rec, nameCol),
			Dept:     field(rec, deptCol),
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

type rosterStore interface {
	ExistingUsernames(ctx context.Context, names []string) (map[string]bool, error)
	Create(ctx context.Context, u *model.User, password string, cost int) error
}

type importResult struct {
	Created int
	Skipped int // already registered
	Failed  int
}

// importRoster creates a regular account with the default password for
// every entry whose username is not registered yet. Rows without a
// username or that fail to insert are counted and logged, not fatal.
func importRoster(ctx context.Context, users rosterStore, entries []rosterEntry, cost int, log *zap.Logger) (importResult, error) {
	var res importResult
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if n := strings.TrimSpace(e.Username); n != "" {
			names = append(names, n)
		}
	}
	existing, err := users.ExistingUsernames(ctx, names)
	if err != nil {
		return res, fmt.Errorf("roster: look up usernames: %w", err)
	}
	if existing == nil {
		existing = map[string]bool{}
	}

	for i, e := range entries {
		name := strings.TrimSpace(e.Username)
		switch {
		case name == "":
			log.Warn("skip row without username", zap.Int("row", i+1))
			res.Failed++
			continue
		case existing[name]:
			log.Info("user exists, skipped", zap.String("username", name))
			res.Skipped++
			continue
		}
		u := &model.User{Username: name, TrueName: e.TrueName, Dept: e.Dept, Role: model.RoleUser}
		if err := users.Create(ctx, u, utils.DefaultPassword, cost); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Error("import user failed", zap.String("username", name), zap.Error(err))
			res.Failed++
			continue
		}
		existing[name] = true // duplicates inside the file
		res.Created++
		log.Info("user imported", zap.String("username", name), zap.String("true_name", e.TrueName))
	}
	return res, nil
}
