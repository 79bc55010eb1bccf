// Package migrate applies versioned schema migrations. A migrations
// directory holds one subdirectory per version, named by a positive integer;
// each subdirectory holds the .sql files of that version.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

// Runner applies migrations to one database. The database's user_version
// pragma records the last applied version.
type Runner struct {
	exec *sqlexec.Executor
	log  *zap.SugaredLogger
}

// New creates a runner over an executor.
func New(exec *sqlexec.Executor, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{exec: exec, log: log}
}

// CurrentVersion returns the database's schema version.
func (r *Runner) CurrentVersion(ctx context.Context) (int64, error) {
	return r.exec.UserVersion(ctx)
}

// SetVersion overrides the database's schema version without applying
// anything.
func (r *Runner) SetVersion(ctx context.Context, version int64) error {
	return r.exec.SetUserVersion(ctx, version)
}

type version struct {
	number int64
	path   string
}

// discover lists the version subdirectories of dir in ascending numeric
// order. Entries that are not directories or whose names are not positive
// integers are ignored.
func discover(dir string) ([]version, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewErrorWithContext(types.FileNotFound,
				fmt.Sprintf("migrate: no migrations directory at %q", dir), dir)
		}
		return nil, types.WrapError(types.PermissionDenied,
			fmt.Sprintf("migrate: failed to read migrations directory %q", dir), err)
	}

	seen := make(map[int64]string)
	var versions []version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		if prev, ok := seen[n]; ok {
			return nil, types.NewErrorWithContext(types.InvalidSchema,
				fmt.Sprintf("migrate: version %d appears twice, as %q and %q", n, prev, entry.Name()),
				dir)
		}
		seen[n] = entry.Name()
		versions = append(versions, version{number: n, path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].number < versions[j].number })
	return versions, nil
}

// sqlFiles lists the .sql files of one version directory in lexicographic
// order.
func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.WrapError(types.FileNotFound,
			fmt.Sprintf("migrate: failed to read version directory %q", dir), err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Apply runs every version above the database's current version, each in its
// own transaction that also bumps user_version. The first failing version
// rolls back and halts the run; earlier versions stay applied. It returns
// the version numbers applied.
func (r *Runner) Apply(ctx context.Context, dir string) ([]int64, error) {
	versions, err := discover(dir)
	if err != nil {
		return nil, err
	}
	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var applied []int64
	for _, v := range versions {
		if v.number <= current {
			continue
		}
		if err := r.applyVersion(ctx, v); err != nil {
			return applied, err
		}
		applied = append(applied, v.number)
		current = v.number
		r.log.Infow("applied migration", "version", v.number)
	}
	return applied, nil
}

// applyVersion runs all statements of one version and bumps user_version in
// the same transaction.
func (r *Runner) applyVersion(ctx context.Context, v version) error {
	files, err := sqlFiles(v.path)
	if err != nil {
		return err
	}

	if err := r.exec.Begin(ctx); err != nil {
		return err
	}
	rollback := func(cause error) error {
		if rbErr := r.exec.Rollback(ctx); rbErr != nil {
			r.log.Warnw("rollback failed after migration error", "version", v.number, "error", rbErr)
		}
		return cause
	}

	for _, file := range files {
		text, err := os.ReadFile(file)
		if err != nil {
			return rollback(types.WrapError(types.FileNotFound,
				fmt.Sprintf("migrate: failed to read %q", file), err))
		}
		statements := schema.SplitStatements(string(text))
		if err := schema.ValidateStatements(statements); err != nil {
			return rollback(types.WrapError(types.KindOf(err),
				fmt.Sprintf("migrate: version %d rejected by schema validation (%s)", v.number, filepath.Base(file)), err))
		}
		for _, stmt := range statements {
			if _, err := r.exec.Execute(ctx, stmt); err != nil {
				return rollback(types.WrapError(types.KindOf(err),
					fmt.Sprintf("migrate: version %d failed in %s", v.number, filepath.Base(file)), err))
			}
		}
	}

	if err := r.exec.SetUserVersion(ctx, v.number); err != nil {
		return rollback(err)
	}
	return r.exec.Commit(ctx)
}
