// Package migrations holds the BigQuery schema and the runner that applies it.
//
// Migration files are named NNNN_name.sql and may reference the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders. Applied versions are
// recorded in the schema_migrations table of the same dataset.
package migrations

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-overview/internal/logger"
)

//go:embed bigquery/*.sql
var files embed.FS

// Dir is the directory of the embedded migrations inside FS.
const Dir = "bigquery"

// FS returns the embedded migration files.
func FS() fs.FS { return files }

var filenamePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// ParseFilename splits "0001_name.sql" into its version and name.
func ParseFilename(filename string) (int, string, bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// Load reads migrations from dir in fsys, substitutes the placeholders and
// returns them sorted by version. The checksum covers the file as written,
// before substitution, so the same migration hashes equally in every project.
func Load(fsys fs.FS, dir, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("Load: reading migrations directory: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := ParseFilename(e.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("Load: duplicate version %04d in %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("Load: reading file %s: %w", e.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		out = append(out, Migration{
			Version:  version,
			Name:     name,
			Filename: e.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending returns the migrations whose version is not in applied.
func Pending(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var out []Migration
	for _, m := range all {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Runner applies migrations to one dataset.
type Runner struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func NewRunner(client *bigquery.Client, projectID, datasetID, appliedBy string) *Runner {
	return &Runner{client: client, projectID: projectID, datasetID: datasetID, appliedBy: appliedBy}
}

func (r *Runner) schemaTable() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", r.projectID, r.datasetID)
}

// Up applies every pending migration in order and returns how many ran.
func (r *Runner) Up(ctx context.Context, all []Migration) (int, error) {
	log := logger.FromContext(ctx)

	if err := r.ensureSchemaTable(ctx); err != nil {
		return 0, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int("files", len(all)).Int("applied", len(applied)).Msg("Loaded migrations")

	count := 0
	for _, m := range Pending(all, applied) {
		l := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		l.Info().Msg("Applying migration")

		if err := r.exec(ctx, r.client.Query(m.SQL)); err != nil {
			return count, fmt.Errorf("Up: executing %s: %w", m.Filename, err)
		}
		if err := r.record(ctx, m); err != nil {
			return count, fmt.Errorf("Up: recording %s: %w", m.Filename, err)
		}
		count++
	}
	return count, nil
}

func (r *Runner) ensureSchemaTable(ctx context.Context) error {
	q := r.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, r.schemaTable()))
	if err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("ensureSchemaTable: %w", err)
	}
	return nil
}

// Applied lists the recorded migrations, oldest first.
func (r *Runner) Applied(ctx context.Context) ([]AppliedMigration, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, r.schemaTable()))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Applied: query read: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Applied: iter next: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (r *Runner) record(ctx context.Context, m Migration) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.schemaTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	}
	return r.exec(ctx, q)
}

func (r *Runner) exec(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
