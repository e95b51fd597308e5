package sqlexport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/xsd"
)

// An Exporter writes models into a DB.
type Exporter struct {
	db     *DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewExporter returns an Exporter writing to db.
func NewExporter(db *DB, logger zerolog.Logger) *Exporter {
	return &Exporter{db: db, logger: logger, now: time.Now}
}

// Export stores m in a single transaction and returns the new export id.
func (e *Exporter) Export(ctx context.Context, m *xsd.Model) (string, error) {
	start := time.Now()
	id := uuid.NewString()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	all := m.All()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO exports (id, source, version, target_namespace, declarations, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, m.Source(), m.Version(), m.TargetNamespace(), len(all), e.now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert export: %w", err)
	}

	w := &writer{tx: tx, ctx: ctx, id: id, m: m}
	for _, d := range all {
		if err := w.declaration(d); err != nil {
			return "", err
		}
	}
	for i, c := range m.Changes(xsd.ChangeAll) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO changes (export_id, position, version, author, date, description) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, c.Version, c.Author, c.Date, c.Description)
		if err != nil {
			return "", fmt.Errorf("insert change: %w", err)
		}
	}
	for _, ns := range m.Namespaces() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO namespaces (export_id, prefix, uri) VALUES (?, ?, ?)`,
			id, ns.Prefix, ns.URI)
		if err != nil {
			return "", fmt.Errorf("insert namespace %q: %w", ns.Prefix, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}
	e.logger.Info().
		Str("export_id", id).
		Str("source", m.Source()).
		Int("count", len(all)).
		Dur("duration", time.Since(start)).
		Msg("schema exported")
	return id, nil
}

type writer struct {
	tx  *sql.Tx
	ctx context.Context
	id  string
	m   *xsd.Model
}

func (w *writer) declaration(d *xsd.Declaration) error {
	kind := d.Kind.String()
	var sg, card string
	if !d.SubstitutionGroup.IsZero() {
		sg = w.m.TypedName(d.SubstitutionGroup)
	}
	if d.Cardinality != nil {
		card = d.Cardinality.String()
	}
	_, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO declarations (export_id, kind, namespace, name, prefix, type, abstract, substitution_group, doc, cardinality, document, line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, kind, d.Namespace, d.Name, d.Prefix, typeName(w.m, d.Type), d.Abstract, sg, d.Doc, card, d.Document, d.Line)
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", kind, d.Tag, err)
	}
	for role, list := range map[string][]xsd.Member{"attribute": d.Attributes, "child": d.Children} {
		for i, mb := range list {
			c := mb.Cardinality
			_, err := w.tx.ExecContext(w.ctx,
				`INSERT INTO members (export_id, owner_kind, owner_namespace, owner_name, role, position, tag, type, use,
					lower_bound, upper_bound, choice, default_value, fixed_value, is_ref, doc)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				w.id, kind, d.Namespace, d.Name, role, i, w.m.TypedName(mb.Tag), typeName(w.m, mb.Type), string(c.Use),
				c.Lower, c.Upper, c.Choice, c.Default, c.Fixed, mb.Ref, mb.Doc)
			if err != nil {
				return fmt.Errorf("insert %s %s of %s: %w", role, mb.Tag, d.Tag, err)
			}
		}
	}
	for _, p := range d.Parents {
		_, err := w.tx.ExecContext(w.ctx,
			`INSERT INTO parents (export_id, kind, namespace, name, parent) VALUES (?, ?, ?, ?, ?)`,
			w.id, kind, d.Namespace, d.Name, w.m.TypedName(p))
		if err != nil {
			return fmt.Errorf("insert parent of %s: %w", d.Tag, err)
		}
	}
	return nil
}

func typeName(m *xsd.Model, q xsd.QName) string {
	if q.IsZero() {
		return ""
	}
	return m.TypedName(q)
}

// An ExportRecord describes one stored export.
type ExportRecord struct {
	ID              string
	Source          string
	Version         string
	TargetNamespace string
	Declarations    int
	CreatedAt       time.Time
}

// Exports lists the stored exports, newest first.
func (db *DB) Exports(ctx context.Context) ([]ExportRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, source, version, target_namespace, declarations, created_at FROM exports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Version, &r.TargetNamespace, &r.Declarations, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountDeclarations returns the number of declarations of kind k
// stored by an export.
func (db *DB) CountDeclarations(ctx context.Context, exportID string, k xsd.Kind) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM declarations WHERE export_id = ? AND kind = ?`, exportID, k.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count declarations: %w", err)
	}
	return n, nil
}
