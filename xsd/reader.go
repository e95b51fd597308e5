package xsd

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/internal/fetch"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// State is the parse state of a Reader.
type State int

const (
	Unparsed State = iota
	Parsing
	Parsed
	Failed
)

func (s State) String() string {
	switch s {
	case Unparsed:
		return "unparsed"
	case Parsing:
		return "parsing"
	case Parsed:
		return "parsed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// BuildStats describes one finished build.
type BuildStats struct {
	Source     string
	Duration   time.Duration
	Counts     []KindCount
	Unresolved int
	Err        error
}

// An Observer is told about every build a Reader runs.
type Observer interface {
	ObserveBuild(BuildStats)
}

// A Reader parses a schema and answers queries about it. A Reader can
// be rebuilt any number of times; queries see the model of the last
// successful build, and are safe to call while a build runs.
type Reader struct {
	Logger zerolog.Logger
	// Loader retrieves schema documents. NewReader sets it to a
	// fetch.Fetcher with the default cache folder.
	Loader Loader
	// FollowImports controls whether import, include and redefine
	// locations are loaded.
	FollowImports bool
	// Observer, if set, receives the statistics of each build.
	Observer Observer

	build sync.Mutex // serializes builds

	mu    sync.RWMutex
	state State
	model *Model
	err   error
}

// NewReader returns an unparsed Reader that follows imports.
func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{
		Logger:        logger,
		Loader:        fetch.New("", logger),
		FollowImports: true,
	}
}

// Process builds a model from the schema at source, a file path or an
// http, https or file URL. ctx bounds the retrieval of documents.
func (r *Reader) Process(ctx context.Context, source string) error {
	return r.process(ctx, source, nil)
}

// ProcessBytes builds a model from a schema already in memory. Relative
// schema locations are resolved against name.
func (r *Reader) ProcessBytes(name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return r.process(context.Background(), name, data)
}

func (r *Reader) process(ctx context.Context, source string, data []byte) error {
	r.build.Lock()
	defer r.build.Unlock()

	r.setState(Parsing, nil, false)
	log := r.Logger.With().Str("source", source).Logger()
	log.Debug().Msg("parsing schema")

	loader := r.Loader
	if loader == nil {
		loader = fetch.New("", r.Logger)
	}
	start := time.Now()
	b := newBuilder(ctx, log, loader, r.FollowImports)
	m, err := b.run(source, data)

	stats := BuildStats{Source: source, Duration: time.Since(start), Err: err}
	if err != nil {
		r.setState(Failed, err, true)
		log.Error().Err(err).Dur("duration", stats.Duration).Msg("schema parse failed")
	} else {
		r.mu.Lock()
		r.state, r.model, r.err = Parsed, m, nil
		r.mu.Unlock()
		summary := m.Summary()
		stats.Counts = summary.Counts
		stats.Unresolved = len(m.unresolved)
		ev := log.Info().
			Str("version", m.Version()).
			Int("count", summary.Total()).
			Int("documents", len(summary.Documents)).
			Dur("duration", stats.Duration)
		if stats.Unresolved > 0 {
			ev = ev.Int("unresolved", stats.Unresolved)
		}
		ev.Msg("schema parsed")
	}
	if r.Observer != nil {
		r.Observer.ObserveBuild(stats)
	}
	return err
}

func (r *Reader) setState(s State, err error, dropModel bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state, r.err = s, err
	if dropModel {
		r.model = nil
	}
}

// State returns the current parse state.
func (r *Reader) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// IsParsed reports whether the last build succeeded.
func (r *Reader) IsParsed() bool {
	return r.State() == Parsed
}

// Err returns the error of the last build, if it failed.
func (r *Reader) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Model returns the model of the last successful build. While a
// rebuild runs the previous model stays available. After a failed
// build Model returns a *xsderrors.NotParsedError.
func (r *Reader) Model() (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.model == nil {
		return nil, &xsderrors.NotParsedError{State: r.state.String()}
	}
	return r.model, nil
}

// Lookup finds a declaration by name; see Model.Lookup. A nil
// declaration with a nil error means the name is unknown.
func (r *Reader) Lookup(name string) (*Declaration, error) {
	m, err := r.Model()
	if err != nil {
		return nil, err
	}
	return m.Lookup(name), nil
}

// Declarations returns the declarations of kind k sorted by name.
func (r *Reader) Declarations(k Kind) ([]*Declaration, error) {
	m, err := r.Model()
	if err != nil {
		return nil, err
	}
	return m.Declarations(k), nil
}

func (r *Reader) Summary() (Summary, error) {
	m, err := r.Model()
	if err != nil {
		return Summary{}, err
	}
	return m.Summary(), nil
}

func (r *Reader) Changes(filter ChangeFilter) ([]Change, error) {
	m, err := r.Model()
	if err != nil {
		return nil, err
	}
	return m.Changes(filter), nil
}

func (r *Reader) Namespaces() ([]Namespace, error) {
	m, err := r.Model()
	if err != nil {
		return nil, err
	}
	return m.Namespaces(), nil
}

func (r *Reader) Version() (string, error) {
	m, err := r.Model()
	if err != nil {
		return "", err
	}
	return m.Version(), nil
}

func (r *Reader) DocEncoding() (string, error) {
	m, err := r.Model()
	if err != nil {
		return "", err
	}
	return m.DocEncoding(), nil
}

func (r *Reader) DocXMLVersion() (string, error) {
	m, err := r.Model()
	if err != nil {
		return "", err
	}
	return m.DocXMLVersion(), nil
}
