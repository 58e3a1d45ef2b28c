// Package runtime loads the immutable state the scorer works from and
// tracks whether it is ready.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mchmarny/chefskiss/pkg/city"
	"github.com/mchmarny/chefskiss/pkg/data"
	"github.com/mchmarny/chefskiss/pkg/explain"
	"github.com/mchmarny/chefskiss/pkg/model"
	"github.com/mchmarny/chefskiss/pkg/net"
	"github.com/mchmarny/chefskiss/pkg/score"
	"github.com/mchmarny/chefskiss/pkg/store"
	"golang.org/x/sync/errgroup"
)

const (
	dirMode        = 0700
	cacheDirPrefix = "chefskiss-"
)

// Sources locates the artifacts a runtime is built from. Model, Data and
// Cities are local paths or http(s) URLs; Data and Cities may also be
// SQLite or Postgres snapshots.
type Sources struct {
	Model   string
	Data    string
	Cities  string
	Token   string
	Workers int

	// CacheDir receives downloaded artifacts; a temporary directory when empty.
	CacheDir string
}

// Runtime is built once and never mutated.
type Runtime struct {
	Store     *store.Store
	Resolver  *city.Resolver
	Model     model.Model
	Explainer model.Explainer
	Ranker    *explain.Ranker
	Scorer    *score.Scorer
	LoadedAt  time.Time
}

// ExplainerAvailable reports whether scores carry attributions.
func (rt *Runtime) ExplainerAvailable() bool {
	return rt.Ranker.Available()
}

// Load builds the runtime. Any failure except building the explainer is fatal.
func Load(ctx context.Context, src Sources) (*Runtime, error) {
	if src.Model == "" {
		return nil, errors.New("model source required")
	}
	if src.Data == "" {
		return nil, errors.New("data source required")
	}

	start := time.Now()
	f := &fetcher{token: src.Token, dir: src.CacheDir}

	var (
		m      model.Model
		tbl    *data.Table
		cities *data.Table
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := f.fetch(gctx, "model", src.Model)
		if err != nil {
			return fmt.Errorf("error fetching model: %w", err)
		}
		if m, err = model.Load(p); err != nil {
			return err
		}
		slog.Info("model loaded", "source", src.Model, "kind", m.Kind(), "features", len(m.Features()))
		return nil
	})

	g.Go(func() error {
		p, err := f.fetch(gctx, "data", src.Data)
		if err != nil {
			return fmt.Errorf("error fetching data: %w", err)
		}
		if tbl, err = data.Load(gctx, p); err != nil {
			return fmt.Errorf("error loading data: %w", err)
		}
		slog.Info("data loaded", "source", src.Data, "rows", tbl.Len(), "columns", len(tbl.Columns))
		return nil
	})

	if src.Cities != "" {
		g.Go(func() error {
			p, err := f.fetch(gctx, "cities", src.Cities)
			if err != nil {
				return fmt.Errorf("error fetching city mapping: %w", err)
			}
			if cities, err = data.Load(gctx, p); err != nil {
				return fmt.Errorf("error loading city mapping: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	st, err := store.New(tbl)
	if err != nil {
		return nil, fmt.Errorf("error building context store: %w", err)
	}
	slog.Info("context store built", "locations", st.Len())

	var resolver *city.Resolver
	if cities != nil {
		if resolver, err = city.FromTable(cities); err != nil {
			return nil, fmt.Errorf("error building city resolver: %w", err)
		}
	} else {
		resolver = city.FromStore(st)
	}
	slog.Info("city resolver built", "cities", resolver.Len())

	rt := &Runtime{
		Store:    st,
		Resolver: resolver,
		Model:    m,
	}

	if e, err := model.NewExplainer(m); err != nil {
		slog.Warn("attribution not available", "error", err)
	} else {
		rt.Explainer = e
		rt.Ranker = explain.NewRanker(e)
		slog.Info("explainer initialized", "expected_value", e.ExpectedValue())
	}

	rt.Scorer = score.New(st, resolver, m, rt.Ranker, score.WithWorkers(src.Workers))
	rt.LoadedAt = time.Now()

	slog.Info("runtime ready", "duration", rt.LoadedAt.Sub(start).String())
	return rt, nil
}

// fetcher resolves a source to something data.Load or model.Load can open,
// downloading remote URLs first.
type fetcher struct {
	mu    sync.Mutex
	token string
	dir   string
}

func (f *fetcher) fetch(ctx context.Context, kind, src string) (string, error) {
	if !net.IsRemote(src) {
		return src, nil
	}

	dir, err := f.cacheDir()
	if err != nil {
		return "", err
	}

	name := path.Base(strings.SplitN(src, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		name = "artifact"
	}
	dst := filepath.Join(dir, kind+"-"+name)

	slog.Debug("downloading artifact", "url", src, "path", dst)
	if err := net.Download(ctx, src, dst, f.token); err != nil {
		return "", err
	}
	return dst, nil
}

func (f *fetcher) cacheDir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir != "" {
		if err := os.MkdirAll(f.dir, dirMode); err != nil {
			return "", fmt.Errorf("error creating cache dir %s: %w", f.dir, err)
		}
		return f.dir, nil
	}
	dir, err := os.MkdirTemp("", cacheDirPrefix)
	if err != nil {
		return "", fmt.Errorf("error creating cache dir: %w", err)
	}
	f.dir = dir
	return dir, nil
}
