package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"gopkg.in/yaml.v3"
)

//go:embed packs/*.yaml
var builtinPacks embed.FS

// Pack is a ready-made question set the host can import in one action
// instead of typing questions in by hand.
type Pack struct {
	Name      string     `json:"name" yaml:"-"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// PackSummary is the listing view, without the questions themselves.
type PackSummary struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
}

// PackLibrary holds every pack known at startup: the embedded samples plus
// anything in --packs-dir, which wins on name collisions.
type PackLibrary struct {
	packs map[string]Pack
}

func parsePack(name string, data []byte) (Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("failed to parse pack %q: %w", name, err)
	}

	pack.Name = name
	if pack.Title == "" {
		pack.Title = name
	}

	// Malformed entries are dropped here, before they can reach a session.
	valid := pack.Questions[:0]
	for _, q := range pack.Questions {
		if err := q.validate(); err != nil {
			continue
		}
		valid = append(valid, q)
	}
	pack.Questions = valid

	return pack, nil
}

func packName(fname string) string {
	return strings.TrimSuffix(strings.TrimSuffix(filepath.Base(fname), ".yaml"), ".yml")
}

func loadPacks(cfg *Config, logger *log.Logger) (*PackLibrary, error) {
	lib := &PackLibrary{
		packs: make(map[string]Pack),
	}

	entries, err := builtinPacks.ReadDir("packs")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		data, err := builtinPacks.ReadFile("packs/" + entry.Name())
		if err != nil {
			return nil, err
		}

		name := packName(entry.Name())
		pack, err := parsePack(name, data)
		if err != nil {
			return nil, err
		}
		lib.packs[name] = pack
	}

	if cfg.packsDir != "" {
		entries, err := os.ReadDir(cfg.packsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read packs directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}

			data, err := os.ReadFile(filepath.Join(cfg.packsDir, entry.Name()))
			if err != nil {
				logger.Warn("skipping unreadable pack", "file", entry.Name(), "error", err)
				continue
			}

			name := packName(entry.Name())
			pack, err := parsePack(name, data)
			if err != nil {
				logger.Warn("skipping malformed pack", "file", entry.Name(), "error", err)
				continue
			}
			lib.packs[name] = pack
		}
	}

	logger.Debug("question packs loaded", "count", len(lib.packs))

	return lib, nil
}

func (l *PackLibrary) get(name string) (Pack, bool) {
	pack, ok := l.packs[name]
	return pack, ok
}

func (l *PackLibrary) list() []PackSummary {
	summaries := make([]PackSummary, 0, len(l.packs))
	for _, pack := range l.packs {
		summaries = append(summaries, PackSummary{
			Name:      pack.Name,
			Title:     pack.Title,
			Questions: len(pack.Questions),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return summaries
}

func servePackList(cfg *Config, lib *PackLibrary) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(lib.list())
	}
}

func servePack(cfg *Config, lib *PackLibrary) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		pack, ok := lib.get(ps.ByName("pack"))
		if !ok {
			http.Error(w, "pack not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(pack)
	}
}

func registerPackHandlers(cfg *Config, lib *PackLibrary, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/packs", servePackList(cfg, lib))
	mux.GET(cfg.prefix+"/packs/:pack", servePack(cfg, lib))
}
