package leagues

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/logging"
)

// filePreferences is the on-disk shape:
//
//	leagues:
//	  - id: 39
//	    name: Premier League
//	  - id: 140
//	    enabled: false
//	  - 78
//
// A bare number is shorthand for an enabled league.
type filePreferences struct {
	Leagues []fileLeague `yaml:"leagues"`
}

type fileLeague struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

func (l *fileLeague) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&l.ID)
	}
	type plain fileLeague
	return node.Decode((*plain)(l))
}

// FileSource reads preferences from a YAML file, reloading when its
// modification time changes. A broken or missing file keeps the last good scope.
type FileSource struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	scope   matches.LeagueScope
	loaded  bool
}

// NewFileSource loads path once and returns the source. The initial load must succeed.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	s := &FileSource{path: path, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) DisplayLeagues() matches.LeagueScope {
	if err := s.reload(); err != nil {
		logging.Warn(s.logger, "league preferences reload failed, keeping previous scope",
			slog.String("path", s.path),
			slog.Any("err", err),
		)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(matches.LeagueScope(nil), s.scope...)
}

func (s *FileSource) reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat league preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && info.ModTime().Equal(s.modTime) {
		return nil
	}

	scope, err := readPreferences(s.path)
	if err != nil {
		return err
	}
	s.scope = scope
	s.modTime = info.ModTime()
	s.loaded = true
	logging.Info(s.logger, "league preferences loaded",
		slog.String("path", s.path),
		slog.String(logging.FieldScope, scope.Key()),
	)
	return nil
}

func readPreferences(path string) (matches.LeagueScope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read league preferences: %w", err)
	}
	var prefs filePreferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse league preferences: %w", err)
	}

	ids := make([]matches.LeagueID, 0, len(prefs.Leagues))
	for _, l := range prefs.Leagues {
		if l.Enabled != nil && !*l.Enabled {
			continue
		}
		if l.ID <= 0 {
			return nil, fmt.Errorf("parse league preferences: invalid league id %d", l.ID)
		}
		ids = append(ids, matches.LeagueID(l.ID))
	}
	return matches.NewLeagueScope(ids...), nil
}
