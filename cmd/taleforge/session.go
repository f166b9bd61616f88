package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nathoo/taleforge/config"
	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/engine/events"
	"github.com/nathoo/taleforge/engine/save"
	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/lang"
	"github.com/nathoo/taleforge/loader"
	"github.com/nathoo/taleforge/logger"
	"github.com/nathoo/taleforge/storage/bolt"
	"github.com/nathoo/taleforge/storage/sqlite"
)

// session is a loaded story with its engine and storage.
type session struct {
	cfg     *config.Config
	log     *logrus.Logger
	defs    *story.Defs
	engine  *engine.Engine
	slots   save.SlotStore
	closers []func() error
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// loadConfig reads the config named by --config and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()), nil
}

// openSession loads the story in dir and wires the engine to the
// configured language, save slots and journal. withStorage false skips
// slots and the journal.
func openSession(ctx context.Context, cmd *cobra.Command, dir string, withStorage bool) (*session, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.Strict = true
	}

	defs, err := loader.Load(dir, loader.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, defs: defs}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithUndoDepth(cfg.UndoDepth),
		engine.WithStrict(cfg.Strict),
	}
	if cfg.Language != "" {
		base, err := lang.English()
		if err != nil {
			return nil, err
		}
		pack, err := lang.LoadFile(cfg.Language, base)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithLanguage(pack))
	}

	if withStorage {
		if err := s.openStorage(ctx, &opts); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.engine, err = engine.New(defs, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) openStorage(ctx context.Context, opts *[]engine.Option) error {
	title := s.defs.Game.Title
	switch s.cfg.SaveBackend {
	case config.BackendBolt:
		if err := os.MkdirAll(s.cfg.SaveDir, 0o755); err != nil {
			return fmt.Errorf("create save directory: %w", err)
		}
		slots, err := bolt.Open(filepath.Join(s.cfg.SaveDir, "saves.db"), title)
		if err != nil {
			return err
		}
		s.slots = slots
		s.closers = append(s.closers, slots.Close)
	default:
		s.slots = save.FileSlots{Dir: filepath.Join(s.cfg.SaveDir, slug(title))}
	}

	if s.cfg.JournalDSN == "" {
		return nil
	}
	sessionID := events.NewIDSource().New(time.Now())
	j, err := sqlite.Open(ctx, s.cfg.JournalDSN, slug(title)+"/"+sessionID)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, j.Close)
	*opts = append(*opts, engine.WithSubscriber("journal", j.Append))
	s.log.WithFields(logrus.Fields{"dsn": s.cfg.JournalDSN, "session": sessionID}).Info("journal open")
	return nil
}

// slug turns a story title into a directory-safe name.
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "story"
	}
	return out
}
