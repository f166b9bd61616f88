package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/taleforge/engine/story"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	entities []rawEntity
	rules    []rawRule
	verbs    []*lua.LTable
	order    int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	log logrus.FieldLogger
}

// WithLogger sets where Load reports files and validation warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *loadOptions) { o.log = log }
}

// Load reads all .lua files from dir, compiles them into story
// definitions, validates references, and returns the immutable Defs.
// Warnings are logged; errors fail the load.
func Load(dir string, opts ...Option) (*story.Defs, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}

	defs, warnings, err := Check(dir)
	for _, w := range warnings {
		o.log.WithField("dir", dir).Warn(w)
	}
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{
		"dir":      dir,
		"title":    defs.Game.Title,
		"entities": len(defs.Entities),
	}).Info("story loaded")
	return defs, nil
}

// Check loads dir like Load but hands the warnings back instead of
// logging them.
func Check(dir string) (*story.Defs, []string, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading story directory %s: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, warnings, err := compile(coll)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling story: %w", err)
	}
	ve := validate(defs)
	ve.Warnings = append(warnings, ve.Warnings...)
	if len(ve.Errors) > 0 {
		return nil, ve.Warnings, ve
	}
	return defs, ve.Warnings, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the story directory or make
// loading nondeterministic.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}
