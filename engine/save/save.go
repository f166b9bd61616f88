// Package save implements JSON serialization of world snapshots and the
// slot stores saves are kept in.
package save

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// FormatVersion is written into every save.
const FormatVersion = 2

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Format     int             `json:"format"`
	Version    string          `json:"version"`
	Game       string          `json:"game"`
	Turn       int             `json:"turn"`
	Player     types.EntityID  `json:"player"`
	Seq        int             `json:"seq"`
	Entities   []EntityData    `json:"entities"`
	Flags      map[string]bool `json:"flags"`
	Counters   map[string]int  `json:"counters"`
	Verbs      []types.VerbDef `json:"verbs,omitempty"`
	CommandLog []string        `json:"command_log"`
}

// EntityData is one entity in a save. Traits are stored in the loosely
// typed form the trait registry builds from.
type EntityData struct {
	ID       types.EntityID            `json:"id"`
	Name     string                    `json:"name"`
	Type     types.EntityType          `json:"type"`
	Location types.EntityID            `json:"location,omitempty"`
	Contents []types.EntityID          `json:"contents,omitempty"`
	Traits   map[string]map[string]any `json:"traits,omitempty"`
}

// Meta is the non-world part of a save.
type Meta struct {
	Game       types.GameDef
	Turn       int
	Player     types.EntityID
	Verbs      []types.VerbDef
	CommandLog []string
}

// Save serializes a snapshot to JSON bytes.
func Save(snap world.Snapshot, meta Meta) ([]byte, error) {
	data := SaveData{
		Format:     FormatVersion,
		Version:    meta.Game.Version,
		Game:       meta.Game.Title,
		Turn:       meta.Turn,
		Player:     meta.Player,
		Seq:        snap.Seq,
		Entities:   make([]EntityData, 0, len(snap.Entities)),
		Flags:      snap.Flags,
		Counters:   snap.Counters,
		Verbs:      meta.Verbs,
		CommandLog: meta.CommandLog,
	}
	for _, rec := range snap.Entities {
		ed := EntityData{
			ID:       rec.ID,
			Name:     rec.Name,
			Type:     rec.Type,
			Location: rec.Location,
			Contents: rec.Contents,
		}
		for _, t := range rec.Traits {
			m, err := traits.Encode(t)
			if err != nil {
				return nil, fmt.Errorf("save %s: %w", rec.ID, err)
			}
			if ed.Traits == nil {
				ed.Traits = map[string]map[string]any{}
			}
			ed.Traits[t.Kind()] = m
		}
		data.Entities = append(data.Entities, ed)
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Format != FormatVersion {
		return nil, fmt.Errorf("unsupported save format %d", sd.Format)
	}
	// Ensure maps are never nil after load.
	if sd.Flags == nil {
		sd.Flags = map[string]bool{}
	}
	if sd.Counters == nil {
		sd.Counters = map[string]int{}
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// Snapshot rebuilds the world snapshot, constructing traits through reg.
// The result still has to pass world.Store.Restore's consistency check.
func (sd *SaveData) Snapshot(reg *traits.Registry) (world.Snapshot, error) {
	snap := world.Snapshot{
		Seq:      sd.Seq,
		Entities: make([]world.EntityRecord, 0, len(sd.Entities)),
		Flags:    sd.Flags,
		Counters: sd.Counters,
	}
	for _, ed := range sd.Entities {
		rec := world.EntityRecord{
			ID:       ed.ID,
			Name:     ed.Name,
			Type:     ed.Type,
			Location: ed.Location,
			Contents: ed.Contents,
		}
		kinds := make([]string, 0, len(ed.Traits))
		for kind := range ed.Traits {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			t, err := reg.Build(kind, ed.Traits[kind])
			if err != nil {
				return world.Snapshot{}, fmt.Errorf("load %s: %w", ed.ID, err)
			}
			rec.Traits = append(rec.Traits, t)
		}
		snap.Entities = append(snap.Entities, rec)
	}
	return snap, nil
}
