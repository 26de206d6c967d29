// Package preset loads the live-view parameter catalog.
//
// Presets are CUE. The built-in catalog is embedded; users can add their own
// files. Every preset is unified with the #Preset schema (schema.cue), so
// out-of-range values are rejected with a position and omitted params take
// the schema defaults:
//
//	preset: calm: {
//		name: "Calm"
//		params: {K: 3.0, D: 0.0}
//	}
package preset

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaCUE string

//go:embed presets.cue
var builtinCUE []byte

// Params is the live-view parameter bundle.
type Params struct {
	N      int     `json:"N" yaml:"N"`           // oscillator count
	K      float64 `json:"K" yaml:"K"`           // coupling strength
	Sigma  float64 `json:"sigma" yaml:"sigma"`   // natural frequency spread
	Omega0 float64 `json:"omega0" yaml:"omega0"` // base frequency
	D      float64 `json:"D" yaml:"D"`           // noise intensity
	Beta   float64 `json:"beta" yaml:"beta"`     // drive amplitude
	Fv     float64 `json:"fv" yaml:"fv"`         // drive frequency
	Rhoqp  float64 `json:"rhoqp" yaml:"rhoqp"`   // wobble density factor
	Dt     float64 `json:"dt" yaml:"dt"`         // time step
}

// Preset is a named Params bundle.
type Preset struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Params      Params `json:"params"`
}

// Catalog is an ordered set of presets keyed by their CUE label.
type Catalog struct {
	order   []string
	presets map[string]Preset
}

// Default returns the built-in catalog: chaos, edge, coherent, pulse.
// It panics if the embedded catalog is invalid, which tests rule out.
func Default() *Catalog {
	c, err := compile(builtinCUE, "presets.cue")
	if err != nil {
		panic(fmt.Sprintf("preset: embedded catalog: %v", err))
	}
	return c
}

// LoadFile compiles a single CUE file into a catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading preset file: %v", err)}
	}
	return compile(data, path)
}

// LoadDir loads the CUE package in dir into a catalog.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("preset directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(matches) == 0 {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeBuildFailed, "loading CUE files", inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, "building CUE value", err)
	}
	return extract(ctx, value)
}

func compile(data []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, "compiling presets", err)
	}
	return extract(ctx, value)
}

// extract unifies every field under `preset` with #Preset and decodes it.
func extract(ctx *cue.Context, value cue.Value) (*Catalog, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, "compiling schema", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Preset"))

	cat := &Catalog{presets: make(map[string]Preset)}

	presetsVal := value.LookupPath(cue.ParsePath("preset"))
	if !presetsVal.Exists() {
		return cat, nil
	}
	iter, err := presetsVal.Fields()
	if err != nil {
		return nil, cueError(ErrCodeSchema, "iterating presets", err)
	}
	for iter.Next() {
		key := iter.Label()
		unified := def.Unify(iter.Value())
		if err := unified.Validate(); err != nil {
			return nil, cueError(ErrCodeSchema, "preset "+key, err)
		}

		var p Preset
		if err := unified.Decode(&p); err != nil {
			return nil, cueError(ErrCodeSchema, "preset "+key, err)
		}
		p.Key = key
		if p.Name == "" {
			p.Name = key
		}
		cat.add(p)
	}
	return cat, nil
}

func (c *Catalog) add(p Preset) {
	if _, ok := c.presets[p.Key]; !ok {
		c.order = append(c.order, p.Key)
	}
	c.presets[p.Key] = p
}

// Get returns the preset stored under key.
func (c *Catalog) Get(key string) (Preset, error) {
	p, ok := c.presets[key]
	if !ok {
		return Preset{}, &LoadError{Code: ErrCodeUnknownPreset, Message: fmt.Sprintf("unknown preset %q", key)}
	}
	return p, nil
}

// Keys returns preset keys in declaration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.order...)
}

// Presets returns every preset in declaration order.
func (c *Catalog) Presets() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.presets[k])
	}
	return out
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Next returns the key after key, wrapping around. An unknown key yields the
// first preset.
func (c *Catalog) Next(key string) string {
	if len(c.order) == 0 {
		return ""
	}
	for i, k := range c.order {
		if k == key {
			return c.order[(i+1)%len(c.order)]
		}
	}
	return c.order[0]
}

// Merge returns a catalog holding c's presets followed by other's. Presets in
// other replace same-keyed presets in c, keeping c's position.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{presets: make(map[string]Preset, c.Len()+other.Len())}
	for _, p := range c.Presets() {
		out.add(p)
	}
	for _, p := range other.Presets() {
		out.add(p)
	}
	return out
}
