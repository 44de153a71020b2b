// Package manifest decodes a plug-in descriptor from a YAML file on disk
// into a v1.PluginInfo. The core itself never reads manifests — per
// api/v1.PluginInfo's doc comment, descriptor loading is an external
// collaborator's job — but both the CLI's install command and the
// directory scanner need a concrete format to demonstrate InstallPlugin,
// so this lives as shared plumbing between the two.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	v1 "github.com/pluggit/pluggit/api/v1"
)

// Descriptor is the on-disk shape of a plug-in manifest.
type Descriptor struct {
	Identifier    string       `yaml:"identifier"`
	Version       string       `yaml:"version"`
	Name          string       `yaml:"name"`
	ProviderName  string       `yaml:"provider_name"`
	PluginPath    string       `yaml:"plugin_path"`
	LibPath       string       `yaml:"lib_path"`
	StartFuncName string       `yaml:"start_func"`
	StopFuncName  string       `yaml:"stop_func"`
	Imports       []Import     `yaml:"imports"`
	ExtPoints     []ExtPoint   `yaml:"ext_points"`
	Extensions    []Extension  `yaml:"extensions"`
}

type Import struct {
	PluginID string `yaml:"plugin_id"`
	Version  string `yaml:"version"`
	Match    string `yaml:"match"` // none | perfect | equivalent | compatible | greater-or-equal
	Optional bool   `yaml:"optional"`
}

type ExtPoint struct {
	LocalID    string `yaml:"local_id"`
	Name       string `yaml:"name"`
	SchemaPath string `yaml:"schema_path"`
}

type Extension struct {
	LocalID    string `yaml:"local_id"`
	ExtPointID string `yaml:"ext_point_id"`
	Cfg        string `yaml:"cfg"`
}

// Load reads and decodes a plug-in descriptor from path.
func Load(path string) (v1.PluginInfo, error) {
	var info v1.PluginInfo

	data, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return info, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	info.Identifier = d.Identifier
	info.Name = d.Name
	info.ProviderName = d.ProviderName
	info.PluginPath = d.PluginPath
	info.LibPath = d.LibPath
	info.StartFuncName = d.StartFuncName
	info.StopFuncName = d.StopFuncName

	if d.Version != "" {
		v, err := v1.ParseVersion(d.Version)
		if err != nil {
			return info, fmt.Errorf("manifest %s: %w", path, err)
		}
		info.Version = v
		info.HasVersion = true
	}

	for _, imp := range d.Imports {
		rec := v1.PluginImport{PluginID: imp.PluginID, Optional: imp.Optional, Match: parseMatchRule(imp.Match)}
		if imp.Version != "" {
			v, err := v1.ParseVersion(imp.Version)
			if err != nil {
				return info, fmt.Errorf("manifest %s: import %s: %w", path, imp.PluginID, err)
			}
			rec.Version = v
			rec.HasVersion = true
		}
		info.Imports = append(info.Imports, rec)
	}

	for _, ep := range d.ExtPoints {
		info.ExtPoints = append(info.ExtPoints, v1.ExtPoint{LocalID: ep.LocalID, Name: ep.Name, SchemaPath: ep.SchemaPath})
	}

	for _, ext := range d.Extensions {
		info.Extensions = append(info.Extensions, v1.Extension{
			LocalID:    ext.LocalID,
			ExtPointID: ext.ExtPointID,
			Cfg:        v1.CfgElement{Value: ext.Cfg},
		})
	}

	return info, nil
}

func parseMatchRule(s string) v1.MatchRule {
	switch s {
	case "perfect":
		return v1.MatchPerfect
	case "equivalent":
		return v1.MatchEquivalent
	case "compatible":
		return v1.MatchCompatible
	case "greater-or-equal":
		return v1.MatchGreaterOrEqual
	default:
		return v1.MatchNone
	}
}
