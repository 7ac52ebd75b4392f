// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package application

import (
	"github.com/juju/errors"
	"github.com/juju/version/v2"
	"gopkg.in/yaml.v3"
)

// Description holds the metadata an application archive declares about
// itself, parsed from the archive's app.yaml.
type Description struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Origin       string   `yaml:"origin,omitempty"`
	Summary      string   `yaml:"summary,omitempty"`
	Category     string   `yaml:"category,omitempty"`
	RequiredApps []string `yaml:"required-apps,omitempty"`
	Permissions  []string `yaml:"permissions,omitempty"`
	Features     []string `yaml:"features,omitempty"`
}

// ParseDescription parses and validates an app.yaml document.
func ParseDescription(data []byte) (*Description, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, errors.Annotate(err, "parsing application description")
	}
	if err := desc.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &desc, nil
}

// Validate returns an error if the description is incomplete.
func (d *Description) Validate() error {
	if d.Name == "" {
		return errors.NotValidf("application description without name")
	}
	if _, err := version.Parse(d.Version); err != nil {
		return errors.NotValidf("application %q version %q", d.Name, d.Version)
	}
	return nil
}

// BinaryVersion returns the parsed form of the declared version.
func (d *Description) BinaryVersion() version.Number {
	v, err := version.Parse(d.Version)
	if err != nil {
		return version.Zero
	}
	return v
}

// Application is an installable unit of controller functionality. It is
// immutable; the mutable activation state lives in the store's Holder.
type Application struct {
	id   ID
	desc Description
}

// New returns an application with the given registered id and parsed
// description.
func New(id ID, desc Description) *Application {
	return &Application{id: id, desc: desc}
}

// ID returns the application's registered id.
func (a *Application) ID() ID {
	return a.id
}

// Version returns the application's declared version.
func (a *Application) Version() version.Number {
	return a.desc.BinaryVersion()
}

// RequiredApps returns the names of the applications this one needs
// activated before it can run.
func (a *Application) RequiredApps() []string {
	out := make([]string, len(a.desc.RequiredApps))
	copy(out, a.desc.RequiredApps)
	return out
}

// Requires reports whether the application declares a dependency on
// the named application.
func (a *Application) Requires(name string) bool {
	for _, req := range a.desc.RequiredApps {
		if req == name {
			return true
		}
	}
	return false
}

// Permissions returns the permissions the application requests.
func (a *Application) Permissions() []string {
	out := make([]string, len(a.desc.Permissions))
	copy(out, a.desc.Permissions)
	return out
}

// Features returns the feature names the application provides.
func (a *Application) Features() []string {
	out := make([]string, len(a.desc.Features))
	copy(out, a.desc.Features)
	return out
}

// Description returns a copy of the application's metadata.
func (a *Application) Description() Description {
	return a.desc
}

func (a *Application) String() string {
	return a.id.String()
}
