// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package appstore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"

	"github.com/juju/netcore/core/application"
)

const (
	archiveFile    = "app.yaml"
	activeMarker   = "active"
	archiveDirPerm = 0755
	archiveFilePerm = 0644
)

// Archive manages the node-local application archive directory. Each
// application owns a subdirectory holding its archive blob (the
// app.yaml description document) and an active marker file recording
// whether the app should start with the node.
type Archive struct {
	rootDir string
}

// NewArchive returns an archive rooted at the given directory,
// creating it if necessary.
func NewArchive(rootDir string) (*Archive, error) {
	if err := os.MkdirAll(rootDir, archiveDirPerm); err != nil {
		return nil, errors.Annotate(err, "creating application archive directory")
	}
	return &Archive{rootDir: rootDir}, nil
}

// Save reads the archive stream, parses its description, and stores
// the blob under the application's directory.
func (a *Archive) Save(r io.Reader) (*application.Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading application archive")
	}
	return a.SaveBytes(data)
}

// SaveBytes stores an archive blob already held in memory.
func (a *Archive) SaveBytes(data []byte) (*application.Description, error) {
	desc, err := application.ParseDescription(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	dir := a.appDir(desc.Name)
	if err := os.MkdirAll(dir, archiveDirPerm); err != nil {
		return nil, errors.Annotatef(err, "creating directory for %q", desc.Name)
	}
	if err := os.WriteFile(filepath.Join(dir, archiveFile), data, archiveFilePerm); err != nil {
		return nil, errors.Annotatef(err, "writing archive for %q", desc.Name)
	}
	return desc, nil
}

// Purge removes everything stored for the named application.
func (a *Archive) Purge(name string) {
	if err := os.RemoveAll(a.appDir(name)); err != nil {
		logger.Warningf("purging archive for %q: %v", name, err)
	}
}

// Description parses the stored description for the named application.
func (a *Archive) Description(name string) (*application.Description, error) {
	data, err := a.Bytes(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return application.ParseDescription(data)
}

// Bytes returns the stored archive blob for the named application.
func (a *Archive) Bytes(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.appDir(name), archiveFile))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("application %q archive", name)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "reading archive for %q", name)
	}
	return data, nil
}

// Has reports whether archive bits exist for the named application.
func (a *Archive) Has(name string) bool {
	_, err := os.Stat(filepath.Join(a.appDir(name), archiveFile))
	return err == nil
}

// Names returns the applications present in the archive directory.
func (a *Archive) Names() []string {
	entries, err := os.ReadDir(a.rootDir)
	if err != nil {
		logger.Warningf("listing archive directory: %v", err)
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// SetActive marks the named application to start with the node.
func (a *Archive) SetActive(name string) {
	path := filepath.Join(a.appDir(name), activeMarker)
	if err := os.WriteFile(path, nil, archiveFilePerm); err != nil {
		logger.Warningf("marking %q active: %v", name, err)
	}
}

// ClearActive removes the named application's active marker.
func (a *Archive) ClearActive(name string) {
	path := filepath.Join(a.appDir(name), activeMarker)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warningf("clearing active marker for %q: %v", name, err)
	}
}

// IsActive reports whether the named application is marked active.
func (a *Archive) IsActive(name string) bool {
	_, err := os.Stat(filepath.Join(a.appDir(name), activeMarker))
	return err == nil
}

func (a *Archive) appDir(name string) string {
	return filepath.Join(a.rootDir, name)
}
