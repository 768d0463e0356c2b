// Package media turns local files into one remote post on a messaging
// provider and resolves the provider's opaque file references back into
// fetchable URLs.
package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the provider-side media kind of an uploaded file.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// KindOf picks the media kind from a declared content type: video for any
// video/* type, photo otherwise.
func KindOf(contentType string) Kind {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return KindVideo
	}
	return KindPhoto
}

// File is one local file handed to the pipeline. Open is called once per
// upload attempt.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Kind returns the media kind of f.
func (f File) Kind() Kind {
	return KindOf(f.ContentType)
}

// IsVideo reports whether f declares a video content type.
func (f File) IsVideo() bool {
	return f.Kind() == KindVideo
}

// FileFromPath describes a file on disk, sniffing its content type.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, fmt.Errorf("detecting content type of %s: %w", path, err)
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: mt.String(),
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FileFromBytes wraps an in-memory file. An empty contentType is sniffed
// from data.
func FileFromBytes(name, contentType string, data []byte) File {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromOpener describes a file reachable through open, such as a
// multipart upload. An empty or generic contentType is sniffed from the
// file's leading bytes.
func FileFromOpener(name, contentType string, size int64, open func() (io.ReadCloser, error)) (File, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		rc, err := open()
		if err != nil {
			return File{}, fmt.Errorf("opening %s: %w", name, err)
		}
		mt, err := mimetype.DetectReader(rc)
		rc.Close()
		if err != nil {
			return File{}, fmt.Errorf("detecting content type of %s: %w", name, err)
		}
		contentType = mt.String()
	}

	return File{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Open:        open,
	}, nil
}

// Ref is a provider file reference decoded from an upload response. Only
// FileID is persisted.
type Ref struct {
	Kind   Kind
	FileID string
}

// Post is the input of one upload: caption text, optional author and zero
// or more files in the order they should appear.
type Post struct {
	Caption string
	Author  string
	Files   []File
}

// UploadResult is what one successful upload produced.
type UploadResult struct {
	// PostID is the provider's message id. For albums it is the id of the
	// first message of the group.
	PostID int64

	// Refs holds one reference per uploaded file, in upload order.
	Refs []Ref
}

// FileIDs returns the persisted form of the result's references.
func (r *UploadResult) FileIDs() []string {
	ids := make([]string, 0, len(r.Refs))
	for _, ref := range r.Refs {
		ids = append(ids, ref.FileID)
	}
	return ids
}

// GroupItem is one element of an album upload.
type GroupItem struct {
	File    File
	Caption string
}

// Caption appends the author attribution line to content when author is
// set.
func Caption(content, author string) string {
	if author == "" {
		return content
	}
	return content + "\n\n— Author: " + author
}

// IsFileRef reports whether s looks like a provider file reference rather
// than a URL or free text.
func IsFileRef(s string) bool {
	return len(s) > 20 &&
		!strings.HasPrefix(s, "http://") &&
		!strings.HasPrefix(s, "https://") &&
		!strings.Contains(s, " ")
}
