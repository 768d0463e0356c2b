package telegram

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/papercomputeco/yearbook/pkg/media"
)

// form is a multipart body assembled lazily: parts are recorded first and
// written when the request streams.
type form struct {
	parts []part
}

type part struct {
	name  string
	value string
	file  *media.File
}

func newForm() *form {
	return &form{}
}

func (f *form) field(name, value string) {
	f.parts = append(f.parts, part{name: name, value: value})
}

func (f *form) file(name string, file media.File) {
	f.parts = append(f.parts, part{name: name, file: &file})
}

func (f *form) write(mw *multipart.Writer) error {
	for _, p := range f.parts {
		if p.file == nil {
			if err := mw.WriteField(p.name, p.value); err != nil {
				return err
			}
			continue
		}

		if err := writeFile(mw, p.name, *p.file); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, name string, file media.File) error {
	if file.Open == nil {
		return fmt.Errorf("file %s has no content", file.Name)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	filename := file.Name
	if filename == "" {
		filename = name
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("streaming %s: %w", file.Name, err)
	}
	return nil
}
