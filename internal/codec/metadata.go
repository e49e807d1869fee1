package codec

import (
	"fmt"
	"sort"

	"github.com/barasher/go-exiftool"
)

// InspectFields are the exiftool tags shown by the inspect command.
var InspectFields = []string{
	"FileType",
	"MIMEType",
	"ImageSize",
	"ColorType",
	"BitDepth",
	"Orientation",
	"Software",
	"Make",
	"Model",
	"DateTimeOriginal",
}

// Metadata is a flat tag → value view of one file.
type Metadata map[string]interface{}

// Keys returns the tag names in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MetadataProbe reads file metadata through the exiftool binary.
type MetadataProbe struct {
	fields []string
}

// NewMetadataProbe returns a probe restricted to fields (all tags when empty).
func NewMetadataProbe(fields ...string) *MetadataProbe {
	return &MetadataProbe{fields: fields}
}

// Extract runs exiftool against path. It fails when the binary is missing.
func (p *MetadataProbe) Extract(path string) (Metadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool unavailable: %w", err)
	}
	defer et.Close()

	files := et.ExtractMetadata(path)
	if len(files) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if files[0].Err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", path, files[0].Err)
	}

	return p.filter(files[0].Fields), nil
}

func (p *MetadataProbe) filter(fields map[string]interface{}) Metadata {
	if len(p.fields) == 0 {
		return Metadata(fields)
	}
	out := make(Metadata, len(p.fields))
	for _, name := range p.fields {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}
