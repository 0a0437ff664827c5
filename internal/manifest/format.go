// Package manifest renders samples into the CSV conventions each vendor expects.
package manifest

import (
	"strings"

	"visionbench/internal/domain"
)

// Vendor manifest variants. Plain is the canonical, unprefixed form.
const (
	Plain       = ""
	Vertex      = "vertex"
	HuggingFace = "hg"
	AWS         = "aws"
	Azure       = "azure"
	Nyckel      = "nyckel"
)

// Vendors lists every non-plain variant in emission order.
var Vendors = []string{Vertex, HuggingFace, AWS, Azure, Nyckel}

// Header is the column header used by the header-tagged variants.
var Header = []string{"image_url", "label"}

// Prefixes is the per-dataset table of vendor URI prefixes.
type Prefixes struct {
	// VertexBucket is a gs:// URI; rows become {bucket}/{upload_dir}/{file}.
	VertexBucket string
	// AzurePrefix is a datastore URI; rows become {prefix}{upload_dir}/{file}.
	AzurePrefix string
}

// Format describes how one vendor serializes (file, label) pairs.
type Format struct {
	Vendor    string
	HasHeader bool
	// Combined formats concatenate train then val into the train manifest.
	Combined bool
	prefix   func(p Prefixes, split domain.Split) string
}

// Prefix is the string prepended to each file name for split.
func (f Format) Prefix(p Prefixes, split domain.Split) string {
	if f.prefix == nil {
		return ""
	}
	return f.prefix(p, split)
}

// Lookup returns the format of vendor.
func Lookup(vendor string) (Format, error) {
	switch vendor {
	case Plain:
		return Format{Vendor: Plain}, nil
	case Vertex:
		return Format{Vendor: Vertex, prefix: func(p Prefixes, split domain.Split) string {
			return strings.TrimSuffix(p.VertexBucket, "/") + "/" + split.UploadDir() + "/"
		}}, nil
	case HuggingFace:
		return Format{Vendor: HuggingFace, HasHeader: true}, nil
	case AWS:
		return Format{Vendor: AWS}, nil
	case Azure:
		return Format{Vendor: Azure, HasHeader: true, prefix: func(p Prefixes, split domain.Split) string {
			return p.AzurePrefix + split.UploadDir() + "/"
		}}, nil
	case Nyckel:
		return Format{Vendor: Nyckel, Combined: true}, nil
	default:
		return Format{}, domain.Configf("unknown manifest vendor %q", vendor)
	}
}

// Rows renders samples for split, including the header when the format has one.
func (f Format) Rows(p Prefixes, split domain.Split, samples []domain.Sample) [][]string {
	rows := make([][]string, 0, len(samples)+1)
	if f.HasHeader {
		rows = append(rows, append([]string(nil), Header...))
	}
	prefix := f.Prefix(p, split)
	for _, s := range samples {
		rows = append(rows, []string{prefix + s.FileName, s.Label})
	}
	return rows
}

// Parse strips the header and the split's prefix, returning the plain samples.
// A combined manifest carries rows of both train and val, so either prefix is
// accepted when parsing one.
func (f Format) Parse(p Prefixes, split domain.Split, rows [][]string) ([]domain.Sample, error) {
	if f.HasHeader {
		if len(rows) == 0 || !isHeader(rows[0]) {
			return nil, domain.Integrityf("%s manifest is missing its header", f.Vendor)
		}
		rows = rows[1:]
	}
	prefixes := []string{f.Prefix(p, split)}
	if f.Combined && split == domain.SplitTrain {
		prefixes = append(prefixes, f.Prefix(p, domain.SplitVal))
	}
	out := make([]domain.Sample, 0, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, domain.Integrityf("%s manifest row %d has %d fields", f.Vendor, i+1, len(row))
		}
		name, ok := stripAny(row[0], prefixes)
		if !ok {
			return nil, domain.Integrityf("%s manifest row %d: %q lacks prefix %q", f.Vendor, i+1, row[0], prefixes[0])
		}
		out = append(out, domain.Sample{FileName: name, Label: row[1]})
	}
	return out, nil
}

func isHeader(row []string) bool {
	return len(row) == len(Header) && row[0] == Header[0] && row[1] == Header[1]
}

func stripAny(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimPrefix(s, p), true
		}
	}
	return s, false
}
