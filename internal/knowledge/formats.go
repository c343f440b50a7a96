package knowledge

import "strings"

// Formats the index provider accepts as-is.
var passthroughFormats = map[string]bool{
	"csv":  true,
	"json": true,
	"xml":  true,
	"txt":  true,
	"pdf":  true,
	"md":   true,
	"html": true,
	"docx": true,
	"pptx": true,
	"xlsx": true,
}

// normalizeFormat maps a declared resource format to a canonical file
// extension the index provider can ingest. Legacy spreadsheet formats map to
// the canonical spreadsheet extension, geographic formats to the generic
// container they are encoded in. Returns false for formats with no usable
// mapping (archives, binary GIS blobs).
func normalizeFormat(format string) (string, bool) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))

	if passthroughFormats[f] {
		return f, true
	}

	switch f {
	case "xls", "ods":
		return "xlsx", true
	case "geojson":
		return "json", true
	case "gml", "kml", "wfs", "wms", "rdf":
		return "xml", true
	}

	return "", false
}
