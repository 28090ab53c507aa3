package domain

import (
	"path/filepath"
	"strings"
)

// ChunkSize is the fixed window used when splitting a layer file into
// multipart upload parts.
const ChunkSize = 100 * 1024 * 1024

// LayerType is the logical type of an uploaded layer, derived from the
// file extension.
type LayerType int

const (
	LayerTypeRaster  LayerType = 0
	LayerTypeVector  LayerType = 1
	LayerTypeUnknown LayerType = -1
)

var layerTypesByExtension = map[string]LayerType{
	".tif":     LayerTypeRaster,
	".tiff":    LayerTypeRaster,
	".geotiff": LayerTypeRaster,
	".shp":     LayerTypeVector,
	".gpkg":    LayerTypeVector,
	".geojson": LayerTypeVector,
	".zip":     LayerTypeVector,
}

// LayerTypeFromPath returns the layer type for a file path based on its
// extension, or LayerTypeUnknown for unrecognized extensions.
func LayerTypeFromPath(path string) LayerType {
	ext := strings.ToLower(filepath.Ext(path))
	if layerType, ok := layerTypesByExtension[ext]; ok {
		return layerType
	}
	return LayerTypeUnknown
}

// NumberOfParts returns ceil(fileSize / ChunkSize), the part count a file
// of the given size splits into. A zero-byte file still occupies one part.
func NumberOfParts(fileSize int64) int {
	if fileSize <= 0 {
		return 1
	}
	return int((fileSize + ChunkSize - 1) / ChunkSize)
}

// PartItem is the integrity record for one uploaded part, required
// verbatim by the finish call.
type PartItem struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// UploadSession tracks one layer upload from start to finish or abort.
// MultipartUploadID is empty for single-part uploads. Parts are appended
// in part-number order by the upload driver, which is the session's single
// writer for its lifetime.
type UploadSession struct {
	LayerUUID         string
	MultipartUploadID string
	Parts             []PartItem
}

// IsMultipart reports whether the session uses the multipart protocol.
func (s UploadSession) IsMultipart() bool {
	return s.MultipartUploadID != ""
}
