// Package imaging holds the raster utilities around templates: the asset
// cache that resolves Image parameter values, PNG artifacts for MCP
// responses, region crops, palette sampling, and the zone overlay used to
// inspect a decomposition.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner. For
// regions, Min is inclusive and Max is exclusive, as with image.Rectangle.
//
// # Thread Safety
//
// AssetCache is safe for concurrent use and is shared by every render of
// a batch. The other functions are stateless.
package imaging
