// Package domain models geotagged vegetation-health observations and the
// pure transforms the map dashboard derives from them.
//
// # Data Source
//
// Observations arrive as a GeoJSON FeatureCollection of Point features (or a
// flat JSON array) produced by the upstream remote-sensing job. Each point
// carries an NDVI reading and, usually, a precomputed severity band. Points
// without an id are identified by their coordinates, serialized "lon,lat".
//
// # NDVI Conventions
//
// NDVI (Normalized Difference Vegetation Index) is nominally in [-1, 1].
// Negative values indicate water or bare soil; values above 0.6 indicate
// dense, healthy vegetation. A missing reading is treated as 0. That places
// it in the critical display level, indistinguishable by value from a
// measured 0; [Observation.HasNDVI] tells the two apart.
//
// # Two Taxonomies
//
// Severity (critical, moderate, healthy) is assigned upstream and is the
// operational band: it drives density-selection priority and the critical
// and watchlist views. Level is the display classification produced by
// [Classify]:
//
//	ndvi < -0.2   water      #8B0000  Water/Soil
//	     < 0.2    critical   #DC143C  Critical
//	     < 0.4    moderate   #FF8C00  Moderate
//	     < 0.6    fair       #FFD700  Fair
//	     >= 0.6   excellent  #228B22  Healthy
//
// Upstream density levels (very_sparse, sparse, dense, very_dense) are
// remapped to critical, moderate, good and excellent. "good" has no severity
// counterpart, so the two taxonomies are never converted into each other.
//
// # Density Selection
//
// [Select] thins each severity band independently so dense clusters of less
// urgent points do not clutter the map. Within a capped band the lowest NDVI
// points win, and accepted points keep a minimum great-circle spacing
// ([HaversineMeters]). Spacing is never enforced across bands, so a critical
// point may sit next to a healthy one. The critical band is uncapped in the
// operating configuration.
//
// # Views
//
// [View] derives the all, critical and watchlist subsets. "all" is the union
// of critical points and watchlisted points, not every observation.
package domain
