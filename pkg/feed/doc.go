/*
Package feed provides the document model for Tidewatch's XML intel feeds.

It wraps a parsed XML tree with path-based field access, detects which of
the known feed shapes a document matches (oil newsletter, refinery intel
report, maritime chokepoint dashboard), and converts documents into typed
view models for rendering. Absent fields resolve to the empty string rather
than an error, matching the permissive behavior the feeds rely on.

The package also includes a weather-driven risk assessor that can fill in
derived dashboard fields from raw forecast numbers, and a SQLite-backed
store that archives feed channels and their rendered snapshots.
*/
package feed
