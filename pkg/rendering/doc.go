/*
Package rendering turns parsed intel feeds into HTML pages.

The Manager holds a set of html/template pages, one per feed shape, with
built-in versions compiled into the binary and optional overrides loaded
from a template directory. Rendering is deterministic: the same feed
document and configuration always produce byte-identical HTML, so output
can be cached or diffed safely.
*/
package rendering
