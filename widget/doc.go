// Package widget provides the status widgets drawn by the panel.
//
// Each widget implements [panel.Producer]. Widgets that sample kernel files
// take the path of the file to read so they can be pointed at fixtures.
package widget
