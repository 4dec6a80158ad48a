// Package sink renders built scenes to files and HTTP responses.
//
// Three outputs are available:
//
//   - [RenderJSON]: the full scene (boxes, labels, skipped records, camera)
//     for a browser host that draws the 3D view itself
//   - [RenderSVG]: a top-down floor plan, one square per location colored
//     like its box, with hover popups showing the tooltip lines
//   - [StatesDOT] and [RenderStatesSVG]: the interaction state machine as a
//     Graphviz diagram
//
// All renderers are pure functions of their inputs.
package sink
