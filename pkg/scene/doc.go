// Package scene converts warehouse location records into a scene graph of
// positioned, colored boxes.
//
// # Building
//
// [Build] walks the records in order and produces one [Box] per valid
// record. Height comes from the stock count and color from the occupancy
// weight (see package mapper). Boxes are centered on their grid cell:
//
//	posX = x + cellSize/2 - divisions/2
//	posY = height/2
//	posZ = z + cellSize/2 - divisions/2
//
// Malformed records (empty or duplicate ID, negative or non-finite stock or
// weight) are skipped and reported; the build continues. Two records on the
// same cell produce two overlapping boxes.
//
// # Ownership
//
// A [Graph] is immutable once built. The picking engine reads its boxes, the
// interaction machine holds at most one *Box from it, and a [Store] publishes
// whole graphs with a single atomic swap so readers never see a partially
// built scene.
package scene
