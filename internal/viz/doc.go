// Package viz is a terminal viewer for a running layout.
//
// The viewer is a Bubble Tea program that owns an [engine.Engine], ticks it
// on a timer and draws nodes and links onto a braille [Canvas]. Nodes are
// tinted by category.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	R       - Reheat
//	Tab     - Select next node
//	P       - Pin/Unpin selected node
//	Arrows  - Push selected node
//	T       - Cycle color themes
//	?       - Toggle full help
//	Q       - Quit
package viz
