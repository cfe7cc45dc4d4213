// Package viz renders simulation output in the terminal.
//
//   - [Plot] and [PlotLogs]: line charts of node logs
//   - [LiveModel]: Bubble Tea program that runs a model frame by frame
//   - [Canvas]: braille pixel canvas used by the live view
//   - Theme selection with 3 built-in color schemes
//
// # Key Bindings
//
//	Space   - Pause/Resume simulation
//	R       - Restart from the start values
//	Tab/N   - Next node
//	V       - Next variable of the node
//	P       - Next system parameter
//	Up/Down - Scale the selected parameter
//	T       - Cycle color themes
//	?       - Show help overlay
package viz
