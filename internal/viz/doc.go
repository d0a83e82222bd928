// Package viz renders simulation runs in the terminal.
//
// [Model] is a Bubble Tea program that follows a running simulation: one
// progress bar per species, a Braille [Canvas] of the selected species'
// transverse cross-section, and a survival sparkline. [Reporter] adapts
// the model to a [sim.Observer]:
//
//	p := tea.NewProgram(viz.NewModel("standard", tags, r0, cancel))
//	simulator.AddObserver(viz.Reporter(p.Send, 0))
//
// When the run ends, send a [DoneMsg] and the view adds a [SummaryTable].
//
// # Key Bindings
//
//	Tab/J/K - Select species
//	T       - Cycle color themes
//	?       - Show help
//	Q       - Quit (cancels an unfinished run)
package viz
