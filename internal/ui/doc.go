// Package ui implements the interactive stream viewer using bubbletea's Elm architecture.
//
// `pagewalk playlist stream --tui` runs a chunk stream in the background and renders each chunk as it arrives:
//  1. [StreamingView] : Items are appended to a [list.Model] while a spinner shows the chunk count
//  2. [DoneView] : The stream ended (completed, stopped or failed); the list stays browsable
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Chunks, progress updates and the final stream error arrive over channels owned by the model. Quitting cancels the
// stream's context so the walker stops before its next page.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, s, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
