package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgChunkReceived MsgKind = iota
	MsgProgressUpdate
	MsgStreamEnded
)

// chunkReceivedMsg is the constructor for [MsgChunkReceived]
func chunkReceivedMsg(chunk models.Chunk) Msg {
	return Msg{kind: MsgChunkReceived, data: chunk}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// streamEndedMsg is the constructor for [MsgStreamEnded]. err is nil when the stream completed.
func streamEndedMsg(err error) Msg {
	return Msg{kind: MsgStreamEnded, data: err}
}
