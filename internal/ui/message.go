package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acegen/internal/models"
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
	MsgChannelsFetched MsgKind = iota
	MsgProbeDone
)

// channelsFetchedData is the payload of [MsgChannelsFetched].
type channelsFetchedData struct {
	channels []models.Channel
	err      error
}

// probeDoneData is the payload of [MsgProbeDone]. The infohash identifies
// which channel was probed so results for a deselected channel are dropped.
type probeDoneData struct {
	infohash string
	err      error
}

// channelsFetchedMsg is the constructor for [MsgChannelsFetched]
func channelsFetchedMsg(channels []models.Channel, err error) Msg {
	return Msg{kind: MsgChannelsFetched, data: channelsFetchedData{channels, err}}
}

// probeDoneMsg is the constructor for [MsgProbeDone]
func probeDoneMsg(infohash string, err error) Msg {
	return Msg{kind: MsgProbeDone, data: probeDoneData{infohash, err}}
}
