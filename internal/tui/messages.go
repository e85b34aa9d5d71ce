package tui

import (
	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/playback"
)

// snapshotMsg carries a new session snapshot
type snapshotMsg struct {
	snap playback.Snapshot
}

// sessionClosedMsg is sent when the snapshot stream ends
type sessionClosedMsg struct{}

// metadataMsg carries the result of the metadata fetch
type metadataMsg struct {
	meta *gateway.Metadata
	err  error
}

// commandResultMsg reports a fallback command the controller rejected
type commandResultMsg struct {
	action string
	err    error
}

// copiedMsg reports the outcome of copying the source URL
type copiedMsg struct {
	url string
	err error
}
