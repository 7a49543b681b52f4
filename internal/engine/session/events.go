package session

import "compgraph/internal/engine/component"

// EventType tags every event on the wire.
type EventType string

const (
	EventStatus    EventType = "status"
	EventFiles     EventType = "files"
	EventProgress  EventType = "progress"
	EventComponent EventType = "component"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is one record of a session's output stream.
type Event interface {
	EventType() EventType
}

type StatusEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

type FilesEvent struct {
	Type     EventType                  `json:"type"`
	AllFiles []component.RepositoryFile `json:"allFiles"`
}

type ProgressEvent struct {
	Type    EventType `json:"type"`
	Current int       `json:"current"`
	Total   int       `json:"total"`
	File    string    `json:"file"`
}

type ComponentEvent struct {
	Type      EventType                   `json:"type"`
	Component component.ComponentMetadata `json:"component"`
}

// CompleteEvent ends a successful session. TotalFiles is the number of
// candidates selected for extraction; AnalyzedFiles is how many produced a
// component.
type CompleteEvent struct {
	Type          EventType                     `json:"type"`
	Components    []component.ComponentMetadata `json:"components"`
	TotalFiles    int                           `json:"totalFiles"`
	AnalyzedFiles int                           `json:"analyzedFiles"`
}

type ErrorEvent struct {
	Type  EventType `json:"type"`
	Error string    `json:"error"`
}

func (StatusEvent) EventType() EventType    { return EventStatus }
func (FilesEvent) EventType() EventType     { return EventFiles }
func (ProgressEvent) EventType() EventType  { return EventProgress }
func (ComponentEvent) EventType() EventType { return EventComponent }
func (CompleteEvent) EventType() EventType  { return EventComplete }
func (ErrorEvent) EventType() EventType     { return EventError }

func NewStatus(msg string) StatusEvent {
	return StatusEvent{Type: EventStatus, Message: msg}
}

func NewFiles(files []component.RepositoryFile) FilesEvent {
	if files == nil {
		files = []component.RepositoryFile{}
	}
	return FilesEvent{Type: EventFiles, AllFiles: files}
}

func NewProgress(current, total int, file string) ProgressEvent {
	return ProgressEvent{Type: EventProgress, Current: current, Total: total, File: file}
}

func NewComponent(c component.ComponentMetadata) ComponentEvent {
	return ComponentEvent{Type: EventComponent, Component: c}
}

func NewComplete(components []component.ComponentMetadata, totalFiles, analyzedFiles int) CompleteEvent {
	if components == nil {
		components = []component.ComponentMetadata{}
	}
	return CompleteEvent{Type: EventComplete, Components: components, TotalFiles: totalFiles, AnalyzedFiles: analyzedFiles}
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: msg}
}

// IsTerminal reports whether ev ends a stream.
func IsTerminal(ev Event) bool {
	t := ev.EventType()
	return t == EventComplete || t == EventError
}
