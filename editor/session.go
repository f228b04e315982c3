package editor

import (
	"encoding/json"
	"time"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"

	"github.com/google/uuid"
)

var editorTools = map[string]bool{
	constants.ToolFreehand:  true,
	constants.ToolRectangle: true,
	constants.ToolCircle:    true,
	constants.ToolArrow:     true,
	constants.ToolEraser:    true,
}

// slotState tracks one image slot inside a session. A slot accepts
// capture calls only after LoadSlot marked it ready with its canvas
// dimensions and any previously saved document.
type slotState struct {
	Ready        bool
	CanvasWidth  float64
	CanvasHeight float64
	Draft        *annotation.Document
}

// Session is one clinician's ephemeral editing state over one
// submission. It is never persisted; abandoning it loses the drafts.
// The interaction model is single-threaded: one caller drives a session
// at a time, and the registry serializes access.
type Session struct {
	ID           string
	SubmissionID string
	OwnerID      string
	Created      int64
	LastActive   int64

	activeSlotIndex int
	tool            string
	color           string
	brushWidth      float64
	zoom            float64

	slots   [constants.NumSlots]slotState
	current *annotation.Document
}

func NewSession(submissionID, ownerID string) *Session {
	now := time.Now().UnixNano() / int64(time.Millisecond)
	return &Session{
		ID:              uuid.New().String(),
		SubmissionID:    submissionID,
		OwnerID:         ownerID,
		Created:         now,
		LastActive:      now,
		activeSlotIndex: -1,
		tool:            constants.ToolFreehand,
		color:           "#e53935",
		brushWidth:      3,
		zoom:            1,
	}
}

func (session *Session) String() string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":            session.ID,
		"submission_id": session.SubmissionID,
		"owner_id":      session.OwnerID,
		"created":       session.Created,
	})
	return string(b)
}

func (session *Session) touch() {
	session.LastActive = time.Now().UnixNano() / int64(time.Millisecond)
}

func (session *Session) ActiveSlotIndex() int { return session.activeSlotIndex }
func (session *Session) Tool() string         { return session.tool }
func (session *Session) Color() string        { return session.color }
func (session *Session) BrushWidth() float64  { return session.brushWidth }
func (session *Session) Zoom() float64        { return session.zoom }

// SelectTool switches the interaction mode. Unknown tools are ignored.
func (session *Session) SelectTool(tool string) {
	session.touch()
	if _, found := editorTools[tool]; !found {
		return
	}
	session.tool = tool
}

func (session *Session) SetColor(color string) {
	session.touch()
	if color == "" {
		return
	}
	session.color = color
}

func (session *Session) SetBrushWidth(width float64) {
	session.touch()
	if width <= 0 {
		return
	}
	session.brushWidth = width
}

// SetZoom clamps into [0.2, 5.0]. Pure view transform; the documents
// are untouched.
func (session *Session) SetZoom(zoom float64) float64 {
	session.touch()
	if zoom < constants.ZoomMin {
		zoom = constants.ZoomMin
	}
	if zoom > constants.ZoomMax {
		zoom = constants.ZoomMax
	}
	session.zoom = zoom
	return session.zoom
}

// LoadSlot marks a slot ready for capture, providing its canvas
// dimensions and the previously saved document for that slot (nil for a
// fresh slot). If no slot is active yet, the loaded slot becomes active.
func (session *Session) LoadSlot(index int, canvasWidth, canvasHeight float64, saved *annotation.Document) {
	session.touch()
	if index < 0 || index >= constants.NumSlots {
		return
	}

	draft := annotation.NewDocument()
	if saved != nil {
		draft = saved.Clone()
	}
	session.slots[index] = slotState{
		Ready:        true,
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
		Draft:        draft,
	}

	if session.activeSlotIndex == -1 {
		session.activeSlotIndex = index
		session.current = draft
	} else if session.activeSlotIndex == index {
		session.current = draft
	}
}

// SwitchSlot flushes the working draft into the per-slot array, then
// activates the requested slot. Capture calls against the new slot are
// no-ops until it has been loaded.
func (session *Session) SwitchSlot(index int) {
	session.touch()
	if index < 0 || index >= constants.NumSlots || index == session.activeSlotIndex {
		return
	}

	session.flush()

	session.activeSlotIndex = index
	if session.slots[index].Ready {
		session.current = session.slots[index].Draft
	} else {
		session.current = nil
	}
}

// flush writes the working draft back into the slot array. Called
// before every slot switch and before Drafts/save; without it edits on
// the active slot would be lost on switch.
func (session *Session) flush() {
	if session.activeSlotIndex >= 0 && session.current != nil {
		session.slots[session.activeSlotIndex].Draft = session.current
	}
}

// CaptureStroke appends a freehand or eraser stroke to the active
// slot's draft. The eraser paints a fixed wide white stroke; it never
// removes objects, it occludes them. Without an active, loaded slot
// this does nothing.
func (session *Session) CaptureStroke(points []annotation.Point2D) {
	session.touch()
	if session.current == nil || len(points) == 0 {
		return
	}

	color := session.color
	width := session.brushWidth
	if session.tool == constants.ToolEraser {
		color = constants.EraserColor
		width = constants.EraserWidth
	}

	session.current.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       color,
		StrokeWidth: width,
		Points:      points,
	})
}

// PlaceShape appends a centered, default-sized shape of the given kind.
// Selection and dragging afterwards are presentation concerns; the
// model only ever sees the final geometry via later saves.
func (session *Session) PlaceShape(kind string) {
	session.touch()
	if session.current == nil {
		return
	}

	slot := session.slots[session.activeSlotIndex]
	cx := slot.CanvasWidth / 2
	cy := slot.CanvasHeight / 2

	switch kind {
	case constants.AntnKindRectangle:
		session.current.AddObject(annotation.Object{
			Kind:        constants.AntnKindRectangle,
			Color:       session.color,
			StrokeWidth: session.brushWidth,
			X:           cx - 60,
			Y:           cy - 40,
			Width:       120,
			Height:      80,
		})
	case constants.AntnKindCircle:
		session.current.AddObject(annotation.Object{
			Kind:        constants.AntnKindCircle,
			Color:       session.color,
			StrokeWidth: session.brushWidth,
			CX:          cx,
			CY:          cy,
			Radius:      50,
		})
	case constants.AntnKindArrowGroup:
		session.current.AddObject(annotation.Object{
			Kind:        constants.AntnKindArrowGroup,
			Color:       session.color,
			StrokeWidth: session.brushWidth,
			Arrow: &annotation.Arrow{
				FromX:   cx - 60,
				FromY:   cy,
				ToX:     cx + 60,
				ToY:     cy,
				HeadLen: 14,
			},
		})
	}
}

// RemoveLast undoes the most recent object on the active slot.
func (session *Session) RemoveLast() {
	session.touch()
	if session.current == nil {
		return
	}
	session.current.RemoveLast()
}

// ClearSlot empties the active slot's draft. The base photograph is out
// of model and unaffected.
func (session *Session) ClearSlot() {
	session.touch()
	if session.current == nil {
		return
	}
	session.current.Clear()
}

// Drafts flushes and returns per-slot documents; slots never loaded
// come back nil.
func (session *Session) Drafts() [constants.NumSlots]*annotation.Document {
	session.flush()
	var out [constants.NumSlots]*annotation.Document
	for i := range session.slots {
		if session.slots[i].Ready {
			out[i] = session.slots[i].Draft
		}
	}
	return out
}

// Draft returns the working document of one slot, nil when not loaded.
func (session *Session) Draft(index int) *annotation.Document {
	if index < 0 || index >= constants.NumSlots {
		return nil
	}
	session.flush()
	if !session.slots[index].Ready {
		return nil
	}
	return session.slots[index].Draft
}
