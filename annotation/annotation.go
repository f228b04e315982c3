package annotation

import (
	"encoding/json"

	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
)

// Object is one entry of a slot's vector overlay. It is a closed tagged
// union on Kind: a stroke carries Points, a rectangle X/Y/Width/Height,
// a circle CX/CY/Radius, an arrow group its line and head under a shared
// transform. The base photograph is never represented as an Object;
// IMAGE entries are accepted on input for compatibility and stripped on
// every serialization.
type Object struct {
	Kind        string    `json:"kind"`
	Color       string    `json:"color,omitempty"`
	StrokeWidth float64   `json:"stroke_width,omitempty"`
	Points      []Point2D `json:"points,omitempty"`
	X           float64   `json:"x,omitempty"`
	Y           float64   `json:"y,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	CX          float64   `json:"cx,omitempty"`
	CY          float64   `json:"cy,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	Arrow       *Arrow    `json:"arrow,omitempty"`
}

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Arrow is a straight shaft plus a triangular head sharing one
// translation, so moving the group moves both parts.
type Arrow struct {
	FromX   float64 `json:"from_x"`
	FromY   float64 `json:"from_y"`
	ToX     float64 `json:"to_x"`
	ToY     float64 `json:"to_y"`
	HeadLen float64 `json:"head_len"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

var objectKinds = map[string]bool{
	constants.AntnKindStroke:     true,
	constants.AntnKindRectangle:  true,
	constants.AntnKindCircle:     true,
	constants.AntnKindArrowGroup: true,
	constants.AntnKindImage:      true,
}

func (object *Object) String() string {
	b, _ := json.Marshal(object)
	return string(b)
}

func (object *Object) IsValidKind() bool {
	_, found := objectKinds[object.Kind]
	return found
}

// IsValidGeometry checks shape-specific sanity only: dimensions and
// radii must be non-negative, strokes need at least one point.
func (object *Object) IsValidGeometry() bool {
	switch object.Kind {
	case constants.AntnKindStroke:
		return len(object.Points) > 0
	case constants.AntnKindRectangle:
		return object.Width >= 0 && object.Height >= 0
	case constants.AntnKindCircle:
		return object.Radius >= 0
	case constants.AntnKindArrowGroup:
		return object.Arrow != nil && object.Arrow.HeadLen >= 0
	case constants.AntnKindImage:
		return true
	default:
		return false
	}
}

// Document is an ordered object sequence; z-order is insertion order.
type Document struct {
	Objects []Object `json:"objects"`
}

func NewDocument() *Document {
	return &Document{
		Objects: make([]Object, 0),
	}
}

func (doc *Document) String() string {
	b, _ := json.Marshal(doc)
	return string(b)
}

// AddObject appends to the sequence. Invalid geometry is the only thing
// rejected; everything else always succeeds.
func (doc *Document) AddObject(object Object) bool {
	if !object.IsValidKind() || !object.IsValidGeometry() {
		return false
	}
	doc.Objects = append(doc.Objects, object)
	return true
}

// RemoveLast drops the most recent object. The base photograph is not an
// object in this model, so there is nothing here that could remove it.
// On an empty document this is a no-op.
func (doc *Document) RemoveLast() {
	if len(doc.Objects) == 0 {
		return
	}
	doc.Objects = doc.Objects[:len(doc.Objects)-1]
}

func (doc *Document) Clear() {
	doc.Objects = doc.Objects[:0]
}

func (doc *Document) Len() int {
	return len(doc.Objects)
}

func (doc *Document) Last() *Object {
	if len(doc.Objects) == 0 {
		return nil
	}
	return &doc.Objects[len(doc.Objects)-1]
}

// Clone deep-copies the document so drafts never alias saved state.
func (doc *Document) Clone() *Document {
	cp := NewDocument()
	for _, object := range doc.Objects {
		o := object
		if object.Points != nil {
			o.Points = make([]Point2D, len(object.Points))
			copy(o.Points, object.Points)
		}
		if object.Arrow != nil {
			arrow := *object.Arrow
			o.Arrow = &arrow
		}
		cp.Objects = append(cp.Objects, o)
	}
	return cp
}

// Serialize emits the canonical JSON form. Image-kind entries are
// filtered before emission, so the output never embeds raster layers.
// Pure: equal documents serialize to byte-identical output.
func Serialize(doc *Document) ([]byte, error) {
	out := NewDocument()
	for _, object := range doc.Objects {
		if object.Kind == constants.AntnKindImage {
			continue
		}
		out.Objects = append(out.Objects, object)
	}
	return json.Marshal(out)
}

// Deserialize parses the canonical form back into a Document. Unlike
// older intake tooling that silently handed back unparsable blobs, a
// blob that does not parse as an object sequence fails with
// MalformedAnnotationError.
func Deserialize(blob []byte) (*Document, error) {
	if len(blob) == 0 {
		return nil, entities.NewMalformedAnnotationError("empty blob")
	}

	var doc Document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, entities.NewMalformedAnnotationError(err.Error())
	}
	if doc.Objects == nil {
		return nil, entities.NewMalformedAnnotationError("missing object sequence")
	}

	for i := range doc.Objects {
		if !doc.Objects[i].IsValidKind() {
			return nil, entities.NewMalformedAnnotationError("unknown object kind: " + doc.Objects[i].Kind)
		}
		if !doc.Objects[i].IsValidGeometry() {
			return nil, entities.NewMalformedAnnotationError("invalid geometry for kind: " + doc.Objects[i].Kind)
		}
	}

	return &doc, nil
}

// Equal compares two documents on their canonical serialized form.
func Equal(a, b *Document) bool {
	ab, err1 := Serialize(a)
	bb, err2 := Serialize(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(ab) == string(bb)
}
